package loader

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zip"
)

const (
	ClassExt = ".class"
	JarExt   = ".jar"
)

var ErrUnsupportedSource = errors.New("unsupported source")

// Source is the raw bytes of one class file
type Source struct {
	Origin string // file path, or jar!entry for archive members
	Data   []byte
}

func (s Source) Digest() uint64 {
	return Digest(s.Data)
}

// Digest returns the content digest used to detect changed classes
func Digest(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// Discover collects class sources from .class files, directories (walked
// recursively) and .jar archives. Entries matching an ignore pattern, by
// base name or by slash-separated relative path, are skipped.
func Discover(paths []string, ignore []string) ([]Source, error) {
	var sources []Source
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}

		var found []Source
		switch {
		case info.IsDir():
			found, err = readDir(p, ignore)
		case strings.EqualFold(filepath.Ext(p), JarExt):
			found, err = ReadJar(p, ignore)
		case strings.EqualFold(filepath.Ext(p), ClassExt):
			var src Source
			src, err = ReadFile(p)
			found = []Source{src}
		default:
			err = fmt.Errorf("%w: %s", ErrUnsupportedSource, p)
		}
		if err != nil {
			return nil, err
		}
		sources = append(sources, found...)
	}
	return sources, nil
}

// ReadFile reads a single .class file
func ReadFile(p string) (Source, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return Source{}, fmt.Errorf("failed to read %s: %w", p, err)
	}
	return Source{Origin: p, Data: data}, nil
}

func readDir(root string, ignore []string) ([]Source, error) {
	var sources []Source
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsClassFile(p) {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if Ignored(filepath.ToSlash(rel), ignore) {
			return nil
		}
		src, err := ReadFile(p)
		if err != nil {
			return err
		}
		sources = append(sources, src)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return sources, nil
}

// ReadJar reads every class entry of a jar archive in archive order
func ReadJar(p string, ignore []string) ([]Source, error) {
	r, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("failed to open jar %s: %w", p, err)
	}
	defer r.Close()

	var sources []Source
	for _, f := range r.File {
		if f.FileInfo().IsDir() || !IsClassFile(f.Name) || Ignored(f.Name, ignore) {
			continue
		}
		data, err := readEntry(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s!%s: %w", p, f.Name, err)
		}
		sources = append(sources, Source{Origin: p + "!" + f.Name, Data: data})
	}
	return sources, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func IsClassFile(name string) bool {
	return strings.EqualFold(path.Ext(filepath.ToSlash(name)), ClassExt)
}

// Ignored matches a slash-separated relative path against glob patterns.
// A pattern matches either the whole path or its base name.
func Ignored(rel string, patterns []string) bool {
	base := path.Base(rel)
	for _, pattern := range patterns {
		if ok, _ := path.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := path.Match(pattern, base); ok {
			return true
		}
	}
	return false
}
