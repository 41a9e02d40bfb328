package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
)

// SimpleClass assembles a class with one composable restart group whose
// body loads value
func SimpleClass(name string, key, value int32) []byte {
	cb := NewClass(name)
	cb.Composable("Content").
		StartRestartGroup(key).
		Int(value).
		Op(0x57).
		EndRestartGroup().
		Return()
	return cb.Bytes()
}

// WriteFile writes data to dir/rel, creating parent directories
func WriteFile(tb testing.TB, dir, rel string, data []byte) string {
	tb.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		tb.Fatalf("mkdir %s: %v", p, err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		tb.Fatalf("write %s: %v", p, err)
	}
	return p
}

// JarEntry is one member of a test archive
type JarEntry struct {
	Name string
	Data []byte
}

// WriteJar writes a deflated archive with the given entries in order
func WriteJar(tb testing.TB, p string, entries ...JarEntry) string {
	tb.Helper()
	f, err := os.Create(p)
	if err != nil {
		tb.Fatalf("create %s: %v", p, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, e := range entries {
		w, err := zw.Create(e.Name)
		if err != nil {
			tb.Fatalf("create entry %s: %v", e.Name, err)
		}
		if _, err := w.Write(e.Data); err != nil {
			tb.Fatalf("write entry %s: %v", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		tb.Fatalf("close %s: %v", p, err)
	}
	return p
}
