package analysis

import (
	"fmt"
	"io"
	"strings"
)

// Render dumps the scope trees grouped by class, one indented line per
// scope. Used for diagnostics and test fixtures.
func Render(info *RuntimeInfo) string {
	var sb strings.Builder
	_ = WriteTree(&sb, info)
	return sb.String()
}

func WriteTree(w io.Writer, info *RuntimeInfo) error {
	class := ""
	for _, id := range info.MethodIds() {
		if id.ClassId != class {
			if class != "" {
				if _, err := fmt.Fprintln(w); err != nil {
					return err
				}
			}
			class = id.ClassId
			if _, err := fmt.Fprintf(w, "class %s\n", class); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "  %s%s\n", id.Name, id.Descriptor); err != nil {
			return err
		}
		for _, root := range info.Method(id) {
			if err := writeScope(w, root, 2); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeScope(w io.Writer, s *ScopeInfo, depth int) error {
	indent := strings.Repeat("  ", depth)
	if _, err := fmt.Fprintf(w, "%s%s key=%s hash=%016x", indent, s.Type, s.Group, s.Hash); err != nil {
		return err
	}
	if len(s.Dependencies) > 0 {
		deps := make([]string, len(s.Dependencies))
		for i, d := range s.Dependencies {
			deps[i] = d.String()
		}
		if _, err := fmt.Fprintf(w, " deps=[%s]", strings.Join(deps, ", ")); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	for _, c := range s.Children {
		if err := writeScope(w, c, depth+1); err != nil {
			return err
		}
	}
	return nil
}
