package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Edit replaces source[Start:End] with Text
type Edit struct {
	Start uint32
	End   uint32
	Text  string
}

// ApplyEdits returns source with every edit applied. Edits must not overlap.
func ApplyEdits(source []byte, edits []Edit) ([]byte, error) {
	if len(edits) == 0 {
		return source, nil
	}

	sorted := append([]Edit(nil), edits...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var b strings.Builder
	b.Grow(len(source))
	var pos uint32
	for _, e := range sorted {
		if e.Start < pos || e.End < e.Start || int(e.End) > len(source) {
			return nil, fmt.Errorf("invalid edit [%d,%d) at offset %d of %d bytes", e.Start, e.End, pos, len(source))
		}
		b.Write(source[pos:e.Start])
		b.WriteString(e.Text)
		pos = e.End
	}
	b.Write(source[pos:])
	return []byte(b.String()), nil
}

// UnifiedDiff renders the change of path as a unified diff, empty when
// nothing changed.
func UnifiedDiff(path, original, modified string) string {
	if original == modified {
		return ""
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(original),
		B:        difflib.SplitLines(modified),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  3,
	}

	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return fmt.Sprintf("--- a/%s\n+++ b/%s\n@@ changes @@\n%d bytes -> %d bytes\n",
			path, path, len(original), len(modified))
	}
	return text
}
