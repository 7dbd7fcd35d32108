package interchange

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Diff returns a line diff between the vault's CSV export and another CSV
// file, or "" when they are identical. A leading BOM is ignored on both
// sides. Removed lines are prefixed with "-", added lines with "+".
func Diff(name, vaultCSV, otherCSV string) string {
	vaultCSV = strings.TrimPrefix(vaultCSV, string(BOM))
	otherCSV = strings.TrimPrefix(otherCSV, string(BOM))
	if vaultCSV == otherCSV {
		return ""
	}

	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(vaultCSV, otherCSV)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var out strings.Builder
	fmt.Fprintf(&out, "--- vault/%s\n", name)
	fmt.Fprintf(&out, "+++ file/%s\n", name)
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range splitLines(d.Text) {
			out.WriteString(prefix)
			out.WriteString(line)
			out.WriteString("\n")
		}
	}
	return out.String()
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
