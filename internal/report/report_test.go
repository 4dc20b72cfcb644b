package report

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
)

func TestRender_AlignsColumns(t *testing.T) {
	tbl := &Table{Headers: []string{"Phase", "Count"}}
	tbl.AddRow("downloaded", "12")
	tbl.AddRow("backfilled", "3")

	out := tbl.Render()

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("Expected 4 lines, got %d:\n%s", len(lines), out)
	}

	width := len(lines[0])
	for i, line := range lines {
		if len(line) != width {
			t.Errorf("Line %d width %d differs from header width %d:\n%s", i, len(line), width, out)
		}
	}

	if !strings.Contains(lines[0], "| Phase") || !strings.Contains(lines[0], "Count") {
		t.Errorf("Header row malformed: %s", lines[0])
	}

	if !strings.Contains(lines[1], "---") {
		t.Errorf("Separator row malformed: %s", lines[1])
	}
}

func TestRender_HandlesWideRunes(t *testing.T) {
	tbl := &Table{Headers: []string{"Name", "Value"}}
	tbl.AddRow("機関", "ok")
	tbl.AddRow("agency", "ok")

	out := tbl.Render()

	// 機関 displays as 4 cells despite being 2 runes, so both data rows
	// must reach their second delimiter at the same visual column.
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	delimCol := func(line string) int {
		idx := strings.Index(line[1:], "|")
		if idx < 0 {
			t.Fatalf("No second delimiter in %q", line)
		}
		return runewidth.StringWidth(line[:idx+1])
	}

	if delimCol(lines[2]) != delimCol(lines[3]) {
		t.Errorf("Wide-rune row misaligned:\n%s", out)
	}
}

func TestRender_EmptyTable(t *testing.T) {
	tbl := &Table{}
	if out := tbl.Render(); out != "" {
		t.Errorf("Expected empty output, got %q", out)
	}
}

func TestRender_ShortRowsPadded(t *testing.T) {
	tbl := &Table{Headers: []string{"A", "B", "C"}}
	tbl.AddRow("only")

	out := tbl.Render()

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected 3 lines, got %d", len(lines))
	}

	if strings.Count(lines[2], "|") != 4 {
		t.Errorf("Short row should still have all column delimiters: %s", lines[2])
	}
}
