package style

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestStyleVariables(t *testing.T) {
	tests := []struct {
		name   string
		render func(...string) string
	}{
		{"Success", Success.Render},
		{"Warning", Warning.Render},
		{"Error", Error.Render},
		{"Info", Info.Render},
		{"Dim", Dim.Render},
		{"Bold", Bold.Render},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := tt.render("test"); !strings.Contains(result, "test") {
				t.Errorf("%s.Render() = %q, want it to contain the text", tt.name, result)
			}
		})
	}
}

func TestRenderWithoutColor(t *testing.T) {
	if got := Render(false, Error, "#DIV/0!"); got != "#DIV/0!" {
		t.Errorf("Render(false) = %q, want plain text", got)
	}
}

func TestPrintWarning(t *testing.T) {
	var buf bytes.Buffer
	PrintWarning(&buf, "cell %s skipped", "total")

	// a buffer is never a terminal, so the output is plain
	if got, want := buf.String(), "warning: cell total skipped\n"; got != want {
		t.Errorf("PrintWarning() = %q, want %q", got, want)
	}
}

func TestIsTerminal(t *testing.T) {
	if IsTerminal(&bytes.Buffer{}) {
		t.Error("a buffer should not be a terminal")
	}
}

func TestTableRender(t *testing.T) {
	table := NewTable(
		Column{Name: "CELL"},
		Column{Name: "CONTENT", MaxWidth: 8},
		Column{Name: "VALUE"},
	).SetColor(false).SetIndent("")

	table.AddRow("A1", "5", "5")
	table.AddRow("B10", "=A1*2+A1*3", "25")
	table.AddStyledRow([]*lipgloss.Style{nil, nil, &Error}, "C1", "=1/0", "#DIV/0!")
	table.AddRow("D1")

	if table.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", table.Len())
	}

	want := strings.Join([]string{
		"CELL CONTENT  VALUE  ",
		"─────────────────────",
		"A1   5        5      ",
		"B10  =A1*2... 25     ",
		"C1   =1/0     #DIV/0!",
		"D1                   ",
		"",
	}, "\n")
	if got := table.Render(); got != want {
		t.Errorf("Render() =\n%s\nwant\n%s", got, want)
	}
}

func TestTableWithoutSeparator(t *testing.T) {
	table := NewTable(Column{Name: "CELL", Width: 6}).
		SetColor(false).
		SetHeaderSeparator(false)
	table.AddRow("A1")

	want := "  CELL  \n  A1    \n"
	if got := table.Render(); got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestTableNoColumns(t *testing.T) {
	if got := NewTable().Render(); got != "" {
		t.Errorf("Render() = %q, want empty", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"formula text", 8, "formu..."},
		{"abcdef", 3, "abc"},
	}

	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
