package style

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Column defines a table column. a zero Width sizes the column to its
// widest value.
type Column struct {
	Name     string
	Width    int
	MaxWidth int
	Style    lipgloss.Style
}

// Table provides styled table rendering.
type Table struct {
	columns   []Column
	rows      [][]string
	styles    [][]*lipgloss.Style
	headerSep bool
	indent    string
	color     bool
}

// NewTable creates a new table with the given columns.
func NewTable(columns ...Column) *Table {
	return &Table{
		columns:   columns,
		headerSep: true,
		indent:    "  ",
		color:     true,
	}
}

// SetIndent sets the left indent for the table.
func (t *Table) SetIndent(indent string) *Table {
	t.indent = indent
	return t
}

// SetColor enables or disables styling, e.g. when output is not a terminal.
func (t *Table) SetColor(enabled bool) *Table {
	t.color = enabled
	return t
}

// SetHeaderSeparator enables/disables the header separator line.
func (t *Table) SetHeaderSeparator(enabled bool) *Table {
	t.headerSep = enabled
	return t
}

// AddRow adds a row of values to the table.
func (t *Table) AddRow(values ...string) *Table {
	return t.AddStyledRow(nil, values...)
}

// AddStyledRow adds a row whose cells use the given styles instead of the
// column styles. a nil entry keeps the column style.
func (t *Table) AddStyledRow(styles []*lipgloss.Style, values ...string) *Table {
	// Pad with empty strings if needed
	for len(values) < len(t.columns) {
		values = append(values, "")
	}
	t.rows = append(t.rows, values)
	t.styles = append(t.styles, styles)
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Render returns the formatted table string.
func (t *Table) Render() string {
	if len(t.columns) == 0 {
		return ""
	}

	widths := t.widths()
	var sb strings.Builder

	// Render header
	sb.WriteString(t.indent)
	for i, col := range t.columns {
		text := Render(t.color, Bold, col.Name)
		sb.WriteString(pad(text, lipgloss.Width(col.Name), widths[i]))
		if i < len(t.columns)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("\n")

	// Render separator
	if t.headerSep {
		sb.WriteString(t.indent)
		totalWidth := len(t.columns) - 1
		for _, w := range widths {
			totalWidth += w
		}
		sb.WriteString(Render(t.color, Dim, strings.Repeat("─", totalWidth)))
		sb.WriteString("\n")
	}

	// Render rows
	for r, row := range t.rows {
		sb.WriteString(t.indent)
		for i, col := range t.columns {
			val := truncate(row[i], widths[i])
			plainWidth := lipgloss.Width(val)

			st := col.Style
			if i < len(t.styles[r]) && t.styles[r][i] != nil {
				st = *t.styles[r][i]
			}
			val = Render(t.color, st, val)

			sb.WriteString(pad(val, plainWidth, widths[i]))
			if i < len(t.columns)-1 {
				sb.WriteString(" ")
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func (t *Table) widths() []int {
	widths := make([]int, len(t.columns))
	for i, col := range t.columns {
		if col.Width > 0 {
			widths[i] = col.Width
			continue
		}
		widths[i] = lipgloss.Width(col.Name)
		for _, row := range t.rows {
			widths[i] = max(widths[i], lipgloss.Width(row[i]))
		}
		if col.MaxWidth > 0 {
			widths[i] = min(widths[i], col.MaxWidth)
		}
	}
	return widths
}

// truncate shortens plain text to width, marking the cut with "..."
func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}

// pad pads text to width. styledText may carry ANSI codes, plainWidth is the
// width without them.
func pad(styledText string, plainWidth, width int) string {
	if plainWidth >= width {
		return styledText
	}
	return styledText + strings.Repeat(" ", width-plainWidth)
}
