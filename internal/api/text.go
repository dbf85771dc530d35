package api

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	headerStyle = lipgloss.NewStyle().
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39")).
			Padding(0, 1)
)

// Title renders s as a section heading.
func Title(s string) string { return titleStyle.Render(s) }

// Dim renders s as muted metadata.
func Dim(s string) string { return dimStyle.Render(s) }

// Success renders s in the success color.
func Success(s string) string { return successStyle.Render(s) }

// Warn renders s in the warning color.
func Warn(s string) string { return warnStyle.Render(s) }

// Error renders s in the error color.
func Error(s string) string { return errorStyle.Render(s) }

// Box draws content inside a rounded border.
func Box(content string) string { return boxStyle.Render(content) }

// Field is one label/value line of a summary box.
type Field struct {
	Label string
	Value string
}

// RenderFields writes a boxed summary with aligned labels.
func RenderFields(w io.Writer, title string, fields []Field) {
	width := 0
	for _, f := range fields {
		if n := lipgloss.Width(f.Label); n > width {
			width = n
		}
	}

	lines := make([]string, 0, len(fields)+1)
	if title != "" {
		lines = append(lines, Title(title))
	}
	for _, f := range fields {
		label := f.Label + ":" + strings.Repeat(" ", width-lipgloss.Width(f.Label))
		lines = append(lines, Dim(label)+" "+f.Value)
	}
	fmt.Fprintln(w, Box(strings.Join(lines, "\n")))
}

// Table is a simple column-aligned table.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	Empty   string // shown instead of the table when there are no rows
}

// Render writes the table. Cells may already carry styles; widths are
// measured on the visible text.
func (t Table) Render(w io.Writer) {
	if t.Title != "" {
		fmt.Fprintln(w, Title(t.Title))
	}
	if len(t.Rows) == 0 {
		if t.Empty != "" {
			fmt.Fprintln(w, Dim(t.Empty))
		}
		return
	}

	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if n := lipgloss.Width(row[i]); n > widths[i] {
				widths[i] = n
			}
		}
	}

	line := func(cells []string, style *lipgloss.Style) string {
		parts := make([]string, len(widths))
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			if style != nil {
				cell = style.Render(cell)
			}
			parts[i] = cell + strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	fmt.Fprintln(w, line(t.Headers, &headerStyle))
	for _, row := range t.Rows {
		fmt.Fprintln(w, line(row, nil))
	}
}

// FormatNumber adds thousands separators.
func FormatNumber(n int) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
