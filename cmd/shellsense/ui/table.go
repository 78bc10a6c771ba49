package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Table renders rows of pre-formatted cells under a header line.
// Cells may already carry styling; widths are measured with lipgloss.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// NewTable creates a table with the given title and headers.
func NewTable(title string, headers ...string) *Table {
	return &Table{
		Title:   title,
		Headers: headers,
	}
}

// AddRow adds a row. Missing cells render empty, extra cells are dropped.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// View renders the table, or an empty string when it has no rows.
func (t *Table) View(styles Styles) string {
	if len(t.Rows) == 0 {
		return ""
	}

	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i := range min(len(row), len(widths)) {
			widths[i] = max(widths[i], lipgloss.Width(row[i]))
		}
	}

	cell := lipgloss.NewStyle().Padding(0, 1)
	sep := styles.Muted.Render("│")

	line := func(cells []string, style lipgloss.Style) string {
		parts := make([]string, len(widths))
		for i, w := range widths {
			var c string
			if i < len(cells) {
				c = cells[i]
			}
			// padding adds 2 columns
			parts[i] = cell.Width(w + 2).Render(style.Render(c))
		}
		return strings.Join(parts, sep)
	}

	var sb strings.Builder
	if t.Title != "" {
		sb.WriteString(styles.Title.Render(t.Title))
		sb.WriteString("\n")
	}
	sb.WriteString(line(t.Headers, styles.Bold))
	sb.WriteString("\n")

	total := len(widths) - 1
	for _, w := range widths {
		total += w + 2
	}
	sb.WriteString(styles.RenderDivider(total))
	sb.WriteString("\n")

	for _, row := range t.Rows {
		sb.WriteString(line(row, lipgloss.NewStyle()))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
