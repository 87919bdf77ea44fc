package ui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// TableColumn is a column of RenderSimpleTable. Width 0 fits the column to
// its title and cells.
type TableColumn struct {
	Title string
	Width int
}

var tableStyles = func() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.Bold(true).Foreground(ColorPrimary).
		BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(ColorMuted)
	s.Cell = s.Cell.Foreground(ColorPrimary)
	// The cursor row is styled even when the table is not focused.
	s.Selected = lipgloss.NewStyle()
	return s
}()

func fitColumns(columns []TableColumn, rows []table.Row) []table.Column {
	out := make([]table.Column, 0, len(columns))
	for i, c := range columns {
		width := c.Width
		if width == 0 {
			width = lipgloss.Width(c.Title)
			for _, r := range rows {
				if i < len(r) {
					width = max(width, lipgloss.Width(r[i]))
				}
			}
		}
		out = append(out, table.Column{Title: c.Title, Width: width})
	}
	return out
}

// RenderSimpleTable renders rows of plain-text cells as a static table, or
// "" when there are no rows. Cells wider than their column are truncated.
func RenderSimpleTable(columns []TableColumn, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	body := make([]table.Row, 0, len(rows))
	for _, r := range rows {
		body = append(body, r)
	}
	t := table.New(
		table.WithColumns(fitColumns(columns, body)),
		table.WithRows(body),
		table.WithHeight(len(body)+1),
		table.WithStyles(tableStyles),
	)
	return t.View()
}
