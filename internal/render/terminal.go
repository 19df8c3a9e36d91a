// SPDX-License-Identifier: MPL-2.0

package render

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/keinus/make-sps/pkg/docmodel"
)

// Terminal palette, matching the CLI styles.
const (
	colorPrimary   = lipgloss.Color("#7C3AED")
	colorMuted     = lipgloss.Color("#6B7280")
	colorHighlight = lipgloss.Color("#3B82F6")
)

// Terminal renders the document as lipgloss tables. Each storage location
// starts a new table under its own location line.
type Terminal struct {
	NoColor bool
}

type terminalStyles struct {
	heading  lipgloss.Style
	text     lipgloss.Style
	caption  lipgloss.Style
	location lipgloss.Style
	header   lipgloss.Style
	cell     lipgloss.Style
	border   lipgloss.Style
}

// Name implements Renderer.
func (*Terminal) Name() string { return string(FormatTerminal) }

// Extension implements Renderer.
func (*Terminal) Extension() string { return "txt" }

// Render implements Renderer.
func (t *Terminal) Render(w io.Writer, doc *docmodel.Document) error {
	st := t.styles(lipgloss.NewRenderer(w))

	var sb strings.Builder
	for _, n := range doc.Nodes() {
		switch n := n.(type) {
		case *docmodel.Heading:
			indent := strings.Repeat("  ", max(n.Level-2, 0))
			sb.WriteString(indent + st.heading.Render(n.Text) + "\n")
		case *docmodel.Paragraph:
			if n.Text != "" {
				sb.WriteString(st.text.Render(n.Text) + "\n")
			}
		case *docmodel.Table:
			sb.WriteString("\n" + st.caption.Render(n.Caption.String()) + "\n")
			for _, g := range groupRows(n) {
				if g.location != "" {
					sb.WriteString(st.location.Render(g.location) + "\n")
				}
				sb.WriteString(renderTermTable(st, n, g.rows) + "\n")
			}
			sb.WriteString("\n")
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func (t *Terminal) styles(r *lipgloss.Renderer) terminalStyles {
	if t.NoColor {
		plain := r.NewStyle()
		return terminalStyles{
			heading: plain, text: plain, caption: plain, location: plain,
			header: plain.Padding(0, 1), cell: plain.Padding(0, 1), border: plain,
		}
	}
	return terminalStyles{
		heading:  r.NewStyle().Bold(true).Foreground(colorPrimary),
		text:     r.NewStyle(),
		caption:  r.NewStyle().Bold(true),
		location: r.NewStyle().Foreground(colorHighlight),
		header:   r.NewStyle().Bold(true).Foreground(colorPrimary).Padding(0, 1).Align(lipgloss.Center),
		cell:     r.NewStyle().Padding(0, 1),
		border:   r.NewStyle().Foreground(colorMuted),
	}
}

type rowGroup struct {
	location string
	rows     [][]string
}

// groupRows splits a table body at its location rows. A table without data
// yields one empty group so the header is still shown.
func groupRows(t *docmodel.Table) []rowGroup {
	var groups []rowGroup
	for _, row := range t.Body() {
		if row.Kind == docmodel.RowLocation {
			groups = append(groups, rowGroup{location: row.Cells[0].Text})
			continue
		}
		if len(groups) == 0 {
			groups = append(groups, rowGroup{})
		}
		cells := make([]string, len(row.Cells))
		for i, c := range row.Cells {
			cells[i] = c.Text
		}
		last := &groups[len(groups)-1]
		last.rows = append(last.rows, cells)
	}
	if len(groups) == 0 {
		groups = append(groups, rowGroup{})
	}
	return groups
}

func renderTermTable(st terminalStyles, t *docmodel.Table, rows [][]string) string {
	headers := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		headers[i] = c.Title
	}
	lastCol := len(headers) - 1

	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(st.border).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return st.header
			}
			if col == lastCol {
				return st.cell.Align(lipgloss.Left)
			}
			return st.cell.Align(lipgloss.Center)
		})
	return tbl.String()
}
