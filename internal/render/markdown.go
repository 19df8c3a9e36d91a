// SPDX-License-Identifier: MPL-2.0

package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"

	"github.com/keinus/make-sps/pkg/docmodel"
)

// Markdown renders GitHub-flavored markdown. Location rows become a bold
// first cell followed by empty cells.
type Markdown struct {
	// Pretty renders through glamour instead of emitting raw markdown.
	Pretty bool
	Width  int
	// Style names a glamour standard style. Empty or "auto" detects the
	// terminal background.
	Style string
}

// Name implements Renderer.
func (*Markdown) Name() string { return string(FormatMarkdown) }

// Extension implements Renderer.
func (*Markdown) Extension() string { return "md" }

// Render implements Renderer.
func (m *Markdown) Render(w io.Writer, doc *docmodel.Document) error {
	md := MarkdownString(doc)
	if !m.Pretty {
		_, err := io.WriteString(w, md)
		return err
	}

	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if m.Style != "" && m.Style != styles.AutoStyle {
		opts = []glamour.TermRendererOption{glamour.WithStandardStyle(m.Style)}
	}
	if m.Width > 0 {
		opts = append(opts, glamour.WithWordWrap(m.Width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return fmt.Errorf("creating markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("rendering markdown: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}

// MarkdownString returns the raw markdown for doc.
func MarkdownString(doc *docmodel.Document) string {
	var sb strings.Builder
	for _, n := range doc.Nodes() {
		switch n := n.(type) {
		case *docmodel.Heading:
			sb.WriteString(strings.Repeat("#", max(n.Level, 1)))
			sb.WriteByte(' ')
			sb.WriteString(n.Text)
			sb.WriteString("\n\n")
		case *docmodel.Paragraph:
			// Every block already ends with a blank line, so spacers add nothing.
			if n.Text == "" {
				continue
			}
			sb.WriteString(strings.TrimSpace(n.Text))
			sb.WriteString("\n\n")
		case *docmodel.Table:
			writeMarkdownTable(&sb, n)
		}
	}
	return sb.String()
}

func writeMarkdownTable(sb *strings.Builder, t *docmodel.Table) {
	fmt.Fprintf(sb, "**%s**\n\n", escapeCell(t.Caption.String()))

	header := t.Header()
	sb.WriteByte('|')
	for _, c := range header.Cells {
		sb.WriteString(" " + escapeCell(c.Text) + " |")
	}
	sb.WriteString("\n|")
	for i := range header.Cells {
		if i == len(header.Cells)-1 {
			sb.WriteString(" :--- |")
		} else {
			sb.WriteString(" :---: |")
		}
	}
	sb.WriteByte('\n')

	cols := len(t.Columns)
	for _, row := range t.Body() {
		sb.WriteByte('|')
		if row.Kind == docmodel.RowLocation {
			sb.WriteString(" **" + escapeCell(row.Cells[0].Text) + "** |")
			sb.WriteString(strings.Repeat("  |", cols-1))
			sb.WriteByte('\n')
			continue
		}
		for _, c := range row.Cells {
			sb.WriteString(" " + escapeCell(c.Text) + " |")
		}
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')
}

var cellEscaper = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ")

func escapeCell(s string) string {
	return cellEscaper.Replace(s)
}
