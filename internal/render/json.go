// SPDX-License-Identifier: MPL-2.0

package render

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/keinus/make-sps/pkg/docmodel"
)

type (
	// JSON renders the document tree with a type tag on every node.
	JSON struct {
		Indent string
	}

	jsonDocument struct {
		Nodes []jsonNode `json:"nodes"`
	}

	jsonNode struct {
		Type    docmodel.NodeKind `json:"type"`
		Text    string            `json:"text,omitempty"`
		Level   int               `json:"level,omitempty"`
		Caption *docmodel.Caption `json:"caption,omitempty"`
		Columns []docmodel.Column `json:"columns,omitempty"`
		Rows    []docmodel.Row    `json:"rows,omitempty"`
	}
)

// Name implements Renderer.
func (*JSON) Name() string { return string(FormatJSON) }

// Extension implements Renderer.
func (*JSON) Extension() string { return "json" }

// Render implements Renderer.
func (j *JSON) Render(w io.Writer, doc *docmodel.Document) error {
	out := jsonDocument{Nodes: make([]jsonNode, 0, doc.Len())}
	for _, n := range doc.Nodes() {
		jn := jsonNode{Type: n.Kind()}
		switch n := n.(type) {
		case *docmodel.Heading:
			jn.Text, jn.Level = n.Text, n.Level
		case *docmodel.Paragraph:
			jn.Text = n.Text
		case *docmodel.Table:
			c := n.Caption
			jn.Caption, jn.Columns, jn.Rows = &c, n.Columns, n.Rows
		}
		out.Nodes = append(out.Nodes, jn)
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if j.Indent != "" {
		enc.SetIndent("", j.Indent)
	}
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	return nil
}
