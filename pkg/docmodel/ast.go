// SPDX-License-Identifier: MPL-2.0

// Package docmodel is the renderer-independent document tree of a delivery
// report: headings, paragraphs and captioned tables with fixed column
// schemas, border fills and storage-location rows.
//
// A Document is built once by Build and is read-only afterwards. Renderers
// walk Nodes() and switch on the concrete node type.
package docmodel

import "strconv"

const (
	// NodeHeading is the kind of *Heading.
	NodeHeading NodeKind = "heading"
	// NodeParagraph is the kind of *Paragraph.
	NodeParagraph NodeKind = "paragraph"
	// NodeTable is the kind of *Table.
	NodeTable NodeKind = "table"
)

const (
	// RowHeader is the column title row.
	RowHeader RowKind = "header"
	// RowData is one record.
	RowData RowKind = "data"
	// RowLocation is a full-width storage-location row.
	RowLocation RowKind = "location"
)

const (
	// AlignCenter centers cell text.
	AlignCenter Align = "center"
	// AlignLeft left-aligns cell text.
	AlignLeft Align = "left"
)

// Border fill ids of the report template. Header, data and final rows use a
// first/middle/last triple; location rows use a single id for the merged cell.
const (
	BorderHeaderFirst  BorderFill = 7
	BorderHeaderMiddle BorderFill = 8
	BorderHeaderLast   BorderFill = 9
	BorderLocation     BorderFill = 10
	BorderFinalMiddle  BorderFill = 11
	BorderDataFirst    BorderFill = 14
	BorderDataMiddle   BorderFill = 5
	BorderDataLast     BorderFill = 15
	BorderFinalFirst   BorderFill = 16
	BorderFinalLast    BorderFill = 17
)

type (
	// NodeKind tags a node's concrete type.
	NodeKind string

	// Node is a top-level document element. The set of implementations is
	// closed: *Heading, *Paragraph and *Table.
	Node interface {
		Kind() NodeKind
		node()
	}

	// Heading is a numbered outline heading. Level starts at 1.
	Heading struct {
		Text  string `json:"text"`
		Level int    `json:"level"`
	}

	// Paragraph is body text. An empty Text is a blank spacer paragraph.
	Paragraph struct {
		Text string `json:"text"`
	}

	// Table is a captioned table. Rows[0] is always the header row.
	Table struct {
		Caption Caption  `json:"caption"`
		Columns []Column `json:"columns"`
		Rows    []Row    `json:"rows"`
	}

	// Caption is an auto-numbered table caption, e.g. "표 3 실행파일 목록".
	Caption struct {
		Prefix string `json:"prefix"`
		Number int    `json:"number"`
		Text   string `json:"text"`
	}

	// Column describes one table column. Width is in HWPUNIT.
	Column struct {
		Key   ColumnKey `json:"key"`
		Title string    `json:"title"`
		Width int       `json:"width"`
	}

	// RowKind distinguishes header, data and location rows.
	RowKind string

	// Row is one table row.
	Row struct {
		Kind  RowKind `json:"kind"`
		Cells []Cell  `json:"cells"`
	}

	// Cell is one table cell. Span is the number of columns it covers.
	Cell struct {
		Text   string     `json:"text"`
		Span   int        `json:"span"`
		Border BorderFill `json:"border"`
		Align  Align      `json:"align"`
	}

	// BorderFill is a template border-fill id.
	BorderFill int

	// Align is horizontal cell alignment.
	Align string

	// Document is an ordered, immutable list of nodes.
	Document struct {
		nodes []Node
	}
)

// Kind implements Node.
func (*Heading) Kind() NodeKind { return NodeHeading }

// Kind implements Node.
func (*Paragraph) Kind() NodeKind { return NodeParagraph }

// Kind implements Node.
func (*Table) Kind() NodeKind { return NodeTable }

func (*Heading) node()   {}
func (*Paragraph) node() {}
func (*Table) node()     {}

// String renders the caption as plain text.
func (c Caption) String() string {
	return c.Prefix + " " + strconv.Itoa(c.Number) + " " + c.Text
}

// Width returns the sum of the column widths.
func (t *Table) Width() int {
	w := 0
	for _, c := range t.Columns {
		w += c.Width
	}
	return w
}

// Header returns the header row.
func (t *Table) Header() Row {
	return t.Rows[0]
}

// Body returns the rows after the header.
func (t *Table) Body() []Row {
	return t.Rows[1:]
}

// DataCount returns the number of record rows.
func (t *Table) DataCount() int {
	n := 0
	for _, r := range t.Rows {
		if r.Kind == RowData {
			n++
		}
	}
	return n
}

// Nodes returns the document's nodes in order. The slice is a copy; the
// nodes themselves must not be modified.
func (d *Document) Nodes() []Node {
	if d == nil {
		return nil
	}
	return append([]Node(nil), d.nodes...)
}

// Tables returns the document's tables in order.
func (d *Document) Tables() []*Table {
	var out []*Table
	for _, n := range d.Nodes() {
		if t, ok := n.(*Table); ok {
			out = append(out, t)
		}
	}
	return out
}

// Len returns the number of top-level nodes.
func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return len(d.nodes)
}
