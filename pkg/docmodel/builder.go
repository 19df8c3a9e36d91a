// SPDX-License-Identifier: MPL-2.0

package docmodel

import (
	"fmt"

	"github.com/keinus/make-sps/pkg/inventory"
	"github.com/keinus/make-sps/pkg/record"
)

// Fixed document text.
const (
	CaptionPrefix = "표"

	HeadingExecution = "실행파일"
	HeadingSource    = "원시 파일"
	HeadingOther     = "기타 파일"
	HeadingPackaging = "패키징 요구사항"

	CaptionExecution = "실행파일 목록"
	CaptionProject   = "프로젝트 파일 목록"
	CaptionSource    = "원본(소스) 파일 목록"
	CaptionOther     = "기타 파일 목록"

	LocationPrefix = "저장위치: "

	PackagingText = " SW 산출물 명세서 3.1항의 “실행파일”과 3.2항의 “원본파일”은 CD에 탑재되어 납품된다."
)

// Options carries the document-level labels.
type Options struct {
	// Device names the delivered device in headings and summaries.
	Device string
	// CSU is the heading used for a source section whose records carry no
	// CSU name.
	CSU string
}

// builder accumulates nodes and the running table number.
type builder struct {
	nodes    []Node
	tableNum int
}

// Build lays out inv as a report document. The result depends only on inv
// and opts, so building twice from the same inventory yields equal trees.
func Build(inv *inventory.Inventory, opts Options) *Document {
	b := &builder{}
	if inv == nil {
		inv = inventory.Build(nil)
	}

	b.heading(HeadingExecution, 2)
	b.heading(opts.Device, 3)
	b.paragraph(fmt.Sprintf("  ○ %s의 실행파일 총 수 : %d", opts.Device, inv.Execution.Len()))
	b.table(ExecutionSchema, CaptionExecution, inv.Execution.Records)
	b.spacer()

	b.heading(HeadingSource, 2)
	b.heading(opts.Device, 3)
	b.paragraph(fmt.Sprintf("  ○ %s의 원시파일 총 수 : %d", opts.Device, inv.SourceTotal()))
	b.table(SourceSchema, CaptionProject, inv.Project.Records)
	b.spacer()

	for _, s := range inv.Sources {
		if s.Len() == 0 {
			continue
		}
		csu := s.CSU
		if csu == "" {
			csu = opts.CSU
		}
		b.heading(csu, 4)
		b.paragraph(fmt.Sprintf("  ○ %s의 원본파일 총 수 : %d", csu, s.Len()))
		b.table(SourceSchema, CaptionSource, s.Records)
		b.spacer()
	}

	b.heading(HeadingOther, 2)
	b.paragraph(fmt.Sprintf("  ○ %s의 기타파일 총 수 : %d", opts.Device, inv.Other.Len()))
	b.table(OtherSchema, CaptionOther, inv.Other.Records)
	b.spacer()

	b.heading(HeadingPackaging, 2)
	b.paragraph(PackagingText)
	b.spacer()

	return &Document{nodes: b.nodes}
}

func (b *builder) heading(text string, level int) {
	b.nodes = append(b.nodes, &Heading{Text: text, Level: level})
}

func (b *builder) paragraph(text string) {
	b.nodes = append(b.nodes, &Paragraph{Text: text})
}

// spacer emits the two blank paragraphs that close every block.
func (b *builder) spacer() {
	b.paragraph("")
	b.paragraph("")
}

func (b *builder) table(schema Schema, caption string, records []record.FileRecord) {
	b.tableNum++
	b.nodes = append(b.nodes, NewTable(schema, Caption{
		Prefix: CaptionPrefix,
		Number: b.tableNum,
		Text:   caption,
	}, records))
}

// NewTable builds one table: the header row, then the records in the given
// order with a storage-location row before each change of directory.
func NewTable(schema Schema, caption Caption, records []record.FileRecord) *Table {
	t := &Table{
		Caption: caption,
		Columns: schema.columns(),
		Rows:    make([]Row, 0, len(records)+2),
	}
	n := len(t.Columns)

	header := Row{Kind: RowHeader, Cells: make([]Cell, n)}
	for i, c := range t.Columns {
		header.Cells[i] = Cell{
			Text:   c.Title,
			Span:   1,
			Border: headerBorder(i, n),
			Align:  AlignCenter,
		}
	}
	t.Rows = append(t.Rows, header)

	var dir string
	for i, rec := range records {
		if i == 0 || rec.Dir != dir {
			dir = rec.Dir
			t.Rows = append(t.Rows, Row{
				Kind: RowLocation,
				Cells: []Cell{{
					Text:   LocationPrefix + dir,
					Span:   n,
					Border: BorderLocation,
					Align:  AlignLeft,
				}},
			})
		}

		final := i == len(records)-1
		values := schema.Values(rec)
		row := Row{Kind: RowData, Cells: make([]Cell, n)}
		for col, text := range values {
			row.Cells[col] = Cell{
				Text:   text,
				Span:   1,
				Border: dataBorder(col, n, final),
				Align:  alignOf(col, n),
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func headerBorder(col, n int) BorderFill {
	switch {
	case col == 0:
		return BorderHeaderFirst
	case col == n-1:
		return BorderHeaderLast
	default:
		return BorderHeaderMiddle
	}
}

func dataBorder(col, n int, final bool) BorderFill {
	switch {
	case col == 0 && final:
		return BorderFinalFirst
	case col == 0:
		return BorderDataFirst
	case col == n-1 && final:
		return BorderFinalLast
	case col == n-1:
		return BorderDataLast
	case final:
		return BorderFinalMiddle
	default:
		return BorderDataMiddle
	}
}

// alignOf left-aligns the trailing description column.
func alignOf(col, n int) Align {
	if col == n-1 {
		return AlignLeft
	}
	return AlignCenter
}
