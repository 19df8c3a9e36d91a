// SPDX-License-Identifier: MPL-2.0

package render

import (
	"bufio"
	"encoding/xml"
	"io"
	"strconv"

	"github.com/keinus/make-sps/pkg/docmodel"
)

// HWPML namespaces used by a section body.
const (
	nsSection   = "http://www.hancom.co.kr/hwpml/2011/section"
	nsParagraph = "http://www.hancom.co.kr/hwpml/2011/paragraph"
	nsCore      = "http://www.hancom.co.kr/hwpml/2011/core"
)

// Template geometry in HWPUNIT.
const (
	hwpxLineWidth    = 43936
	hwpxTableHeight  = 57300
	hwpxCellHeight   = 2275
	hwpxCellInset    = 992
	hwpxCaptionWidth = 8504
	hwpxCaptionGap   = 850
	hwpxCaptionLine  = 43532
	hwpxLocationLine = 42572
	hwpxHeaderLine   = 3516
)

// Lineseg flags of the template paragraphs.
const (
	flagsHeading = "2490368"
	flagsText    = "393216"
	flagsCell    = "1441792"
)

// HWPX renders the section XML (Contents/section0.xml) of an HWPX document.
// Style, paragraph-shape and border-fill ids refer to the report template's
// header.xml, so the output is meant to replace the template's section body.
type HWPX struct{}

// Name implements Renderer.
func (*HWPX) Name() string { return string(FormatHWPX) }

// Extension implements Renderer.
func (*HWPX) Extension() string { return "xml" }

// Render implements Renderer.
func (*HWPX) Render(w io.Writer, doc *docmodel.Document) error {
	x := &xmlWriter{w: bufio.NewWriter(w)}
	x.raw(`<?xml version="1.0" encoding="UTF-8" standalone="yes" ?>`)
	x.start("hs:sec", "xmlns:hs", nsSection, "xmlns:hp", nsParagraph, "xmlns:hc", nsCore)

	tableID := 0
	for _, n := range doc.Nodes() {
		switch n := n.(type) {
		case *docmodel.Heading:
			x.heading(n)
		case *docmodel.Paragraph:
			if n.Text == "" {
				x.emptyParagraph()
			} else {
				x.textParagraph(n.Text)
			}
		case *docmodel.Table:
			tableID++
			x.emptyParagraph()
			x.table(n, tableID)
		}
	}

	x.end("hs:sec")
	return x.flush()
}

func (x *xmlWriter) paragraphStart(paraPr, style string) {
	x.start("hp:p", "id", "0", "paraPrIDRef", paraPr, "styleIDRef", style,
		"pageBreak", "0", "columnBreak", "0", "merged", "0")
}

func (x *xmlWriter) lineseg(vert, text, base, spacing, horz int, flags string) {
	x.start("hp:linesegarray")
	x.empty("hp:lineseg",
		"textpos", "0", "vertpos", "0",
		"vertsize", strconv.Itoa(vert), "textheight", strconv.Itoa(text),
		"baseline", strconv.Itoa(base), "spacing", strconv.Itoa(spacing),
		"horzpos", "0", "horzsize", strconv.Itoa(horz), "flags", flags)
	x.end("hp:linesegarray")
}

// bodyLineseg is the 11pt line used by headings and body text.
func (x *xmlWriter) bodyLineseg(horz int, flags string) {
	x.lineseg(1100, 1100, 935, 660, horz, flags)
}

// cellLineseg is the 10pt line used inside table cells.
func (x *xmlWriter) cellLineseg(horz int, flags string) {
	x.lineseg(1000, 1000, 850, 500, horz, flags)
}

func (x *xmlWriter) run(charPr, text string) {
	x.start("hp:run", "charPrIDRef", charPr)
	x.element("hp:t", text)
	x.end("hp:run")
}

func (x *xmlWriter) heading(h *docmodel.Heading) {
	x.paragraphStart(strconv.Itoa(11+2*h.Level), "1")
	x.run("2", h.Text)
	x.bodyLineseg(hwpxLineWidth, flagsHeading)
	x.end("hp:p")
}

func (x *xmlWriter) textParagraph(text string) {
	x.paragraphStart("13", "2")
	x.run("3", text)
	x.bodyLineseg(hwpxLineWidth, flagsText)
	x.end("hp:p")
}

func (x *xmlWriter) emptyParagraph() {
	x.paragraphStart("13", "2")
	x.empty("hp:run", "charPrIDRef", "3")
	x.bodyLineseg(hwpxLineWidth, flagsText)
	x.end("hp:p")
}

func (x *xmlWriter) subListStart(vertAlign string) {
	x.start("hp:subList", "id", "", "textDirection", "HORIZONTAL", "lineWrap", "BREAK",
		"vertAlign", vertAlign, "linkListIDRef", "0", "linkListNextIDRef", "0",
		"textWidth", "0", "textHeight", "0", "hasTextRef", "0", "hasNumRef", "0")
}

func (x *xmlWriter) table(t *docmodel.Table, id int) {
	cols := len(t.Columns)

	x.paragraphStart("6", "0")
	x.start("hp:run", "charPrIDRef", "36")
	x.start("hp:tbl", "id", strconv.Itoa(id), "zOrder", "0", "numberingType", "TABLE",
		"textWrap", "TOP_AND_BOTTOM", "textFlow", "BOTH_SIDES", "lock", "0",
		"dropcapstyle", "None", "pageBreak", "CELL", "repeatHeader", "1",
		"rowCnt", strconv.Itoa(len(t.Rows)), "colCnt", strconv.Itoa(cols),
		"cellSpacing", "0", "borderFillIDRef", "5", "noAdjust", "0")
	x.empty("hp:sz", "width", strconv.Itoa(docmodel.TableWidth), "widthRelTo", "ABSOLUTE",
		"height", strconv.Itoa(hwpxTableHeight), "heightRelTo", "ABSOLUTE", "protect", "0")
	x.empty("hp:pos", "treatAsChar", "0", "affectLSpacing", "0", "flowWithText", "1",
		"allowOverlap", "0", "holdAnchorAndSO", "0", "vertRelTo", "PARA", "horzRelTo", "COLUMN",
		"vertAlign", "TOP", "horzAlign", "LEFT", "vertOffset", "0", "horzOffset", "0")
	x.empty("hp:outMargin", "left", "283", "right", "283", "top", "283", "bottom", "283")
	x.caption(t.Caption)
	x.empty("hp:inMargin", "left", "481", "right", "481", "top", "0", "bottom", "0")

	for r, row := range t.Rows {
		x.start("hp:tr")
		switch row.Kind {
		case docmodel.RowHeader:
			for c, cell := range row.Cells {
				x.headerCell(cell, t.Columns[c].Width, c)
			}
		case docmodel.RowLocation:
			x.locationCell(row.Cells[0], r, cols)
		default:
			for c, cell := range row.Cells {
				x.dataCell(cell, t.Columns[c].Width, c, r, c == cols-1)
			}
		}
		x.end("hp:tr")
	}

	x.end("hp:tbl")
	x.element("hp:t", "")
	x.end("hp:run")
	x.bodyLineseg(0, flagsText)
	x.end("hp:p")
}

func (x *xmlWriter) caption(c docmodel.Caption) {
	x.start("hp:caption", "side", "TOP", "fullSz", "0", "width", strconv.Itoa(hwpxCaptionWidth),
		"gap", strconv.Itoa(hwpxCaptionGap), "lastWidth", strconv.Itoa(docmodel.TableWidth))
	x.subListStart("TOP")
	x.paragraphStart("1", "3")
	x.start("hp:run", "charPrIDRef", "2")
	x.element("hp:t", c.Prefix+" ")
	x.start("hp:ctrl")
	x.start("hp:autoNum", "num", strconv.Itoa(c.Number), "numType", "TABLE")
	x.empty("hp:autoNumFormat", "type", "DIGIT", "userChar", "", "prefixChar", "",
		"suffixChar", "", "supscript", "0")
	x.end("hp:autoNum")
	x.end("hp:ctrl")
	x.element("hp:t", " "+c.Text)
	x.end("hp:run")
	x.bodyLineseg(hwpxCaptionLine, flagsText)
	x.end("hp:p")
	x.end("hp:subList")
	x.end("hp:caption")
}

func (x *xmlWriter) cellTail(col, row, colSpan, width int, margin [4]int) {
	x.empty("hp:cellAddr", "colAddr", strconv.Itoa(col), "rowAddr", strconv.Itoa(row))
	x.empty("hp:cellSpan", "colSpan", strconv.Itoa(colSpan), "rowSpan", "1")
	x.empty("hp:cellSz", "width", strconv.Itoa(width), "height", strconv.Itoa(hwpxCellHeight))
	x.empty("hp:cellMargin", "left", strconv.Itoa(margin[0]), "right", strconv.Itoa(margin[1]),
		"top", strconv.Itoa(margin[2]), "bottom", strconv.Itoa(margin[3]))
}

func (x *xmlWriter) tcStart(header, hasMargin bool, border docmodel.BorderFill) {
	x.start("hp:tc", "name", "", "header", boolAttr(header), "hasMargin", boolAttr(hasMargin),
		"protect", "0", "editable", "0", "dirty", "0", "borderFillIDRef", strconv.Itoa(int(border)))
}

func (x *xmlWriter) headerCell(cell docmodel.Cell, width, col int) {
	x.tcStart(col == 0, true, cell.Border)
	x.subListStart("CENTER")
	x.paragraphStart("20", "4")
	x.run("1", cell.Text)
	x.cellLineseg(hwpxHeaderLine, flagsText)
	x.end("hp:p")
	x.end("hp:subList")
	x.cellTail(col, 0, 1, width, [4]int{481, 481, 0, 0})
	x.end("hp:tc")
}

func (x *xmlWriter) locationCell(cell docmodel.Cell, row, cols int) {
	x.tcStart(false, false, cell.Border)
	x.subListStart("CENTER")
	x.paragraphStart("4", "6")
	x.run("0", cell.Text)
	x.cellLineseg(hwpxLocationLine, flagsCell)
	x.end("hp:p")
	x.end("hp:subList")
	x.cellTail(0, row, cols, docmodel.TableWidth, [4]int{510, 510, 141, 141})
	x.end("hp:tc")
}

func (x *xmlWriter) dataCell(cell docmodel.Cell, width, col, row int, last bool) {
	x.tcStart(false, false, cell.Border)
	x.subListStart("CENTER")
	if last {
		x.paragraphStart("4", "6")
	} else {
		x.paragraphStart("6", "5")
	}
	x.run("0", cell.Text)
	x.cellLineseg(width-hwpxCellInset, flagsCell)
	x.end("hp:p")
	x.end("hp:subList")
	x.cellTail(col, row, 1, width, [4]int{})
	x.end("hp:tc")
}

func boolAttr(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// xmlWriter emits prefixed HWPML elements. encoding/xml's encoder rewrites
// namespace prefixes, so elements are written directly and only text is
// escaped through it. The first write error sticks.
type xmlWriter struct {
	w   *bufio.Writer
	err error
}

func (x *xmlWriter) raw(s string) {
	if x.err == nil {
		_, x.err = x.w.WriteString(s)
	}
}

func (x *xmlWriter) escaped(s string) {
	if x.err == nil {
		x.err = xml.EscapeText(x.w, []byte(s))
	}
}

func (x *xmlWriter) open(name string, attrs []string) {
	x.raw("<" + name)
	for i := 0; i+1 < len(attrs); i += 2 {
		x.raw(" " + attrs[i] + `="`)
		x.escaped(attrs[i+1])
		x.raw(`"`)
	}
}

func (x *xmlWriter) start(name string, attrs ...string) {
	x.open(name, attrs)
	x.raw(">")
}

func (x *xmlWriter) empty(name string, attrs ...string) {
	x.open(name, attrs)
	x.raw("/>")
}

func (x *xmlWriter) end(name string) {
	x.raw("</" + name + ">")
}

func (x *xmlWriter) element(name, text string) {
	if text == "" {
		x.empty(name)
		return
	}
	x.start(name)
	x.escaped(text)
	x.end(name)
}

func (x *xmlWriter) flush() error {
	if x.err != nil {
		return x.err
	}
	return x.w.Flush()
}
