// SPDX-License-Identifier: MPL-2.0

package docmodel

import (
	"reflect"
	"strings"
	"testing"

	"github.com/keinus/make-sps/pkg/category"
	"github.com/keinus/make-sps/pkg/inventory"
	"github.com/keinus/make-sps/pkg/record"
)

func sampleRecords() []record.FileRecord {
	mk := func(cat category.Category, csu, dir, name string) record.FileRecord {
		r := record.FileRecord{
			Device: "RDR", CSU: csu, Category: cat, Dir: dir, Name: name,
			Version: "1.0", Size: 10, Checksum: "abc", Date: "2024-01-02",
			Description: "desc " + name,
		}
		if cat == category.Execution {
			r.PartNumber = "PN-"
		}
		return r
	}
	return []record.FileRecord{
		mk(category.Execution, "core", "/bin", "a.exe"),
		mk(category.Execution, "core", "/bin", "b.exe"),
		mk(category.Configuration, "core", "/etc", "app.ini"),
		mk(category.Project, "core", "/", "app.sln"),
		mk(category.Source, "core", "/src", "main.go"),
		mk(category.Source, "core", "/src/util", "util.go"),
		mk(category.Image, "ui", "/img", "logo.png"),
		mk(category.Unclassified, "core", "/", "LICENSE"),
	}
}

func build() *Document {
	return Build(inventory.Build(sampleRecords()), Options{Device: "RDR", CSU: "main"})
}

func TestBuild_Outline(t *testing.T) {
	t.Parallel()

	var got []string
	for _, n := range build().Nodes() {
		switch n := n.(type) {
		case *Heading:
			got = append(got, "H"+string(rune('0'+n.Level))+" "+n.Text)
		case *Paragraph:
			if n.Text != "" {
				got = append(got, "P "+n.Text)
			}
		case *Table:
			got = append(got, "T "+n.Caption.String())
		}
	}

	want := []string{
		"H2 실행파일",
		"H3 RDR",
		"P   ○ RDR의 실행파일 총 수 : 3",
		"T 표 1 실행파일 목록",
		"H2 원시 파일",
		"H3 RDR",
		"P   ○ RDR의 원시파일 총 수 : 4",
		"T 표 2 프로젝트 파일 목록",
		"H4 core",
		"P   ○ core의 원본파일 총 수 : 2",
		"T 표 3 원본(소스) 파일 목록",
		"H4 ui",
		"P   ○ ui의 원본파일 총 수 : 1",
		"T 표 4 원본(소스) 파일 목록",
		"H2 기타 파일",
		"P   ○ RDR의 기타파일 총 수 : 1",
		"T 표 5 기타 파일 목록",
		"H2 패키징 요구사항",
		"P " + PackagingText,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("outline =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestBuild_RoundTrip(t *testing.T) {
	t.Parallel()

	if a, b := build(), build(); !reflect.DeepEqual(a.Nodes(), b.Nodes()) {
		t.Error("two builds from the same records differ")
	}
}

func TestBuild_TableWidths(t *testing.T) {
	t.Parallel()

	for _, s := range []Schema{ExecutionSchema, SourceSchema, OtherSchema} {
		if s.Width() != TableWidth {
			t.Errorf("%s schema width = %d, want %d", s.Name, s.Width(), TableWidth)
		}
	}
	for _, tbl := range build().Tables() {
		if tbl.Width() != TableWidth {
			t.Errorf("%s width = %d", tbl.Caption, tbl.Width())
		}
	}
}

func TestNewTable_LocationRows(t *testing.T) {
	t.Parallel()

	records := []record.FileRecord{
		{Dir: "/", Name: "a"},
		{Dir: "/", Name: "b"},
		{Dir: "/x", Name: "c"},
		{Dir: "/y", Name: "d"},
		{Dir: "/y", Name: "e"},
	}
	tbl := NewTable(OtherSchema, Caption{}, records)

	var locations []string
	for _, r := range tbl.Body() {
		if r.Kind == RowLocation {
			locations = append(locations, r.Cells[0].Text)
			if len(r.Cells) != 1 || r.Cells[0].Span != len(OtherSchema.Columns) {
				t.Errorf("location row %q does not span every column", r.Cells[0].Text)
			}
		}
	}
	want := []string{"저장위치: /", "저장위치: /x", "저장위치: /y"}
	if !reflect.DeepEqual(locations, want) {
		t.Errorf("locations = %v, want %v", locations, want)
	}
	if tbl.DataCount() != len(records) {
		t.Errorf("DataCount() = %d, want %d", tbl.DataCount(), len(records))
	}
	if len(tbl.Rows) != 1+len(records)+len(want) {
		t.Errorf("rows = %d", len(tbl.Rows))
	}
}

func TestNewTable_Borders(t *testing.T) {
	t.Parallel()

	records := []record.FileRecord{{Dir: "/", Name: "a"}, {Dir: "/", Name: "b"}}
	tbl := NewTable(OtherSchema, Caption{}, records)
	borders := func(r Row) []BorderFill {
		var out []BorderFill
		for _, c := range r.Cells {
			out = append(out, c.Border)
		}
		return out
	}

	tests := []struct {
		name string
		row  Row
		want []BorderFill
	}{
		{"header", tbl.Rows[0], []BorderFill{7, 8, 8, 8, 8, 8, 9}},
		{"location", tbl.Rows[1], []BorderFill{10}},
		{"data", tbl.Rows[2], []BorderFill{14, 5, 5, 5, 5, 5, 15}},
		{"final", tbl.Rows[3], []BorderFill{16, 11, 11, 11, 11, 11, 17}},
	}
	for _, tt := range tests {
		if got := borders(tt.row); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s borders = %v, want %v", tt.name, got, tt.want)
		}
	}

	last := tbl.Rows[2].Cells
	if last[len(last)-1].Align != AlignLeft || last[0].Align != AlignCenter {
		t.Errorf("alignment = %v ... %v", last[0].Align, last[len(last)-1].Align)
	}
}

func TestNewTable_ExecutionValues(t *testing.T) {
	t.Parallel()

	inv := inventory.Build(sampleRecords())
	tbl := NewTable(ExecutionSchema, Caption{}, inv.Execution.Records)

	// header, location /bin, a.exe, b.exe, location /etc, app.ini
	if len(tbl.Rows) != 6 {
		t.Fatalf("rows = %d, want 6", len(tbl.Rows))
	}
	var got []string
	for _, c := range tbl.Rows[3].Cells {
		got = append(got, c.Text)
	}
	want := []string{"실행파일", "2", "b.exe", "1.0", "10", "abc", "2024-01-02", "PN-E002", "desc b.exe"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("b.exe row = %v, want %v", got, want)
	}
	if pn := tbl.Rows[5].Cells[7].Text; pn != "" {
		t.Errorf("configuration part number = %q, want empty", pn)
	}
}

func TestBuild_EmptyInventory(t *testing.T) {
	t.Parallel()

	doc := Build(nil, Options{Device: "D"})
	tables := doc.Tables()
	if len(tables) != 3 {
		t.Fatalf("tables = %d, want execution, project and other", len(tables))
	}
	for i, tbl := range tables {
		if len(tbl.Rows) != 1 || tbl.Rows[0].Kind != RowHeader {
			t.Errorf("table %d rows = %+v, want header only", i, tbl.Rows)
		}
		if tbl.Caption.Number != i+1 {
			t.Errorf("table %d number = %d", i, tbl.Caption.Number)
		}
	}
}

func TestBuild_FallbackCSUHeading(t *testing.T) {
	t.Parallel()

	inv := inventory.Build([]record.FileRecord{{Category: category.Source, Dir: "/", Name: "a.c"}})
	doc := Build(inv, Options{Device: "D", CSU: "main"})
	found := false
	for _, n := range doc.Nodes() {
		if h, ok := n.(*Heading); ok && h.Level == 4 && h.Text == "main" {
			found = true
		}
	}
	if !found {
		t.Error("no CSU heading with the fallback name")
	}
}

func TestDocument_NodesIsCopy(t *testing.T) {
	t.Parallel()

	doc := build()
	nodes := doc.Nodes()
	nodes[0] = &Paragraph{Text: "changed"}
	if _, ok := doc.Nodes()[0].(*Heading); !ok {
		t.Error("Nodes() exposes internal slice")
	}

	var nilDoc *Document
	if nilDoc.Len() != 0 || nilDoc.Nodes() != nil {
		t.Error("nil document is not empty")
	}
}
