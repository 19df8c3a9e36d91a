// SPDX-License-Identifier: MPL-2.0

package docmodel

import (
	"strconv"

	"github.com/keinus/make-sps/pkg/record"
)

// TableWidth is the total width, in HWPUNIT, of every report table.
const TableWidth = 43534

// Column keys.
const (
	KeyCategory    ColumnKey = "category"
	KeyOrdinal     ColumnKey = "ordinal"
	KeyFilename    ColumnKey = "filename"
	KeyVersion     ColumnKey = "version"
	KeySize        ColumnKey = "size"
	KeyChecksum    ColumnKey = "checksum"
	KeyDate        ColumnKey = "date"
	KeyPartNumber  ColumnKey = "part_number"
	KeyMeasure     ColumnKey = "measure"
	KeyDescription ColumnKey = "description"
)

type (
	// ColumnKey identifies the record field a column shows.
	ColumnKey string

	// Schema is the fixed column layout of one bucket's tables.
	Schema struct {
		Name    string
		Columns []Column
	}
)

// The column schemas reproduce the report template. Titles and widths are
// compatibility constants; each table sums to TableWidth.
var (
	ExecutionSchema = Schema{
		Name: "execution",
		Columns: []Column{
			{KeyCategory, "구 분", 4481},
			{KeyOrdinal, "순번", 3231},
			{KeyFilename, "파일명", 4365},
			{KeyVersion, "버전", 3254},
			{KeySize, "크기 (Byte)", 4229},
			{KeyChecksum, "첵섬", 6936},
			{KeyDate, "수정일", 4456},
			{KeyPartNumber, "SW부품번호", 5436},
			{KeyDescription, "기능 설명", 7146},
		},
	}

	SourceSchema = Schema{
		Name: "source",
		Columns: []Column{
			{KeyOrdinal, "순번", 2780},
			{KeyFilename, "파일명", 4555},
			{KeyVersion, "버전", 2330},
			{KeySize, "크기 (Byte)", 3951},
			{KeyChecksum, "첵섬", 7018},
			{KeyDate, "생성일자", 3651},
			{KeyMeasure, "라인수", 3653},
			{KeyDescription, "기능 설명", 15596},
		},
	}

	OtherSchema = Schema{
		Name: "other",
		Columns: []Column{
			{KeyOrdinal, "순번", 4669},
			{KeyFilename, "파일명", 8326},
			{KeyVersion, "버전", 4669},
			{KeySize, "크기 (Byte)", 4669},
			{KeyChecksum, "첵섬", 4952},
			{KeyDate, "수정일", 4669},
			{KeyDescription, "비고", 11580},
		},
	}
)

// Width returns the sum of the schema's column widths.
func (s Schema) Width() int {
	w := 0
	for _, c := range s.Columns {
		w += c.Width
	}
	return w
}

// columns returns a copy so tables never share the package-level slice.
func (s Schema) columns() []Column {
	return append([]Column(nil), s.Columns...)
}

// Values extracts the cell texts of rec in column order.
func (s Schema) Values(rec record.FileRecord) []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = Value(c.Key, rec)
	}
	return out
}

// Value returns the cell text of one record field.
func Value(key ColumnKey, rec record.FileRecord) string {
	switch key {
	case KeyCategory:
		return rec.Category.Label()
	case KeyOrdinal:
		return strconv.Itoa(rec.Ordinal)
	case KeyFilename:
		return rec.Name
	case KeyVersion:
		return rec.Version
	case KeySize:
		return strconv.FormatInt(rec.Size, 10)
	case KeyChecksum:
		return rec.Checksum
	case KeyDate:
		return rec.Date
	case KeyPartNumber:
		return rec.PartNumber
	case KeyMeasure:
		return rec.Measure
	case KeyDescription:
		return rec.Description
	default:
		return ""
	}
}
