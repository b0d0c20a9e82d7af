package table

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/apache/arrow-go/v18/arrow"
)

// DefaultMaxPrintRows is how many rows Format prints before eliding the middle.
const DefaultMaxPrintRows = 10

const maxCellWidth = 32

// String renders the table with the default row limit.
func (t *Table) String() string {
	var sb strings.Builder
	_ = t.Format(&sb, DefaultMaxPrintRows)
	return sb.String()
}

// Format writes a human-readable dump: shape, a header with dtypes and up
// to maxRows rows. Longer tables show their head and tail around a "…" row.
func (t *Table) Format(w io.Writer, maxRows int) error {
	if maxRows <= 0 {
		maxRows = DefaultMaxPrintRows
	}
	nrows := int(t.NumRows())
	ncols := t.NumCols()

	rows := selectRows(nrows, maxRows)
	cells := make([][]string, ncols)
	widths := make([]int, ncols)
	header := t.ColumnNames()
	dtypes := make([]string, ncols)

	for c := 0; c < ncols; c++ {
		col := t.Column(c)
		dtypes[c] = DTypeName(col.DataType())
		widths[c] = max(width(header[c]), width(dtypes[c]), 3)
		cells[c] = make([]string, len(rows))
		for i, r := range rows {
			var v string
			switch {
			case r < 0:
				v = "…"
			case col.IsNull(r):
				v = "null"
			default:
				v = truncate(col.ValueStr(r))
			}
			cells[c][i] = v
			widths[c] = max(widths[c], width(v))
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "shape: (%d, %d)\n", nrows, ncols)
	line(&sb, widths, "┌", "┬", "┐", "─")
	row(&sb, widths, header)
	row(&sb, widths, repeat("---", ncols))
	row(&sb, widths, dtypes)
	line(&sb, widths, "╞", "╪", "╡", "═")
	for i := range rows {
		vals := make([]string, ncols)
		for c := 0; c < ncols; c++ {
			vals[c] = cells[c][i]
		}
		row(&sb, widths, vals)
	}
	line(&sb, widths, "└", "┴", "┘", "─")

	_, err := io.WriteString(w, sb.String())
	return err
}

// selectRows picks row indices to print; -1 marks the elision row.
func selectRows(n, limit int) []int {
	if n <= limit {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	head := (limit + 1) / 2
	tail := limit - head
	out := make([]int, 0, limit+1)
	for i := 0; i < head; i++ {
		out = append(out, i)
	}
	out = append(out, -1)
	for i := n - tail; i < n; i++ {
		out = append(out, i)
	}
	return out
}

func line(sb *strings.Builder, widths []int, left, mid, right, fill string) {
	sb.WriteString(left)
	for i, w := range widths {
		if i > 0 {
			sb.WriteString(mid)
		}
		sb.WriteString(strings.Repeat(fill, w+2))
	}
	sb.WriteString(right)
	sb.WriteByte('\n')
}

func row(sb *strings.Builder, widths []int, vals []string) {
	sb.WriteString("│")
	for i, w := range widths {
		if i > 0 {
			sb.WriteString("┆")
		}
		sb.WriteByte(' ')
		sb.WriteString(vals[i])
		sb.WriteString(strings.Repeat(" ", w-width(vals[i])+1))
	}
	sb.WriteString("│\n")
}

func repeat(s string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = s
	}
	return out
}

func width(s string) int {
	return utf8.RuneCountInString(s)
}

func truncate(s string) string {
	if width(s) <= maxCellWidth {
		return s
	}
	r := []rune(s)
	return string(r[:maxCellWidth-1]) + "…"
}

// DTypeName returns a short dtype label for display and capability reports.
func DTypeName(dt arrow.DataType) string {
	switch dt.ID() {
	case arrow.INT8:
		return "i8"
	case arrow.INT16:
		return "i16"
	case arrow.INT32:
		return "i32"
	case arrow.INT64:
		return "i64"
	case arrow.UINT8:
		return "u8"
	case arrow.UINT16:
		return "u16"
	case arrow.UINT32:
		return "u32"
	case arrow.UINT64:
		return "u64"
	case arrow.FLOAT32:
		return "f32"
	case arrow.FLOAT64:
		return "f64"
	case arrow.BOOL:
		return "bool"
	case arrow.STRING, arrow.LARGE_STRING, arrow.STRING_VIEW:
		return "str"
	case arrow.DATE32, arrow.DATE64:
		return "date"
	case arrow.TIMESTAMP:
		return "datetime[" + dt.(*arrow.TimestampType).Unit.String() + "]"
	case arrow.TIME32, arrow.TIME64:
		return "time"
	case arrow.LIST, arrow.LARGE_LIST:
		return "list[" + DTypeName(dt.(arrow.ListLikeType).Elem()) + "]"
	case arrow.NULL:
		return "null"
	}
	return dt.String()
}
