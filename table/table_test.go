package table

import (
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

func intTable(mem memory.Allocator, vals ...int64) *Table {
	schema := arrow.NewSchema([]arrow.Field{{Name: "n", Type: arrow.PrimitiveTypes.Int64, Nullable: true}}, nil)
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	b.Field(0).(*array.Int64Builder).AppendValues(vals, nil)
	return New(b.NewRecordBatch())
}

func TestReleaseTwice(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	tbl := intTable(mem, 1, 2, 3)
	tbl.Release()
	tbl.Release()

	var nilTable *Table
	nilTable.Release()
}

func TestEqual(t *testing.T) {
	mem := memory.NewGoAllocator()
	a := intTable(mem, 1, 2)
	b := intTable(mem, 1, 2)
	c := intTable(mem, 1, 3)
	defer a.Release()
	defer b.Release()
	defer c.Release()

	if !a.Equal(b) {
		t.Error("tables with the same values should be equal")
	}
	if a.Equal(c) {
		t.Error("tables with different values should differ")
	}
	if a.Equal(nil) {
		t.Error("table should not equal nil")
	}
}

func TestConcat(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	a := intTable(mem, 1, 2)
	b := intTable(mem, 3)
	defer a.Release()
	defer b.Release()

	rec, err := Concat(mem, a.Schema(), []arrow.RecordBatch{a.Record(), b.Record()})
	if err != nil {
		t.Fatalf("Concat failed: %v", err)
	}
	got := New(rec)
	defer got.Release()

	want := intTable(mem, 1, 2, 3)
	defer want.Release()
	if !got.Equal(want) {
		t.Errorf("Concat = %s, want %s", got, want)
	}

	rec, err = Concat(mem, a.Schema(), nil)
	if err != nil {
		t.Fatalf("Concat of no batches failed: %v", err)
	}
	empty := New(rec)
	defer empty.Release()
	if empty.NumRows() != 0 || empty.NumCols() != 1 {
		t.Errorf("empty concat shape = (%d, %d), want (0, 1)", empty.NumRows(), empty.NumCols())
	}
}

func TestFormat(t *testing.T) {
	mem := memory.NewGoAllocator()
	tbl := intTable(mem, 10, 20)
	defer tbl.Release()

	want := strings.Join([]string{
		"shape: (2, 1)",
		"┌─────┐",
		"│ n   │",
		"│ --- │",
		"│ i64 │",
		"╞═════╡",
		"│ 10  │",
		"│ 20  │",
		"└─────┘",
		"",
	}, "\n")
	if got := tbl.String(); got != want {
		t.Errorf("String() =\n%s\nwant\n%s", got, want)
	}
}

func TestFormatElidesMiddle(t *testing.T) {
	mem := memory.NewGoAllocator()
	vals := make([]int64, 100)
	for i := range vals {
		vals[i] = int64(i)
	}
	tbl := intTable(mem, vals...)
	defer tbl.Release()

	var sb strings.Builder
	if err := tbl.Format(&sb, 4); err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	out := sb.String()
	for _, want := range []string{"shape: (100, 1)", "│ 0   │", "│ 1   │", "│ …   │", "│ 98  │", "│ 99  │"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "│ 50  │") {
		t.Errorf("middle rows should be elided:\n%s", out)
	}
}

func TestDTypeName(t *testing.T) {
	tests := []struct {
		dt   arrow.DataType
		want string
	}{
		{arrow.PrimitiveTypes.Int8, "i8"},
		{arrow.PrimitiveTypes.Uint64, "u64"},
		{arrow.PrimitiveTypes.Float32, "f32"},
		{arrow.BinaryTypes.String, "str"},
		{arrow.FixedWidthTypes.Boolean, "bool"},
		{arrow.FixedWidthTypes.Date32, "date"},
		{arrow.FixedWidthTypes.Timestamp_us, "datetime[us]"},
		{arrow.ListOf(arrow.BinaryTypes.String), "list[str]"},
	}
	for _, tt := range tests {
		if got := DTypeName(tt.dt); got != tt.want {
			t.Errorf("DTypeName(%s) = %s, want %s", tt.dt, got, tt.want)
		}
	}
}
