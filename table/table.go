// Package table wraps an Arrow record batch as the engine-native table.
//
// A Table is immutable: every transformation produces a new one. It owns one
// reference to its record; Release drops it.
package table

import (
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Table is an ordered set of named, typed, equal-length columns.
type Table struct {
	rec      arrow.RecordBatch
	released atomic.Bool
}

// New wraps rec. The table takes over the caller's reference.
func New(rec arrow.RecordBatch) *Table {
	return &Table{rec: rec}
}

// Empty returns a table with schema and no rows.
func Empty(schema *arrow.Schema, mem memory.Allocator) *Table {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	return New(b.NewRecordBatch())
}

// Record returns the underlying record. The table keeps ownership;
// call Retain on it to hold it past the table's lifetime.
func (t *Table) Record() arrow.RecordBatch {
	return t.rec
}

func (t *Table) Schema() *arrow.Schema {
	return t.rec.Schema()
}

func (t *Table) NumRows() int64 {
	return t.rec.NumRows()
}

func (t *Table) NumCols() int {
	return int(t.rec.NumCols())
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	fields := t.rec.Schema().Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

// Column returns the i-th column.
func (t *Table) Column(i int) arrow.Array {
	return t.rec.Column(i)
}

// Equal reports whether both tables have equal schemas and values.
func (t *Table) Equal(other *Table) bool {
	if t == nil || other == nil {
		return t == other
	}
	if !t.rec.Schema().Equal(other.rec.Schema()) {
		return false
	}
	return array.RecordEqual(t.rec, other.rec)
}

// Release drops the table's reference to its record. Safe to call twice.
func (t *Table) Release() {
	if t == nil {
		return
	}
	if t.released.CompareAndSwap(false, true) {
		t.rec.Release()
	}
}
