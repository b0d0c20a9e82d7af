package exchange

import (
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/goccy/go-json"

	"github.com/hugr-lab/planbridge/bridgeerr"
	"github.com/hugr-lab/planbridge/table"
)

// valueKind orders inferred column types. Mixing kinds widens the column:
// int with float gives float, any other mix gives string.
type valueKind int

const (
	kindNull valueKind = iota
	kindInt
	kindFloat
	kindBool
	kindString
)

func widen(a, b valueKind) valueKind {
	switch {
	case a == b || b == kindNull:
		return a
	case a == kindNull:
		return b
	case (a == kindInt && b == kindFloat) || (a == kindFloat && b == kindInt):
		return kindFloat
	}
	return kindString
}

// column accumulates decoded JSON values for one output column.
type column struct {
	name   string
	values []any
	kind   valueKind
}

// add appends v, a value produced by a json.Decoder with UseNumber set.
func (c *column) add(v any) error {
	switch x := v.(type) {
	case nil:
	case json.Number:
		if _, err := strconv.ParseInt(string(x), 10, 64); err == nil {
			c.kind = widen(c.kind, kindInt)
		} else if _, err := strconv.ParseFloat(string(x), 64); err == nil {
			c.kind = widen(c.kind, kindFloat)
		} else {
			return bridgeerr.InvalidArgumentf("column %q: number %s is out of range", c.name, x)
		}
	case bool:
		c.kind = widen(c.kind, kindBool)
	case string:
		c.kind = widen(c.kind, kindString)
	default:
		// Nested arrays and objects are kept as their JSON text.
		b, err := json.Marshal(x)
		if err != nil {
			return bridgeerr.InvalidArgumentf("column %q: %v", c.name, err)
		}
		v = string(b)
		c.kind = kindString
	}
	c.values = append(c.values, v)
	return nil
}

// pad appends nulls until the column holds n values.
func (c *column) pad(n int) {
	for len(c.values) < n {
		c.values = append(c.values, nil)
	}
}

func (c *column) dataType() arrow.DataType {
	switch c.kind {
	case kindInt:
		return arrow.PrimitiveTypes.Int64
	case kindFloat:
		return arrow.PrimitiveTypes.Float64
	case kindBool:
		return arrow.FixedWidthTypes.Boolean
	}
	// All-null columns are typed as strings.
	return arrow.BinaryTypes.String
}

// buildTable assembles the inferred columns into a table with rows rows.
func buildTable(mem memory.Allocator, cols []*column, rows int) (*table.Table, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	fields := make([]arrow.Field, len(cols))
	for i, c := range cols {
		fields[i] = arrow.Field{Name: c.name, Type: c.dataType(), Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	for i, c := range cols {
		c.pad(rows)
		if err := appendValues(b.Field(i), c); err != nil {
			return nil, err
		}
	}
	return table.New(b.NewRecordBatch()), nil
}

func appendValues(fb array.Builder, c *column) error {
	fb.Reserve(len(c.values))
	for _, v := range c.values {
		if v == nil {
			fb.AppendNull()
			continue
		}
		switch b := fb.(type) {
		case *array.Int64Builder:
			n, err := strconv.ParseInt(string(v.(json.Number)), 10, 64)
			if err != nil {
				return bridgeerr.InvalidArgumentf("column %q: %v", c.name, err)
			}
			b.Append(n)
		case *array.Float64Builder:
			f, err := strconv.ParseFloat(string(v.(json.Number)), 64)
			if err != nil {
				return bridgeerr.InvalidArgumentf("column %q: %v", c.name, err)
			}
			b.Append(f)
		case *array.BooleanBuilder:
			b.Append(v.(bool))
		case *array.StringBuilder:
			b.Append(stringify(v))
		}
	}
	return nil
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return string(x)
	case bool:
		return strconv.FormatBool(x)
	}
	return ""
}
