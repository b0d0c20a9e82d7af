package exchange

import (
	"bytes"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/goccy/go-json"

	"github.com/hugr-lab/planbridge/bridgeerr"
	"github.com/hugr-lab/planbridge/table"
)

// ReadRowsJSON builds a table from a JSON array of objects. Columns appear
// in order of first appearance; keys missing from a row become nulls.
func ReadRowsJSON(data []byte, mem memory.Allocator) (*table.Table, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := expectDelim(dec, '['); err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.InvalidArgumentCode, err, "rows JSON must be an array of objects")
	}

	var (
		cols  []*column
		index = map[string]*column{}
		rows  int
	)
	for dec.More() {
		if err := expectDelim(dec, '{'); err != nil {
			return nil, bridgeerr.Wrap(bridgeerr.InvalidArgumentCode, err, "row "+strconv.Itoa(rows)+" is not an object")
		}
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, bridgeerr.Wrap(bridgeerr.InvalidArgumentCode, err, "malformed rows JSON")
			}
			key, ok := tok.(string)
			if !ok {
				return nil, bridgeerr.InvalidArgumentf("row %d: expected a key, got %v", rows, tok)
			}
			var v any
			if err := dec.Decode(&v); err != nil {
				return nil, bridgeerr.Wrap(bridgeerr.InvalidArgumentCode, err, "malformed rows JSON")
			}

			c, ok := index[key]
			if !ok {
				c = &column{name: key}
				index[key] = c
				cols = append(cols, c)
			}
			if len(c.values) > rows {
				// Repeated key within one row: the last value wins.
				c.values = c.values[:rows]
			}
			c.pad(rows)
			if err := c.add(v); err != nil {
				return nil, err
			}
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, bridgeerr.Wrap(bridgeerr.InvalidArgumentCode, err, "malformed rows JSON")
		}
		rows++
	}
	if err := expectDelim(dec, ']'); err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.InvalidArgumentCode, err, "malformed rows JSON")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, bridgeerr.InvalidArgument("unexpected data after rows JSON array")
	}

	return buildTable(mem, cols, rows)
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return errors.New("expected '" + want.String() + "'")
	}
	return nil
}

// WriteRowsJSON renders t as a JSON array of objects whose keys follow the
// column order. Non-finite floats are written as null.
func WriteRowsJSON(t *table.Table) ([]byte, error) {
	if t == nil {
		return nil, bridgeerr.InvalidArgument("table is nil")
	}
	names := make([][]byte, t.NumCols())
	for i, name := range t.ColumnNames() {
		b, err := json.Marshal(name)
		if err != nil {
			return nil, bridgeerr.Wrap(bridgeerr.ArrowExportCode, err, "failed to encode column name")
		}
		names[i] = b
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	for r := 0; r < int(t.NumRows()); r++ {
		if r > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for c := range names {
			if c > 0 {
				buf.WriteByte(',')
			}
			buf.Write(names[c])
			buf.WriteByte(':')
			if err := writeValue(&buf, t.Column(c), r); err != nil {
				return nil, bridgeerr.Wrap(bridgeerr.ArrowExportCode, err, "failed to encode column "+t.Schema().Field(c).Name)
			}
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func writeValue(buf *bytes.Buffer, col arrow.Array, i int) error {
	if col.IsNull(i) {
		buf.WriteString("null")
		return nil
	}
	switch arr := col.(type) {
	case *array.Float64:
		writeFloat(buf, arr.Value(i), 64)
		return nil
	case *array.Float32:
		writeFloat(buf, float64(arr.Value(i)), 32)
		return nil
	}
	b, err := json.Marshal(col.GetOneForMarshal(i))
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

// writeFloat keeps a decimal point on whole numbers so the value reads back
// as a float.
func writeFloat(buf *bytes.Buffer, f float64, bits int) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		buf.WriteString("null")
		return
	}
	s := strconv.FormatFloat(f, 'g', -1, bits)
	buf.WriteString(s)
	if !strings.ContainsAny(s, ".e") {
		buf.WriteString(".0")
	}
}
