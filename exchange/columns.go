package exchange

import (
	"bytes"
	"strings"
	"sync"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/goccy/go-json"
	"github.com/xeipuuv/gojsonschema"

	"github.com/hugr-lab/planbridge/bridgeerr"
	"github.com/hugr-lab/planbridge/table"
)

// columnsSchema describes the column JSON payload:
// [{"name": "a", "values": [1, 2, null]}, ...]
const columnsSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["name", "values"],
    "properties": {
      "name": {"type": "string", "minLength": 1},
      "values": {"type": "array"}
    },
    "additionalProperties": false
  }
}`

var (
	columnsValidatorOnce sync.Once
	columnsValidator     *gojsonschema.Schema
	columnsValidatorErr  error
)

func loadColumnsValidator() (*gojsonschema.Schema, error) {
	columnsValidatorOnce.Do(func() {
		columnsValidator, columnsValidatorErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(columnsSchema))
	})
	return columnsValidator, columnsValidatorErr
}

// ColumnJSON is one entry of the column JSON payload.
type ColumnJSON struct {
	Name   string `json:"name"`
	Values []any  `json:"values"`
}

// ReadColumnsJSON builds a table from column JSON. Every column must have
// the same number of values and a unique name.
func ReadColumnsJSON(data []byte, mem memory.Allocator) (*table.Table, error) {
	validator, err := loadColumnsValidator()
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Unknown, err, "invalid column JSON schema")
	}
	result, err := validator.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.InvalidArgumentCode, err, "malformed column JSON")
	}
	if !result.Valid() {
		errs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}
		return nil, bridgeerr.InvalidArgumentf("column JSON is invalid: %s", strings.Join(errs, "; "))
	}

	var payload []ColumnJSON
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.InvalidArgumentCode, err, "malformed column JSON")
	}

	cols := make([]*column, len(payload))
	seen := make(map[string]bool, len(payload))
	rows := -1
	for i, p := range payload {
		if seen[p.Name] {
			return nil, bridgeerr.InvalidArgumentf("column %q appears more than once", p.Name)
		}
		seen[p.Name] = true
		if rows >= 0 && len(p.Values) != rows {
			return nil, bridgeerr.InvalidArgumentf("column %q has %d values, want %d", p.Name, len(p.Values), rows)
		}
		rows = len(p.Values)

		c := &column{name: p.Name}
		for _, v := range p.Values {
			if err := c.add(v); err != nil {
				return nil, err
			}
		}
		cols[i] = c
	}
	if rows < 0 {
		rows = 0
	}
	return buildTable(mem, cols, rows)
}
