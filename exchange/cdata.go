package exchange

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/cdata"

	"github.com/hugr-lab/planbridge/bridgeerr"
	"github.com/hugr-lab/planbridge/table"
)

// ImportCData takes ownership of a C data interface (schema, array) pair
// describing a struct array and wraps it as a table without copying buffers.
//
// The schema is released before returning. The array is moved into the
// table; its release callback fires when the table is released. On failure
// both structures are released.
func ImportCData(schema *cdata.CArrowSchema, arr *cdata.CArrowArray) (*table.Table, error) {
	if schema == nil || arr == nil {
		return nil, bridgeerr.InvalidArgument("arrow schema and array pointers must not be null")
	}

	field, err := cdata.ImportCArrowField(schema)
	cdata.ReleaseCArrowSchema(schema)
	if err != nil {
		cdata.ReleaseCArrowArray(arr)
		return nil, bridgeerr.Wrap(bridgeerr.ArrowImportCode, err, "failed to import arrow schema")
	}
	st, ok := field.Type.(*arrow.StructType)
	if !ok {
		cdata.ReleaseCArrowArray(arr)
		return nil, bridgeerr.ArrowImportf("top-level arrow type must be a struct, got %s", field.Type)
	}

	imported, err := cdata.ImportCArrayWithType(arr, st)
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.ArrowImportCode, err, "failed to import arrow array")
	}
	defer imported.Release()

	structArr, ok := imported.(*array.Struct)
	if !ok {
		return nil, bridgeerr.ArrowImportf("imported array is %T, want struct", imported)
	}
	if n := structArr.NullN(); n > 0 {
		return nil, bridgeerr.ArrowImportf("top-level struct array has %d null rows", n)
	}

	var md *arrow.Metadata
	if field.Metadata.Len() > 0 {
		md = &field.Metadata
	}
	schemaOut := arrow.NewSchema(st.Fields(), md)
	return table.New(array.RecordFromStructArray(structArr, schemaOut)), nil
}

// ExportCData fills the caller-provided C structures with t as a struct
// array. Buffers are shared, not copied; the consumer owns the exported
// structures and must call their release callbacks.
func ExportCData(t *table.Table, outSchema *cdata.CArrowSchema, outArray *cdata.CArrowArray) (err error) {
	if t == nil {
		return bridgeerr.InvalidArgument("table is nil")
	}
	if outSchema == nil || outArray == nil {
		return bridgeerr.InvalidArgument("output arrow schema and array pointers must not be null")
	}

	defer func() {
		if r := recover(); r != nil {
			err = bridgeerr.ArrowExportf("failed to export table: %v", r)
		}
	}()
	cdata.ExportArrowRecordBatch(t.Record(), outArray, outSchema)
	return nil
}
