// Command planbridge-capi builds the bridge as a C shared library:
//
//	go build -tags duckdb_arrow -buildmode=c-shared -o libplanbridge.so ./cmd/planbridge-capi
//
// Every export returns 0 on success or a bridgeerr code, and on failure
// leaves "[ERR_X] message" in the calling thread's last-error slot. Buffers
// handed out by the library are malloc'd and must be returned through
// bridge_output_free (or bridge_last_error_free for error text).
package main

/*
#include <stdint.h>
#include <stdlib.h>
*/
import "C"

import (
	"unsafe"

	"github.com/apache/arrow-go/v18/arrow/cdata"

	"github.com/hugr-lab/planbridge"
	"github.com/hugr-lab/planbridge/bridgeerr"
)

func main() {}

// export runs fn against the shared bridge inside its envelope. The outer
// recover catches anything that escapes it and still fills the slot.
func export(op string, fn func(b *planbridge.Bridge) error) (rc C.int) {
	var b *planbridge.Bridge
	defer func() {
		if r := recover(); r != nil {
			rc = C.int(reportPanic(b, op, r))
		}
	}()
	b, startErr := instance()
	if startErr != nil {
		return C.int(startErr.Code)
	}
	return C.int(statusOf(b.Guard(op, func() error { return fn(b) })))
}

func nullArgument(name string) error {
	return bridgeerr.InvalidArgumentf("%s is null", name)
}

// goBytes copies n bytes at p into Go memory.
func goBytes(p unsafe.Pointer, n C.size_t) []byte {
	if n == 0 {
		return []byte{}
	}
	return append([]byte(nil), unsafe.Slice((*byte)(p), int(n))...)
}

// cBytes copies data into a malloc'd, NUL-terminated buffer.
func cBytes(data []byte) (unsafe.Pointer, C.size_t) {
	p := C.malloc(C.size_t(len(data) + 1))
	if p == nil {
		panic("malloc failed")
	}
	buf := unsafe.Slice((*byte)(p), len(data)+1)
	copy(buf, data)
	buf[len(data)] = 0
	return p, C.size_t(len(data))
}

func writeBytes(data []byte, out *unsafe.Pointer, outLen *C.size_t) {
	*out, *outLen = cBytes(data)
}

func schemaPtr(p unsafe.Pointer) *cdata.CArrowSchema {
	if p == nil {
		return nil
	}
	return cdata.SchemaFromPtr(uintptr(p))
}

func arrayPtr(p unsafe.Pointer) *cdata.CArrowArray {
	if p == nil {
		return nil
	}
	return cdata.ArrayFromPtr(uintptr(p))
}

//export bridge_abi_version
func bridge_abi_version() C.uint32_t {
	return C.uint32_t(planbridge.CurrentABIVersion)
}

//export bridge_abi_check
func bridge_abi_check(version C.uint32_t) C.int {
	return export("capi_abi_check", func(b *planbridge.Bridge) error {
		return b.NegotiateABI(uint32(version))
	})
}

//export bridge_engine_version
func bridge_engine_version(out *unsafe.Pointer, outLen *C.size_t) C.int {
	return export("capi_engine_version", func(b *planbridge.Bridge) error {
		if out == nil || outLen == nil {
			return nullArgument("output pointer")
		}
		v, err := b.EngineVersion()
		if err != nil {
			return err
		}
		writeBytes([]byte(v), out, outLen)
		return nil
	})
}

//export bridge_capabilities
func bridge_capabilities(out *unsafe.Pointer, outLen *C.size_t) C.int {
	return export("capi_capabilities", func(b *planbridge.Bridge) error {
		if out == nil || outLen == nil {
			return nullArgument("output pointer")
		}
		manifest, err := b.Capabilities()
		if err != nil {
			return err
		}
		writeBytes([]byte(manifest), out, outLen)
		return nil
	})
}

// bridge_last_error copies the calling thread's last error. With no error
// recorded it stores NULL and 0 and still returns 0. It does not touch the
// slot, so it is not wrapped in the envelope.
//
//export bridge_last_error
func bridge_last_error(out *unsafe.Pointer, outLen *C.size_t) (rc C.int) {
	defer func() {
		if r := recover(); r != nil {
			rc = C.int(bridgeerr.Unknown)
		}
	}()
	if out == nil || outLen == nil {
		return C.int(bridgeerr.InvalidArgumentCode)
	}
	b, startErr := instance()
	text, ok := lastErrorText(b, startErr)
	if !ok {
		*out, *outLen = nil, 0
		return 0
	}
	writeBytes([]byte(text), out, outLen)
	return 0
}

// bridge_last_error_free releases text from bridge_last_error and clears
// the calling thread's slot.
//
//export bridge_last_error_free
func bridge_last_error_free(p unsafe.Pointer, _ C.size_t) {
	defer func() { _ = recover() }()
	if p != nil {
		C.free(p)
	}
	if b, _ := instance(); b != nil {
		b.ReleaseLastError()
	}
}

//export bridge_output_free
func bridge_output_free(p unsafe.Pointer, _ C.size_t) {
	if p != nil {
		C.free(p)
	}
}

//export bridge_plan_compile
func bridge_plan_compile(data unsafe.Pointer, n C.size_t, out *C.uint64_t) C.int {
	return export("capi_plan_compile", func(b *planbridge.Bridge) error {
		if data == nil {
			return nullArgument("plan bytes")
		}
		if out == nil {
			return nullArgument("output handle")
		}
		h, err := b.Compile(goBytes(data, n))
		if err != nil {
			return err
		}
		*out = C.uint64_t(h)
		return nil
	})
}

//export bridge_plan_free
func bridge_plan_free(h C.uint64_t) C.int {
	return export("capi_plan_free", func(b *planbridge.Bridge) error {
		return b.FreePlan(uint64(h))
	})
}

// bridge_plan_execute_simple runs a plan over an optional row-JSON seed.
// A NULL input means no seed.
//
//export bridge_plan_execute_simple
func bridge_plan_execute_simple(h C.uint64_t, input unsafe.Pointer, n C.size_t, out *unsafe.Pointer, outLen *C.size_t) C.int {
	return export("capi_plan_execute_simple", func(b *planbridge.Bridge) error {
		if out == nil || outLen == nil {
			return nullArgument("output pointer")
		}
		var seed []byte
		if input != nil {
			seed = goBytes(input, n)
		}
		res, err := b.ExecuteJSON(uint64(h), seed)
		if err != nil {
			return err
		}
		writeBytes(res, out, outLen)
		return nil
	})
}

// bridge_plan_execute_ipc runs a plan over an optional IPC seed. A NULL
// input means no seed.
//
//export bridge_plan_execute_ipc
func bridge_plan_execute_ipc(h C.uint64_t, input unsafe.Pointer, n C.size_t, out *unsafe.Pointer, outLen *C.size_t) C.int {
	return export("capi_plan_execute_ipc", func(b *planbridge.Bridge) error {
		if out == nil || outLen == nil {
			return nullArgument("output pointer")
		}
		var seed []byte
		if input != nil {
			seed = goBytes(input, n)
		}
		res, err := b.ExecuteToIPC(uint64(h), seed)
		if err != nil {
			return err
		}
		writeBytes(res, out, outLen)
		return nil
	})
}

//export bridge_plan_execute_df
func bridge_plan_execute_df(h C.uint64_t, input C.uint64_t, out *C.uint64_t) C.int {
	return export("capi_plan_execute_df", func(b *planbridge.Bridge) error {
		if out == nil {
			return nullArgument("output handle")
		}
		res, err := b.ExecuteToTable(uint64(h), uint64(input))
		if err != nil {
			return err
		}
		*out = C.uint64_t(res)
		return nil
	})
}

//export bridge_plan_execute_arrow
func bridge_plan_execute_arrow(h C.uint64_t, inSchema, inArray, outSchema, outArray unsafe.Pointer) C.int {
	return export("capi_plan_execute_arrow", func(b *planbridge.Bridge) error {
		return b.ExecuteZeroCopy(uint64(h), schemaPtr(inSchema), arrayPtr(inArray), schemaPtr(outSchema), arrayPtr(outArray))
	})
}

//export bridge_df_from_columns
func bridge_df_from_columns(data unsafe.Pointer, n C.size_t, out *C.uint64_t) C.int {
	return export("capi_df_from_columns", func(b *planbridge.Bridge) error {
		if data == nil {
			return nullArgument("column JSON")
		}
		if out == nil {
			return nullArgument("output handle")
		}
		h, err := b.TableFromColumnsJSON(goBytes(data, n))
		if err != nil {
			return err
		}
		*out = C.uint64_t(h)
		return nil
	})
}

//export bridge_df_from_rows
func bridge_df_from_rows(data unsafe.Pointer, n C.size_t, out *C.uint64_t) C.int {
	return export("capi_df_from_rows", func(b *planbridge.Bridge) error {
		if data == nil {
			return nullArgument("row JSON")
		}
		if out == nil {
			return nullArgument("output handle")
		}
		h, err := b.TableFromRowsJSON(goBytes(data, n))
		if err != nil {
			return err
		}
		*out = C.uint64_t(h)
		return nil
	})
}

//export bridge_df_from_ipc
func bridge_df_from_ipc(data unsafe.Pointer, n C.size_t, out *C.uint64_t) C.int {
	return export("capi_df_from_ipc", func(b *planbridge.Bridge) error {
		if data == nil {
			return nullArgument("IPC bytes")
		}
		if out == nil {
			return nullArgument("output handle")
		}
		h, err := b.TableFromIPC(goBytes(data, n))
		if err != nil {
			return err
		}
		*out = C.uint64_t(h)
		return nil
	})
}

// bridge_df_from_arrow imports a struct array. Ownership of both C structs
// moves to the library even when the import fails.
//
//export bridge_df_from_arrow
func bridge_df_from_arrow(schema, array unsafe.Pointer, out *C.uint64_t) C.int {
	return export("capi_df_from_arrow", func(b *planbridge.Bridge) error {
		if out == nil {
			return nullArgument("output handle")
		}
		h, err := b.TableFromCData(schemaPtr(schema), arrayPtr(array))
		if err != nil {
			return err
		}
		*out = C.uint64_t(h)
		return nil
	})
}

//export bridge_df_to_ipc
func bridge_df_to_ipc(h C.uint64_t, out *unsafe.Pointer, outLen *C.size_t) C.int {
	return export("capi_df_to_ipc", func(b *planbridge.Bridge) error {
		if out == nil || outLen == nil {
			return nullArgument("output pointer")
		}
		res, err := b.TableToIPC(uint64(h))
		if err != nil {
			return err
		}
		writeBytes(res, out, outLen)
		return nil
	})
}

//export bridge_df_to_json
func bridge_df_to_json(h C.uint64_t, out *unsafe.Pointer, outLen *C.size_t) C.int {
	return export("capi_df_to_json", func(b *planbridge.Bridge) error {
		if out == nil || outLen == nil {
			return nullArgument("output pointer")
		}
		res, err := b.TableToJSON(uint64(h))
		if err != nil {
			return err
		}
		writeBytes(res, out, outLen)
		return nil
	})
}

//export bridge_df_to_arrow
func bridge_df_to_arrow(h C.uint64_t, outSchema, outArray unsafe.Pointer) C.int {
	return export("capi_df_to_arrow", func(b *planbridge.Bridge) error {
		return b.TableToCData(uint64(h), schemaPtr(outSchema), arrayPtr(outArray))
	})
}

//export bridge_df_print
func bridge_df_print(h C.uint64_t) C.int {
	return export("capi_df_print", func(b *planbridge.Bridge) error {
		return b.PrintTable(uint64(h))
	})
}

//export bridge_df_free
func bridge_df_free(h C.uint64_t) C.int {
	return export("capi_df_free", func(b *planbridge.Bridge) error {
		return b.FreeTable(uint64(h))
	})
}
