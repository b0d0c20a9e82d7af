// Package planbridge executes serialized dataframe query plans and exchanges
// their results as Arrow data.
//
// A plan is a tree of relational nodes (scans, projections, filters, column
// additions and limits) whose expressions are built with package plan/lazy
// and encoded with plan.Encode. The Bridge decodes a plan once into a
// handle, then runs it over an optional seed table any number of times.
//
// # Quick Start
//
//	bridge, err := planbridge.New(planbridge.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer bridge.Close()
//
//	data, _ := lazy.MemoryScan().
//	    Filter(lazy.Col("a").Gt(lazy.Lit(0))).
//	    Select(lazy.Col("a")).
//	    Bytes()
//	h, err := bridge.Compile(data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer bridge.FreePlan(h)
//
//	out, err := bridge.ExecuteJSON(h, []byte(`[{"a": 1}, {"a": -2}]`))
//
// # Execution Modes
//
// A compiled plan can run in four ways:
//
//   - ExecuteToTable: seed and result stay in the handle registry
//   - ExecuteToIPC: seed and result travel as Arrow IPC stream bytes
//   - ExecuteJSON: seed and result travel as row-oriented JSON
//   - ExecuteZeroCopy: seed and result travel through the Arrow C Data
//     Interface without copying buffers
//
// # Errors
//
// Every failing call returns a *bridgeerr.Error with a stable numeric code
// and also records "[ERR_X] message" in the last-error slot of the calling
// OS thread. Panics never escape a Bridge method; they surface as
// ERR_UNKNOWN with a "Panic: " message prefix.
//
// # Transports
//
// NewServer exposes the same operations over Arrow Flight, and
// cmd/planbridge-capi exports them as a C shared library.
//
// # Building
//
// The engine reads and writes Arrow through DuckDB's Arrow interface, which
// duckdb-go compiles only under the duckdb_arrow build tag. Every build and
// test of this module needs it:
//
//	go test -tags duckdb_arrow ./...
//	go build -tags duckdb_arrow ./cmd/planbridge
//
// # Memory Management
//
// Arrow uses manual reference counting. Tables obtained through Table or
// Run are owned by the caller until Release. Handles own their table until
// FreeTable or Close.
package planbridge
