package planbridge

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/cdata"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/planbridge/bridgeerr"
	"github.com/hugr-lab/planbridge/engine"
	"github.com/hugr-lab/planbridge/exchange"
	"github.com/hugr-lab/planbridge/internal/handle"
	"github.com/hugr-lab/planbridge/internal/observability"
	"github.com/hugr-lab/planbridge/internal/recovery"
	"github.com/hugr-lab/planbridge/plan"
	"github.com/hugr-lab/planbridge/table"
	"github.com/hugr-lab/planbridge/translate"
)

// CurrentABIVersion is the boundary ABI version. It changes only when an
// exported signature or ownership rule changes and is unrelated to the plan
// IR version.
const CurrentABIVersion uint32 = 1

// Engine runs interpreted frames. engine.DuckDB is the default implementation.
type Engine interface {
	Collect(ctx context.Context, f *translate.Frame) (*table.Table, error)
	Schema(ctx context.Context, f *translate.Frame) (*arrow.Schema, error)
	Version(ctx context.Context) (string, error)
	Close() error
}

// Bridge is the boundary surface: it compiles plans, executes them against
// the engine and hands tables across as handles, IPC, JSON or Arrow C data.
//
// Every method runs inside the call envelope: the calling thread's last-error
// slot is cleared, panics are recovered, and failures are returned as
// *bridgeerr.Error and recorded in the slot as "[ERR_X] message".
type Bridge struct {
	engine     Engine
	ownsEngine bool
	decoder    *plan.Decoder
	mem        memory.Allocator
	logger     *slog.Logger
	stdout     io.Writer

	ipcCompression string
	maxPrintRows   int

	plans  *handle.Registry[*plan.Plan]
	tables *handle.Registry[*table.Table]
	errs   *errorSlots
}

// New creates a Bridge. Without Config.Engine an in-memory DuckDB is opened.
func New(config Config) (*Bridge, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	mem := config.Allocator
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	stdout := config.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	decoder, err := plan.NewDecoder(config.MaxPlanBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create plan decoder: %w", err)
	}

	eng, owns := config.Engine, false
	if eng == nil {
		db, err := engine.Open(engine.Options{
			Threads:     config.Threads,
			MemoryLimit: config.MemoryLimit,
			Allocator:   mem,
		})
		if err != nil {
			decoder.Close()
			return nil, err
		}
		eng, owns = db, true
	}

	logger := config.logger()
	logger.Debug("Bridge created",
		"abi_version", CurrentABIVersion,
		"threads", config.Threads,
		"ipc_compression", config.IPCCompression,
	)

	return &Bridge{
		engine:         eng,
		ownsEngine:     owns,
		decoder:        decoder,
		mem:            mem,
		logger:         logger,
		stdout:         stdout,
		ipcCompression: config.IPCCompression,
		maxPrintRows:   config.maxPrintRows(),
		plans:          handle.NewRegistry[*plan.Plan]("plan"),
		tables:         handle.NewRegistry[*table.Table]("table"),
		errs:           newErrorSlots(),
	}, nil
}

// Close releases every outstanding table, forgets every plan and closes an
// engine the Bridge opened itself.
func (b *Bridge) Close() error {
	for _, t := range b.tables.Drain() {
		recovery.Recover(b.logger, "close", t.Release)
		observability.HandlesClosed(b.tables.Kind(), 1)
	}
	observability.HandlesClosed(b.plans.Kind(), len(b.plans.Drain()))
	b.decoder.Close()
	if b.ownsEngine {
		return b.engine.Close()
	}
	return nil
}

// ABIVersion returns CurrentABIVersion.
func (b *Bridge) ABIVersion() uint32 {
	return CurrentABIVersion
}

// NegotiateABI fails with ERR_ABI_MISMATCH unless version equals CurrentABIVersion.
func (b *Bridge) NegotiateABI(version uint32) error {
	return b.call("abi_check", func() error {
		if version != CurrentABIVersion {
			return bridgeerr.AbiMismatch(CurrentABIVersion, version)
		}
		return nil
	})
}

// EngineVersion reports the engine's library version.
func (b *Bridge) EngineVersion() (string, error) {
	return callValue(b, "engine_version", func() (string, error) {
		v, err := b.engine.Version(context.Background())
		if err != nil {
			return "", bridgeerr.Wrap(bridgeerr.ExecutionCode, err, "failed to read engine version")
		}
		return v, nil
	})
}

// LastError returns the failure recorded for the calling thread by the most
// recent fallible call, if that call failed.
func (b *Bridge) LastError() (LastError, bool) {
	return b.errs.get()
}

// ReleaseLastError clears the calling thread's slot.
func (b *Bridge) ReleaseLastError() {
	b.errs.clear()
}

// DecodePlan decodes plan bytes with the bridge's size limits.
func (b *Bridge) DecodePlan(data []byte) (*plan.Plan, error) {
	return callValue(b, "plan_decode", func() (*plan.Plan, error) {
		return b.decoder.Decode(data)
	})
}

// Compile decodes data and returns a plan handle. Plans are immutable after
// compile and may be executed concurrently.
func (b *Bridge) Compile(data []byte) (uint64, error) {
	return callValue(b, "plan_compile", func() (uint64, error) {
		p, err := b.decoder.Decode(data)
		if err != nil {
			return 0, err
		}
		return b.putPlan(p), nil
	})
}

// FreePlan drops a plan handle. Freeing 0 is a no-op.
func (b *Bridge) FreePlan(h uint64) error {
	return b.call("plan_free", func() error {
		_, removed, err := b.plans.Remove(h)
		if removed {
			observability.HandlesClosed(b.plans.Kind(), 1)
		}
		return err
	})
}

// Run interprets p over an optional seed and collects the result.
func (b *Bridge) Run(ctx context.Context, p *plan.Plan, seed *table.Table) (*table.Table, error) {
	return callValue(b, "run", func() (*table.Table, error) {
		return b.run(ctx, p, seed)
	})
}

// ResultSchema binds p over an optional seed without producing rows.
func (b *Bridge) ResultSchema(ctx context.Context, p *plan.Plan, seed *table.Table) (*arrow.Schema, error) {
	return callValue(b, "result_schema", func() (*arrow.Schema, error) {
		frame, err := translate.InterpretPlan(p, seed)
		if err != nil {
			return nil, err
		}
		return b.engine.Schema(ctx, frame)
	})
}

func (b *Bridge) run(ctx context.Context, p *plan.Plan, seed *table.Table) (*table.Table, error) {
	if p == nil {
		return nil, bridgeerr.InvalidArgument("plan is nil")
	}
	frame, err := translate.InterpretPlan(p, seed)
	if err != nil {
		return nil, err
	}
	return b.engine.Collect(ctx, frame)
}

// ExecuteToTable runs a compiled plan and returns a table handle. input is
// an optional seed table handle; 0 means none. The seed stays owned by the
// caller.
func (b *Bridge) ExecuteToTable(planHandle, input uint64) (uint64, error) {
	return callValue(b, "plan_execute_df", func() (uint64, error) {
		p, err := b.plans.Get(planHandle)
		if err != nil {
			return 0, err
		}
		var seed *table.Table
		if input != 0 {
			if seed, err = b.tables.Get(input); err != nil {
				return 0, err
			}
		}
		out, err := b.run(context.Background(), p, seed)
		if err != nil {
			return 0, err
		}
		return b.putTable(out), nil
	})
}

// ExecuteToIPC runs a compiled plan over an optional IPC seed and returns
// the result as an Arrow IPC stream.
func (b *Bridge) ExecuteToIPC(planHandle uint64, input []byte) ([]byte, error) {
	return callValue(b, "plan_execute_ipc", func() ([]byte, error) {
		p, err := b.plans.Get(planHandle)
		if err != nil {
			return nil, err
		}
		var seed *table.Table
		if len(input) > 0 {
			if seed, err = exchange.ReadIPC(input, b.mem); err != nil {
				return nil, err
			}
			defer seed.Release()
		}
		out, err := b.run(context.Background(), p, seed)
		if err != nil {
			return nil, err
		}
		defer out.Release()
		return b.writeIPC(out)
	})
}

// ExecuteJSON runs a compiled plan over an optional row-JSON seed and
// returns the result as row JSON.
func (b *Bridge) ExecuteJSON(planHandle uint64, input []byte) ([]byte, error) {
	return callValue(b, "plan_execute_simple", func() ([]byte, error) {
		p, err := b.plans.Get(planHandle)
		if err != nil {
			return nil, err
		}
		var seed *table.Table
		if len(input) > 0 {
			if seed, err = exchange.ReadRowsJSON(input, b.mem); err != nil {
				return nil, err
			}
			defer seed.Release()
		}
		out, err := b.run(context.Background(), p, seed)
		if err != nil {
			return nil, err
		}
		defer out.Release()
		return exchange.WriteRowsJSON(out)
	})
}

// ExecuteZeroCopy runs a compiled plan over an optional Arrow C data seed
// and exports the result into outSchema and outArray. The input pair must be
// both nil or both set; a supplied input is consumed. The output pair is
// owned by the caller.
func (b *Bridge) ExecuteZeroCopy(planHandle uint64, inSchema *cdata.CArrowSchema, inArray *cdata.CArrowArray, outSchema *cdata.CArrowSchema, outArray *cdata.CArrowArray) error {
	return b.call("plan_execute_arrow", func() error {
		if (inSchema == nil) != (inArray == nil) {
			return bridgeerr.InvalidArgument("input arrow schema and array must both be null or both be set")
		}
		if outSchema == nil || outArray == nil {
			return bridgeerr.InvalidArgument("output arrow schema and array pointers must not be null")
		}
		p, err := b.plans.Get(planHandle)
		if err != nil {
			return err
		}

		var seed *table.Table
		if inSchema != nil {
			if seed, err = exchange.ImportCData(inSchema, inArray); err != nil {
				return err
			}
			defer seed.Release()
		}
		out, err := b.run(context.Background(), p, seed)
		if err != nil {
			return err
		}
		defer out.Release()
		return exchange.ExportCData(out, outSchema, outArray)
	})
}

// TableFromColumnsJSON builds a table from [{"name": ..., "values": [...]}, ...].
func (b *Bridge) TableFromColumnsJSON(data []byte) (uint64, error) {
	return b.newTable("df_from_columns", func() (*table.Table, error) {
		return exchange.ReadColumnsJSON(data, b.mem)
	})
}

// TableFromRowsJSON builds a table from a JSON array of objects.
func (b *Bridge) TableFromRowsJSON(data []byte) (uint64, error) {
	return b.newTable("df_from_rows", func() (*table.Table, error) {
		return exchange.ReadRowsJSON(data, b.mem)
	})
}

// TableFromIPC builds a table from an Arrow IPC stream.
func (b *Bridge) TableFromIPC(data []byte) (uint64, error) {
	return b.newTable("df_from_ipc", func() (*table.Table, error) {
		return exchange.ReadIPC(data, b.mem)
	})
}

// TableFromCData imports an Arrow C data struct array without copying. The
// C structures are consumed.
func (b *Bridge) TableFromCData(schema *cdata.CArrowSchema, arr *cdata.CArrowArray) (uint64, error) {
	return b.newTable("df_from_arrow", func() (*table.Table, error) {
		return exchange.ImportCData(schema, arr)
	})
}

// TableToIPC serializes a table handle as an Arrow IPC stream.
func (b *Bridge) TableToIPC(h uint64) ([]byte, error) {
	return callValue(b, "df_to_ipc", func() ([]byte, error) {
		t, err := b.tables.Get(h)
		if err != nil {
			return nil, err
		}
		return b.writeIPC(t)
	})
}

// TableToJSON renders a table handle as row JSON.
func (b *Bridge) TableToJSON(h uint64) ([]byte, error) {
	return callValue(b, "df_to_json", func() ([]byte, error) {
		t, err := b.tables.Get(h)
		if err != nil {
			return nil, err
		}
		return exchange.WriteRowsJSON(t)
	})
}

// TableToCData exports a table handle into caller-owned C structures. The
// table handle stays valid; exported buffers are shared until the consumer
// releases them.
func (b *Bridge) TableToCData(h uint64, outSchema *cdata.CArrowSchema, outArray *cdata.CArrowArray) error {
	return b.call("df_to_arrow", func() error {
		t, err := b.tables.Get(h)
		if err != nil {
			return err
		}
		return exchange.ExportCData(t, outSchema, outArray)
	})
}

// FormatTable renders a table handle the way PrintTable prints it.
func (b *Bridge) FormatTable(h uint64) (string, error) {
	return callValue(b, "df_format", func() (string, error) {
		t, err := b.tables.Get(h)
		if err != nil {
			return "", err
		}
		var sb strings.Builder
		if err := t.Format(&sb, b.maxPrintRows); err != nil {
			return "", err
		}
		return sb.String(), nil
	})
}

// PrintTable writes a human-readable dump of a table handle to Config.Stdout.
func (b *Bridge) PrintTable(h uint64) error {
	return b.call("df_print", func() error {
		t, err := b.tables.Get(h)
		if err != nil {
			return err
		}
		if err := t.Format(b.stdout, b.maxPrintRows); err != nil {
			return bridgeerr.Wrap(bridgeerr.Unknown, err, "failed to print table")
		}
		_, err = io.WriteString(b.stdout, "\n")
		return err
	})
}

// FreeTable releases a table handle. Freeing 0 is a no-op.
func (b *Bridge) FreeTable(h uint64) error {
	return b.call("df_free", func() error {
		t, removed, err := b.tables.Remove(h)
		if removed {
			t.Release()
			observability.HandlesClosed(b.tables.Kind(), 1)
		}
		return err
	})
}

// Table returns the table behind a handle. The Bridge keeps ownership.
func (b *Bridge) Table(h uint64) (*table.Table, error) {
	return callValue(b, "df_get", func() (*table.Table, error) {
		return b.tables.Get(h)
	})
}

func (b *Bridge) newTable(op string, build func() (*table.Table, error)) (uint64, error) {
	return callValue(b, op, func() (uint64, error) {
		t, err := build()
		if err != nil {
			return 0, err
		}
		return b.putTable(t), nil
	})
}

func (b *Bridge) putPlan(p *plan.Plan) uint64 {
	h := b.plans.Put(p)
	observability.HandleOpened(b.plans.Kind())
	return h
}

func (b *Bridge) putTable(t *table.Table) uint64 {
	h := b.tables.Put(t)
	observability.HandleOpened(b.tables.Kind())
	return h
}

func (b *Bridge) writeIPC(t *table.Table) ([]byte, error) {
	return exchange.WriteIPC(t, exchange.IPCOptions{Compression: b.ipcCompression, Allocator: b.mem})
}
