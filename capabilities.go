package planbridge

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/hugr-lab/planbridge/bridgeerr"
	"github.com/hugr-lab/planbridge/exchange"
	"github.com/hugr-lab/planbridge/plan"
)

// Execution modes reported in the capability manifest.
const (
	ModeTable    = "table"
	ModeIPC      = "ipc"
	ModeJSON     = "json"
	ModeZeroCopy = "zero_copy"
)

// Manifest describes what this build can interpret, so a caller can
// negotiate before sending a plan.
type Manifest struct {
	ABIVersion               uint32            `json:"abi_version"`
	MinPlanVersionSupported  uint32            `json:"min_plan_version_supported"`
	MaxPlanVersionSupported  uint32            `json:"max_plan_version_supported"`
	SupportedNodes           []string          `json:"supported_nodes"`
	SupportedExprs           []string          `json:"supported_exprs"`
	SupportedDTypes          []string          `json:"supported_dtypes"`
	SupportedBinaryOperators []string          `json:"supported_binary_operators"`
	RecognizedButUnsupported []string          `json:"recognized_but_unsupported"`
	ExecutionModes           []string          `json:"execution_modes"`
	CopyBehavior             map[string]string `json:"copy_behavior"`
	IPCCompression           []string          `json:"ipc_compression"`
	Engine                   string            `json:"engine"`
}

// unsupported lists IR members that decode but always fail interpretation.
var unsupported = []string{"FileScan(PARQUET)", "Exclude"}

// BuildManifest assembles the manifest. engineVersion may be empty.
func BuildManifest(engineVersion string) Manifest {
	nodes := make([]string, 0, len(plan.NodeKinds()))
	for _, k := range plan.NodeKinds() {
		nodes = append(nodes, k.String())
	}
	exprs := make([]string, 0, len(plan.ExprKinds()))
	for _, k := range plan.ExprKinds() {
		if k == plan.ExprExclude {
			continue
		}
		exprs = append(exprs, k.String())
	}
	dtypes := make([]string, 0, len(plan.DataTypes()))
	for _, t := range plan.DataTypes() {
		dtypes = append(dtypes, t.String())
	}
	ops := make([]string, 0, int(plan.OpXor))
	for op := plan.OpAdd; op <= plan.OpXor; op++ {
		ops = append(ops, op.String())
	}

	engine := "duckdb"
	if engineVersion != "" {
		engine += " " + engineVersion
	}

	return Manifest{
		ABIVersion:               CurrentABIVersion,
		MinPlanVersionSupported:  plan.MinPlanVersion,
		MaxPlanVersionSupported:  plan.MaxPlanVersion,
		SupportedNodes:           nodes,
		SupportedExprs:           exprs,
		SupportedDTypes:          dtypes,
		SupportedBinaryOperators: ops,
		RecognizedButUnsupported: unsupported,
		ExecutionModes:           []string{ModeTable, ModeIPC, ModeJSON, ModeZeroCopy},
		CopyBehavior: map[string]string{
			ModeTable:    "result stays in process behind a handle",
			ModeIPC:      "copied into an Arrow IPC stream",
			ModeJSON:     "copied into row JSON",
			ModeZeroCopy: "buffers shared through the Arrow C data interface",
		},
		IPCCompression: []string{"none", exchange.CompressionZstd, exchange.CompressionLZ4},
		Engine:         engine,
	}
}

// Capabilities returns the manifest as JSON. An engine that cannot report
// its version is listed without one.
func (b *Bridge) Capabilities() (string, error) {
	return callValue(b, "capabilities", func() (string, error) {
		version, err := b.engine.Version(context.Background())
		if err != nil {
			b.logger.Warn("Engine version unavailable for capabilities", "error", err)
			version = ""
		}
		data, err := json.Marshal(BuildManifest(version))
		if err != nil {
			return "", bridgeerr.Wrap(bridgeerr.Unknown, err, "failed to encode capabilities")
		}
		return string(data), nil
	})
}
