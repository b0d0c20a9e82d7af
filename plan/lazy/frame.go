package lazy

import "github.com/hugr-lab/planbridge/plan"

// Frame is a plan under construction. Each method returns a new Frame whose
// root wraps the previous one; the receiver is left unchanged.
type Frame struct {
	root *plan.Node
}

// MemoryScan starts from the seed table supplied at execution time,
// optionally projected to columns.
func MemoryScan(columns ...string) *Frame {
	return &Frame{root: &plan.Node{MemoryScan: &plan.MemoryScan{ColumnNames: columns}}}
}

// ScanCSV starts from a CSV file.
func ScanCSV(path string) *Frame {
	return &Frame{root: &plan.Node{FileScan: &plan.FileScan{Path: path, Format: plan.FormatCSV}}}
}

// ScanCSVWith starts from a CSV file with an explicit delimiter and header flag.
func ScanCSVWith(path, delimiter string, header bool) *Frame {
	return &Frame{root: &plan.Node{FileScan: &plan.FileScan{
		Path:      path,
		Format:    plan.FormatCSV,
		Delimiter: delimiter,
		NoHeader:  !header,
	}}}
}

// ScanParquet starts from a Parquet file. Execution rejects it.
func ScanParquet(path string) *Frame {
	return &Frame{root: &plan.Node{FileScan: &plan.FileScan{Path: path, Format: plan.FormatParquet}}}
}

func (f *Frame) Filter(predicate Expr) *Frame {
	return &Frame{root: &plan.Node{Filter: &plan.Filter{Input: f.root, Predicate: predicate.e}}}
}

// Select keeps exactly exprs, in order.
func (f *Frame) Select(exprs ...Expr) *Frame {
	return &Frame{root: &plan.Node{Project: &plan.Project{Input: f.root, Expressions: protos(exprs)}}}
}

// WithColumns adds or replaces columns, keeping the rest.
func (f *Frame) WithColumns(exprs ...Expr) *Frame {
	return &Frame{root: &plan.Node{WithColumns: &plan.WithColumns{Input: f.root, Expressions: protos(exprs)}}}
}

func (f *Frame) Limit(n uint64) *Frame {
	return &Frame{root: &plan.Node{Limit: &plan.Limit{Input: f.root, N: n}}}
}

// Root returns the current root node.
func (f *Frame) Root() *plan.Node {
	return f.root
}

// Plan wraps the frame in a plan at the newest supported version.
func (f *Frame) Plan() *plan.Plan {
	return &plan.Plan{PlanVersion: plan.MaxPlanVersion, Root: f.root}
}

// Bytes encodes the frame as a plan.
func (f *Frame) Bytes() ([]byte, error) {
	return plan.Encode(f.Plan())
}

func protos(exprs []Expr) []*plan.Expr {
	out := make([]*plan.Expr, len(exprs))
	for i, e := range exprs {
		out[i] = e.e
	}
	return out
}
