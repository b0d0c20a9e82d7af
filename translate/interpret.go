package translate

import (
	"os"
	"strings"

	"github.com/hugr-lab/planbridge/bridgeerr"
	"github.com/hugr-lab/planbridge/plan"
	"github.com/hugr-lab/planbridge/table"
)

// InterpretPlan interprets the root of p.
func InterpretPlan(p *plan.Plan, seed *table.Table) (*Frame, error) {
	if p == nil || p.Root == nil {
		return nil, bridgeerr.PlanSemantic("Plan has no root node")
	}
	return Interpret(p.Root, seed)
}

// Interpret builds a deferred query for node. seed is the table a MemoryScan
// reads and may be nil for plans that only scan files.
//
// Errors:
//   - PlanSemantic when a node lacks its kind, input or predicate
//   - Unsupported for Parquet scans and MemoryScan without a seed
//   - Execution when a CSV file cannot be opened
func Interpret(node *plan.Node, seed *table.Table) (*Frame, error) {
	kind, _ := node.Kind()

	switch kind {
	case plan.NodeNone:
		return nil, bridgeerr.PlanSemantic("Node has no kind")

	case plan.NodeMemoryScan:
		if seed == nil {
			return nil, bridgeerr.Unsupported("MemoryScan requires input DataFrame")
		}
		return &Frame{
			kind:    kind,
			from:    quoteIdentifier(SeedRelation),
			columns: node.MemoryScan.ColumnNames,
			seed:    seed,
		}, nil

	case plan.NodeFileScan:
		return interpretFileScan(node.FileScan)

	case plan.NodeProject:
		in, err := interpretInput(node.Project.Input, seed, "Project")
		if err != nil {
			return nil, err
		}
		exprs, err := buildAll(node.Project.Expressions)
		if err != nil {
			return nil, err
		}
		return &Frame{kind: kind, input: in, exprs: exprs}, nil

	case plan.NodeFilter:
		in, err := interpretInput(node.Filter.Input, seed, "Filter")
		if err != nil {
			return nil, err
		}
		if node.Filter.Predicate == nil {
			return nil, bridgeerr.PlanSemantic("Filter has no predicate")
		}
		pred, err := build(node.Filter.Predicate)
		if err != nil {
			return nil, err
		}
		return &Frame{kind: kind, input: in, predicate: pred}, nil

	case plan.NodeWithColumns:
		in, err := interpretInput(node.WithColumns.Input, seed, "WithColumns")
		if err != nil {
			return nil, err
		}
		exprs, err := buildAll(node.WithColumns.Expressions)
		if err != nil {
			return nil, err
		}
		return &Frame{kind: kind, input: in, exprs: exprs}, nil

	case plan.NodeLimit:
		in, err := interpretInput(node.Limit.Input, seed, "Limit")
		if err != nil {
			return nil, err
		}
		return &Frame{kind: kind, input: in, limit: node.Limit.N}, nil
	}

	return nil, bridgeerr.Unsupportedf("node type %s is not yet supported", kind)
}

func interpretInput(input *plan.Node, seed *table.Table, parent string) (*Frame, error) {
	if input == nil {
		return nil, bridgeerr.PlanSemanticf("%s has no input", parent)
	}
	return Interpret(input, seed)
}

func interpretFileScan(scan *plan.FileScan) (*Frame, error) {
	switch scan.Format {
	case plan.FormatCSV:
	case plan.FormatParquet:
		return nil, bridgeerr.Unsupported("ParquetScan not yet implemented")
	default:
		return nil, bridgeerr.Unsupportedf("FileScan format %s is not supported", scan.Format)
	}

	if scan.Path == "" {
		return nil, bridgeerr.PlanSemantic("CsvScan has no path")
	}
	info, err := os.Stat(scan.Path)
	if err != nil {
		return nil, bridgeerr.Executionf("CsvScan failed for '%s': %v", scan.Path, err)
	}
	if info.IsDir() {
		return nil, bridgeerr.Executionf("CsvScan failed for '%s': is a directory", scan.Path)
	}

	args := []string{quoteLiteral(scan.Path)}
	if scan.Delimiter != "" {
		args = append(args, "delim = "+quoteLiteral(scan.Delimiter))
	}
	if scan.NoHeader {
		args = append(args, "header = false")
	}
	return &Frame{
		kind:    plan.NodeFileScan,
		from:    "read_csv_auto(" + strings.Join(args, ", ") + ")",
		sources: []string{scan.Path},
	}, nil
}

func buildAll(exprs []*plan.Expr) ([]Expr, error) {
	out := make([]Expr, 0, len(exprs))
	for _, e := range exprs {
		built, err := BuildExpr(e)
		if err != nil {
			return nil, err
		}
		out = append(out, built)
	}
	return out, nil
}
