package translate

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/planbridge/bridgeerr"
	"github.com/hugr-lab/planbridge/plan"
	"github.com/hugr-lab/planbridge/plan/lazy"
	"github.com/hugr-lab/planbridge/table"
)

func emptySeed(t *testing.T) *table.Table {
	t.Helper()
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "a", Type: arrow.PrimitiveTypes.Int64},
		{Name: "b", Type: arrow.BinaryTypes.String},
	}, nil)
	tbl := table.Empty(schema, memory.NewGoAllocator())
	t.Cleanup(tbl.Release)
	return tbl
}

// fixedResolver reports the same columns for every query and records the queries.
type fixedResolver struct {
	columns []string
	queries []string
}

func (r *fixedResolver) Columns(_ context.Context, query string) ([]string, error) {
	r.queries = append(r.queries, query)
	return r.columns, nil
}

func render(t *testing.T, f *lazy.Frame, seed *table.Table, resolver ColumnResolver) (string, error) {
	t.Helper()
	frame, err := Interpret(f.Root(), seed)
	if err != nil {
		t.Fatalf("Interpret failed: %v", err)
	}
	return frame.Render(context.Background(), resolver)
}

func TestRender(t *testing.T) {
	seed := emptySeed(t)
	scan := `SELECT * FROM "__planbridge_seed"`

	tests := []struct {
		name  string
		frame *lazy.Frame
		want  string
	}{
		{"scan", lazy.MemoryScan(), scan},
		{"scan with columns", lazy.MemoryScan("b", "a"), `SELECT "b", "a" FROM "__planbridge_seed"`},
		{
			"filter",
			lazy.MemoryScan().Filter(lazy.Col("a").Gt(lazy.Lit(0))),
			`SELECT * FROM (` + scan + `) AS q WHERE ("a" > 0)`,
		},
		{
			"limit",
			lazy.MemoryScan().Limit(2),
			`SELECT * FROM (` + scan + `) AS q LIMIT 2`,
		},
		{
			"limit clamped to bigint",
			lazy.MemoryScan().Limit(math.MaxUint64),
			`SELECT * FROM (` + scan + `) AS q LIMIT 9223372036854775807`,
		},
		{
			"project",
			lazy.MemoryScan().Select(lazy.Col("a"), lazy.Col("a").Mul(lazy.Lit(2)).Alias("a2")),
			`SELECT "a" AS "a", ("a" * 2) AS "a2" FROM (` + scan + `) AS q`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := render(t, tt.frame, seed, nil)
			if err != nil {
				t.Fatalf("Render failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Render =\n  %s\nwant\n  %s", got, tt.want)
			}
		})
	}
}

func TestRenderWithColumns(t *testing.T) {
	seed := emptySeed(t)
	resolver := &fixedResolver{columns: []string{"a", "b", "c"}}

	frame := lazy.MemoryScan().WithColumns(
		lazy.Lit(1).Alias("d"),
		lazy.Col("a").Add(lazy.Lit(1)),
	)
	got, err := render(t, frame, seed, resolver)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	want := `SELECT ("a" + 1) AS "a", "b", "c", 1 AS "d" FROM (SELECT * FROM "__planbridge_seed") AS q`
	if got != want {
		t.Errorf("Render =\n  %s\nwant\n  %s", got, want)
	}
	if len(resolver.queries) != 1 || resolver.queries[0] != `SELECT * FROM "__planbridge_seed"` {
		t.Errorf("resolver should be asked about the input query, got %v", resolver.queries)
	}
}

func TestRenderWildcard(t *testing.T) {
	seed := emptySeed(t)
	resolver := &fixedResolver{columns: []string{"a", "b"}}

	got, err := render(t, lazy.MemoryScan().Select(lazy.Col("a").Alias("x"), lazy.All()), seed, resolver)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.HasPrefix(got, `SELECT "a" AS "x", "a", "b" FROM`) {
		t.Errorf("wildcard should expand in place, got %s", got)
	}

	_, err = render(t, lazy.MemoryScan().Select(lazy.All(), lazy.Col("b")), seed, resolver)
	if code := bridgeerr.CodeOf(err); code != bridgeerr.ExecutionCode {
		t.Errorf("duplicate b: code = %s, want ERR_EXECUTION", code)
	}

	_, err = render(t, lazy.MemoryScan().Select(lazy.All()), seed, nil)
	if code := bridgeerr.CodeOf(err); code != bridgeerr.ExecutionCode {
		t.Errorf("no resolver: code = %s, want ERR_EXECUTION", code)
	}
}

func TestRenderDuplicateNames(t *testing.T) {
	seed := emptySeed(t)

	tests := []struct {
		name  string
		frame *lazy.Frame
	}{
		{"two literals", lazy.MemoryScan().Select(lazy.Lit(1), lazy.Lit(2))},
		{"same column twice", lazy.MemoryScan().Select(lazy.Col("a"), lazy.Col("a").Add(lazy.Lit(1)))},
		{"with columns twice", lazy.MemoryScan().WithColumns(lazy.Lit(1).Alias("x"), lazy.Lit(2).Alias("x"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := render(t, tt.frame, seed, &fixedResolver{columns: []string{"a", "b"}})
			if code := bridgeerr.CodeOf(err); code != bridgeerr.ExecutionCode {
				t.Errorf("code = %s, want ERR_EXECUTION", code)
			}
		})
	}
}

func TestInterpretErrors(t *testing.T) {
	seed := emptySeed(t)
	dir := t.TempDir()

	tests := []struct {
		name    string
		node    *plan.Node
		seed    *table.Table
		code    bridgeerr.Code
		message string
	}{
		{"no kind", &plan.Node{}, seed, bridgeerr.PlanSemanticCode, "Node has no kind"},
		{"project without input", &plan.Node{Project: &plan.Project{}}, seed, bridgeerr.PlanSemanticCode, "Project has no input"},
		{"filter without input", &plan.Node{Filter: &plan.Filter{}}, seed, bridgeerr.PlanSemanticCode, "Filter has no input"},
		{
			"filter without predicate",
			&plan.Node{Filter: &plan.Filter{Input: lazy.MemoryScan().Root()}},
			seed, bridgeerr.PlanSemanticCode, "Filter has no predicate",
		},
		{"with columns without input", &plan.Node{WithColumns: &plan.WithColumns{}}, seed, bridgeerr.PlanSemanticCode, "WithColumns has no input"},
		{"limit without input", &plan.Node{Limit: &plan.Limit{N: 1}}, seed, bridgeerr.PlanSemanticCode, "Limit has no input"},
		{"memory scan without seed", lazy.MemoryScan().Root(), nil, bridgeerr.UnsupportedCode, "MemoryScan"},
		{"parquet", lazy.ScanParquet(filepath.Join(dir, "x.parquet")).Root(), nil, bridgeerr.UnsupportedCode, "ParquetScan"},
		{"parquet under filter", lazy.ScanParquet("x.parquet").Filter(lazy.Col("a")).Limit(1).Root(), nil, bridgeerr.UnsupportedCode, "ParquetScan"},
		{
			"unspecified format",
			&plan.Node{FileScan: &plan.FileScan{Path: "x"}},
			nil, bridgeerr.UnsupportedCode, "UNSPECIFIED",
		},
		{"missing csv", lazy.ScanCSV(filepath.Join(dir, "missing.csv")).Root(), nil, bridgeerr.ExecutionCode, "missing.csv"},
		{"csv directory", lazy.ScanCSV(dir).Root(), nil, bridgeerr.ExecutionCode, "is a directory"},
		{
			"bad expression bubbles up",
			lazy.MemoryScan().Select(lazy.Col("s").StrPadStart(3, "")).Root(),
			seed, bridgeerr.InvalidArgumentCode, "fill_char",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Interpret(tt.node, tt.seed)
			if code := bridgeerr.CodeOf(err); code != tt.code {
				t.Fatalf("code = %s, want %s (err: %v)", code, tt.code, err)
			}
			if !strings.Contains(err.Error(), tt.message) {
				t.Errorf("error %q should contain %q", err.Error(), tt.message)
			}
		})
	}
}

func TestInterpretPlanRequiresRoot(t *testing.T) {
	_, err := InterpretPlan(&plan.Plan{PlanVersion: 1}, nil)
	if code := bridgeerr.CodeOf(err); code != bridgeerr.PlanSemanticCode {
		t.Errorf("code = %s, want ERR_PLAN_SEMANTIC", code)
	}
}

func TestInterpretCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "it's.csv")
	if err := os.WriteFile(path, []byte("a;b\n1;2\n"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	frame, err := Interpret(lazy.ScanCSVWith(path, ";", false).Root(), nil)
	if err != nil {
		t.Fatalf("Interpret failed: %v", err)
	}
	got, err := frame.Render(context.Background(), nil)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	want := "SELECT * FROM read_csv_auto(" + quoteLiteral(path) + ", delim = ';', header = false)"
	if got != want {
		t.Errorf("Render = %s, want %s", got, want)
	}
	if src := frame.Sources(); len(src) != 1 || src[0] != path {
		t.Errorf("Sources = %v, want [%s]", src, path)
	}
	if frame.Seed() != nil {
		t.Error("file scans have no seed")
	}
}
