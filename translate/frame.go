package translate

import (
	"context"
	"strings"

	"github.com/hugr-lab/planbridge/bridgeerr"
	"github.com/hugr-lab/planbridge/plan"
	"github.com/hugr-lab/planbridge/table"
)

// SeedRelation is the relation name a MemoryScan reads from. The engine
// registers the seed table under this name on the connection that runs the query.
const SeedRelation = "__planbridge_seed"

// ColumnResolver reports the output columns of a query without running it.
// Rendering needs it to expand wildcards and to splice WithColumns.
type ColumnResolver interface {
	Columns(ctx context.Context, query string) ([]string, error)
}

// ColumnResolverFunc adapts a function to ColumnResolver.
type ColumnResolverFunc func(ctx context.Context, query string) ([]string, error)

func (f ColumnResolverFunc) Columns(ctx context.Context, query string) ([]string, error) {
	return f(ctx, query)
}

// Frame is a deferred query. Building one never touches the engine;
// Render produces the final statement.
type Frame struct {
	kind  plan.NodeKind
	input *Frame

	// scans
	from    string
	columns []string

	exprs     []Expr
	predicate Expr
	limit     uint64

	seed    *table.Table
	sources []string
}

// Kind returns the node kind at the top of the frame.
func (f *Frame) Kind() plan.NodeKind {
	return f.kind
}

// Seed returns the table a MemoryScan reads, or nil when the frame has none.
func (f *Frame) Seed() *table.Table {
	for cur := f; cur != nil; cur = cur.input {
		if cur.seed != nil {
			return cur.seed
		}
	}
	return nil
}

// Sources lists the files the frame reads.
func (f *Frame) Sources() []string {
	var out []string
	for cur := f; cur != nil; cur = cur.input {
		out = append(out, cur.sources...)
	}
	return out
}

// Render builds the SQL statement for the frame. resolver may be nil when
// the frame contains neither WithColumns nor a wildcard projection.
func (f *Frame) Render(ctx context.Context, resolver ColumnResolver) (string, error) {
	switch f.kind {
	case plan.NodeMemoryScan, plan.NodeFileScan:
		if len(f.columns) == 0 {
			return "SELECT * FROM " + f.from, nil
		}
		return "SELECT " + quoteIdentifiers(f.columns) + " FROM " + f.from, nil
	}

	in, err := f.input.Render(ctx, resolver)
	if err != nil {
		return "", err
	}

	switch f.kind {
	case plan.NodeFilter:
		return "SELECT * FROM (" + in + ") AS q WHERE " + f.predicate.SQL, nil

	case plan.NodeLimit:
		return "SELECT * FROM (" + in + ") AS q LIMIT " + formatBigint(f.limit), nil

	case plan.NodeProject:
		items, err := f.projectItems(ctx, resolver, in)
		if err != nil {
			return "", err
		}
		return "SELECT " + strings.Join(items, ", ") + " FROM (" + in + ") AS q", nil

	case plan.NodeWithColumns:
		items, err := f.withColumnsItems(ctx, resolver, in)
		if err != nil {
			return "", err
		}
		return "SELECT " + strings.Join(items, ", ") + " FROM (" + in + ") AS q", nil
	}

	return "", bridgeerr.Unsupportedf("cannot render %s", f.kind)
}

// projectItems selects exactly the built expressions, in order.
func (f *Frame) projectItems(ctx context.Context, resolver ColumnResolver, in string) ([]string, error) {
	var inputCols []string
	seen := make(map[string]bool, len(f.exprs))
	items := make([]string, 0, len(f.exprs))

	for _, e := range f.exprs {
		if !e.Wildcard {
			if seen[e.Name] {
				return nil, duplicateColumn(e.Name)
			}
			seen[e.Name] = true
			items = append(items, e.SQL+" AS "+quoteIdentifier(e.Name))
			continue
		}
		if inputCols == nil {
			cols, err := resolveColumns(ctx, resolver, in)
			if err != nil {
				return nil, err
			}
			inputCols = cols
		}
		for _, c := range inputCols {
			if seen[c] {
				return nil, duplicateColumn(c)
			}
			seen[c] = true
			items = append(items, quoteIdentifier(c))
		}
	}

	if len(items) == 0 {
		return nil, bridgeerr.Unsupported("Project must select at least one column")
	}
	return items, nil
}

// withColumnsItems keeps the input columns in order, replacing those named by
// an expression in place, and appends the new ones.
func (f *Frame) withColumnsItems(ctx context.Context, resolver ColumnResolver, in string) ([]string, error) {
	inputCols, err := resolveColumns(ctx, resolver, in)
	if err != nil {
		return nil, err
	}

	replace := make(map[string]string, len(f.exprs))
	var added []string
	existing := make(map[string]bool, len(inputCols))
	for _, c := range inputCols {
		existing[c] = true
	}

	for _, e := range f.exprs {
		if e.Wildcard {
			// Every column replaced by itself.
			continue
		}
		if _, dup := replace[e.Name]; dup {
			return nil, duplicateColumn(e.Name)
		}
		replace[e.Name] = e.SQL
		if !existing[e.Name] {
			added = append(added, e.Name)
		}
	}

	items := make([]string, 0, len(inputCols)+len(added))
	for _, c := range inputCols {
		if sql, ok := replace[c]; ok {
			items = append(items, sql+" AS "+quoteIdentifier(c))
			continue
		}
		items = append(items, quoteIdentifier(c))
	}
	for _, c := range added {
		items = append(items, replace[c]+" AS "+quoteIdentifier(c))
	}
	if len(items) == 0 {
		return nil, bridgeerr.Unsupported("WithColumns over an empty frame is not supported")
	}
	return items, nil
}

func resolveColumns(ctx context.Context, resolver ColumnResolver, query string) ([]string, error) {
	if resolver == nil {
		return nil, bridgeerr.Execution("column resolution is not available for this frame")
	}
	cols, err := resolver.Columns(ctx, query)
	if err != nil {
		return nil, err
	}
	return cols, nil
}

func duplicateColumn(name string) error {
	return bridgeerr.Executionf("the name '%s' is duplicate: projections must produce unique column names", name)
}
