// Package translate turns plan IR into deferred DuckDB queries.
//
// Expressions become SQL fragments with a polars-compatible output name.
// Nodes become a Frame: a lazy query that is rendered to a single SQL
// statement and executed once by the engine.
package translate

import (
	"github.com/hugr-lab/planbridge/bridgeerr"
	"github.com/hugr-lab/planbridge/plan"
)

// literalName is the output name of a bare literal.
const literalName = "literal"

// Expr is a built expression: SQL text plus the name of the column it produces.
type Expr struct {
	SQL  string
	Name string

	// Wildcard marks a select-all item. SQL and Name are empty.
	Wildcard bool
}

// BuildExpr translates a projection item. Wildcards are accepted here and
// expanded by the frame against its input columns.
func BuildExpr(e *plan.Expr) (Expr, error) {
	if kind, _ := e.Kind(); kind == plan.ExprWildcard {
		return Expr{Wildcard: true}, nil
	}
	return build(e)
}

// build translates a scalar expression. It never touches the engine, so
// column existence is only checked when the query runs.
func build(e *plan.Expr) (Expr, error) {
	kind, _ := e.Kind()

	if isStringKind(kind) {
		return buildString(e, kind)
	}

	switch kind {
	case plan.ExprNone:
		return Expr{}, bridgeerr.PlanSemantic("Expr has no kind")

	case plan.ExprCol:
		return Expr{SQL: quoteIdentifier(e.Col.Name), Name: e.Col.Name}, nil

	case plan.ExprLit:
		sql, err := buildLiteral(e.Lit)
		if err != nil {
			return Expr{}, err
		}
		return Expr{SQL: sql, Name: literalName}, nil

	case plan.ExprBinary:
		return buildBinary(e.Binary)

	case plan.ExprAlias:
		inner, err := buildInner(e.Alias.Expr, "Alias")
		if err != nil {
			return Expr{}, err
		}
		return Expr{SQL: inner.SQL, Name: e.Alias.Name}, nil

	case plan.ExprIsNull:
		inner, err := buildInner(e.IsNull.Expr, "IsNull")
		if err != nil {
			return Expr{}, err
		}
		return Expr{SQL: "(" + inner.SQL + " IS NULL)", Name: inner.Name}, nil

	case plan.ExprNot:
		inner, err := buildInner(e.Not.Expr, "Not")
		if err != nil {
			return Expr{}, err
		}
		return Expr{SQL: "(NOT " + inner.SQL + ")", Name: inner.Name}, nil

	case plan.ExprCast:
		return buildCast(e.Cast)

	case plan.ExprWildcard:
		return Expr{}, bridgeerr.Unsupported("Wildcard is only supported as a projection item")

	case plan.ExprExclude:
		return Expr{}, bridgeerr.Unsupported("Exclude operation is not yet supported")
	}

	return Expr{}, bridgeerr.Unsupportedf("expression type %s is not yet supported", kind)
}

// buildInner builds a required child expression of the named parent.
func buildInner(e *plan.Expr, parent string) (Expr, error) {
	if e == nil {
		return Expr{}, bridgeerr.PlanSemanticf("%s has no expr", parent)
	}
	return build(e)
}

func buildLiteral(l *plan.Literal) (string, error) {
	kind, _ := l.Kind()
	switch kind {
	case plan.LitInt:
		return formatInt(*l.Int), nil
	case plan.LitFloat:
		return formatFloat(*l.Float), nil
	case plan.LitBool:
		if *l.Bool {
			return "TRUE", nil
		}
		return "FALSE", nil
	case plan.LitString:
		return quoteLiteral(*l.String), nil
	case plan.LitNull:
		return "NULL", nil
	}
	return "", bridgeerr.PlanSemantic("Literal has no value")
}

var binaryOperators = map[plan.BinaryOperator]string{
	plan.OpAdd: "+",
	plan.OpSub: "-",
	plan.OpMul: "*",
	plan.OpDiv: "/",
	plan.OpMod: "%",
	plan.OpEq:  "=",
	plan.OpNe:  "<>",
	plan.OpLt:  "<",
	plan.OpLe:  "<=",
	plan.OpGt:  ">",
	plan.OpGe:  ">=",
	plan.OpAnd: "AND",
	plan.OpOr:  "OR",
	// Logical xor: true when exactly one side is true, null if either is null.
	plan.OpXor: "<>",
}

func buildBinary(b *plan.Binary) (Expr, error) {
	if b.Left == nil {
		return Expr{}, bridgeerr.PlanSemantic("Binary has no left")
	}
	if b.Right == nil {
		return Expr{}, bridgeerr.PlanSemantic("Binary has no right")
	}
	left, err := build(b.Left)
	if err != nil {
		return Expr{}, err
	}
	right, err := build(b.Right)
	if err != nil {
		return Expr{}, err
	}

	if b.Op == plan.OpPow {
		return Expr{SQL: "pow(" + left.SQL + ", " + right.SQL + ")", Name: left.Name}, nil
	}
	op, ok := binaryOperators[b.Op]
	if !ok {
		return Expr{}, bridgeerr.Unsupportedf("Unknown binary operator: %d", int32(b.Op))
	}
	if b.Op == plan.OpXor {
		return Expr{
			SQL:  "(CAST(" + left.SQL + " AS BOOLEAN) <> CAST(" + right.SQL + " AS BOOLEAN))",
			Name: left.Name,
		}, nil
	}
	return Expr{SQL: "(" + left.SQL + " " + op + " " + right.SQL + ")", Name: left.Name}, nil
}

// duckdbTypes maps cast targets to DuckDB type names. Datetime is
// microsecond precision, which is DuckDB's TIMESTAMP.
var duckdbTypes = map[plan.DataType]string{
	plan.TypeInt8:     "TINYINT",
	plan.TypeInt16:    "SMALLINT",
	plan.TypeInt32:    "INTEGER",
	plan.TypeInt64:    "BIGINT",
	plan.TypeUint8:    "UTINYINT",
	plan.TypeUint16:   "USMALLINT",
	plan.TypeUint32:   "UINTEGER",
	plan.TypeUint64:   "UBIGINT",
	plan.TypeFloat32:  "FLOAT",
	plan.TypeFloat64:  "DOUBLE",
	plan.TypeBool:     "BOOLEAN",
	plan.TypeUtf8:     "VARCHAR",
	plan.TypeDate:     "DATE",
	plan.TypeDatetime: "TIMESTAMP",
	plan.TypeTime:     "TIME",
}

// SQLType returns the DuckDB type name for a cast target.
func SQLType(t plan.DataType) (string, bool) {
	name, ok := duckdbTypes[t]
	return name, ok
}

func buildCast(c *plan.Cast) (Expr, error) {
	inner, err := buildInner(c.Expr, "Cast")
	if err != nil {
		return Expr{}, err
	}
	typeName, ok := duckdbTypes[c.DataType]
	if !ok {
		return Expr{}, bridgeerr.Unsupportedf("Unknown data type: %d", int32(c.DataType))
	}
	fn := "TRY_CAST"
	if c.Strict {
		fn = "CAST"
	}
	return Expr{SQL: fn + "(" + inner.SQL + " AS " + typeName + ")", Name: inner.Name}, nil
}
