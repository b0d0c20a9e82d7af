// Package lazy is a fluent builder for plan trees.
//
//	p := lazy.MemoryScan().
//	    Filter(lazy.Col("age").Gt(lazy.Lit(30))).
//	    Select(lazy.Col("name"), lazy.Col("age").Mul(lazy.Lit(2)).Alias("age2")).
//	    Limit(10).
//	    Plan()
package lazy

import (
	"fmt"

	"github.com/hugr-lab/planbridge/plan"
)

// Expr wraps an IR expression.
type Expr struct {
	e *plan.Expr
}

// Proto returns the wrapped IR expression.
func (x Expr) Proto() *plan.Expr {
	return x.e
}

// Col references a column by name.
func Col(name string) Expr {
	return Expr{&plan.Expr{Col: &plan.Col{Name: name}}}
}

// Cols references several columns.
func Cols(names ...string) []Expr {
	out := make([]Expr, len(names))
	for i, n := range names {
		out[i] = Col(n)
	}
	return out
}

// All selects every column of the current frame.
func All() Expr {
	return Expr{&plan.Expr{Wildcard: &plan.Wildcard{}}}
}

// Null is an untyped null literal.
func Null() Expr {
	return Expr{&plan.Expr{Lit: &plan.Literal{Null: &plan.NullValue{}}}}
}

// Lit builds a literal from a Go value. Integers widen to int64, floats to
// float64. Unsupported values panic, as they are programming errors.
func Lit(v any) Expr {
	lit := &plan.Literal{}
	switch x := v.(type) {
	case nil:
		lit.Null = &plan.NullValue{}
	case int:
		n := int64(x)
		lit.Int = &n
	case int8:
		n := int64(x)
		lit.Int = &n
	case int16:
		n := int64(x)
		lit.Int = &n
	case int32:
		n := int64(x)
		lit.Int = &n
	case int64:
		lit.Int = &x
	case uint8:
		n := int64(x)
		lit.Int = &n
	case uint16:
		n := int64(x)
		lit.Int = &n
	case uint32:
		n := int64(x)
		lit.Int = &n
	case float32:
		f := float64(x)
		lit.Float = &f
	case float64:
		lit.Float = &x
	case bool:
		lit.Bool = &x
	case string:
		lit.String = &x
	default:
		panic(fmt.Sprintf("lazy.Lit: unsupported literal type %T", v))
	}
	return Expr{&plan.Expr{Lit: lit}}
}

func (x Expr) binary(op plan.BinaryOperator, other Expr) Expr {
	return Expr{&plan.Expr{Binary: &plan.Binary{Op: op, Left: x.e, Right: other.e}}}
}

func (x Expr) Add(o Expr) Expr { return x.binary(plan.OpAdd, o) }
func (x Expr) Sub(o Expr) Expr { return x.binary(plan.OpSub, o) }
func (x Expr) Mul(o Expr) Expr { return x.binary(plan.OpMul, o) }
func (x Expr) Div(o Expr) Expr { return x.binary(plan.OpDiv, o) }
func (x Expr) Mod(o Expr) Expr { return x.binary(plan.OpMod, o) }
func (x Expr) Pow(o Expr) Expr { return x.binary(plan.OpPow, o) }
func (x Expr) Eq(o Expr) Expr  { return x.binary(plan.OpEq, o) }
func (x Expr) Ne(o Expr) Expr  { return x.binary(plan.OpNe, o) }
func (x Expr) Lt(o Expr) Expr  { return x.binary(plan.OpLt, o) }
func (x Expr) Le(o Expr) Expr  { return x.binary(plan.OpLe, o) }
func (x Expr) Gt(o Expr) Expr  { return x.binary(plan.OpGt, o) }
func (x Expr) Ge(o Expr) Expr  { return x.binary(plan.OpGe, o) }
func (x Expr) And(o Expr) Expr { return x.binary(plan.OpAnd, o) }
func (x Expr) Or(o Expr) Expr  { return x.binary(plan.OpOr, o) }
func (x Expr) Xor(o Expr) Expr { return x.binary(plan.OpXor, o) }

// Alias renames the expression's output column.
func (x Expr) Alias(name string) Expr {
	return Expr{&plan.Expr{Alias: &plan.Alias{Expr: x.e, Name: name}}}
}

func (x Expr) IsNull() Expr {
	return Expr{&plan.Expr{IsNull: &plan.Unary{Expr: x.e}}}
}

func (x Expr) Not() Expr {
	return Expr{&plan.Expr{Not: &plan.Unary{Expr: x.e}}}
}

// Cast converts to t. Non-strict casts yield null where conversion fails.
func (x Expr) Cast(t plan.DataType, strict bool) Expr {
	return Expr{&plan.Expr{Cast: &plan.Cast{Expr: x.e, DataType: t, Strict: strict}}}
}

// StrictCast is Cast(t, true).
func (x Expr) StrictCast(t plan.DataType) Expr {
	return x.Cast(t, true)
}

// Exclude removes columns from a wildcard. It decodes but is not executable.
func (x Expr) Exclude(columns ...string) Expr {
	return Expr{&plan.Expr{Exclude: &plan.Exclude{Expr: x.e, Columns: columns}}}
}
