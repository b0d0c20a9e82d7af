package translate

import (
	"math"
	"strings"
	"testing"

	"github.com/hugr-lab/planbridge/bridgeerr"
	"github.com/hugr-lab/planbridge/plan"
	"github.com/hugr-lab/planbridge/plan/lazy"
)

func TestBuildExpr(t *testing.T) {
	tests := []struct {
		name     string
		expr     lazy.Expr
		wantSQL  string
		wantName string
	}{
		{"column", lazy.Col("a"), `"a"`, "a"},
		{"quoted column", lazy.Col(`we"ird`), `"we""ird"`, `we"ird`},
		{"int literal", lazy.Lit(42), "42", "literal"},
		{"negative int", lazy.Lit(-3), "(-3)", "literal"},
		{"float literal", lazy.Lit(1.5), "CAST(1.5 AS DOUBLE)", "literal"},
		{"string literal", lazy.Lit("it's"), "'it''s'", "literal"},
		{"bool literal", lazy.Lit(true), "TRUE", "literal"},
		{"null literal", lazy.Null(), "NULL", "literal"},
		{"gt", lazy.Col("a").Gt(lazy.Lit(0)), `("a" > 0)`, "a"},
		{"ne", lazy.Col("a").Ne(lazy.Col("b")), `("a" <> "b")`, "a"},
		{"and", lazy.Col("p").And(lazy.Col("q")), `("p" AND "q")`, "p"},
		{"pow", lazy.Col("x").Pow(lazy.Lit(2)), `pow("x", 2)`, "x"},
		{"xor", lazy.Col("p").Xor(lazy.Col("q")), `(CAST("p" AS BOOLEAN) <> CAST("q" AS BOOLEAN))`, "p"},
		{"literal on left", lazy.Lit(1).Add(lazy.Col("a")), `(1 + "a")`, "literal"},
		{"alias", lazy.Col("a").Add(lazy.Lit(1)).Alias("a1"), `("a" + 1)`, "a1"},
		{"is null", lazy.Col("a").IsNull(), `("a" IS NULL)`, "a"},
		{"not", lazy.Col("flag").Not(), `(NOT "flag")`, "flag"},
		{"strict cast", lazy.Col("s").Cast(plan.TypeInt64, true), `CAST("s" AS BIGINT)`, "s"},
		{"lenient cast", lazy.Col("s").Cast(plan.TypeInt64, false), `TRY_CAST("s" AS BIGINT)`, "s"},
		{"datetime cast", lazy.Col("s").StrictCast(plan.TypeDatetime), `CAST("s" AS TIMESTAMP)`, "s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildExpr(tt.expr.Proto())
			if err != nil {
				t.Fatalf("BuildExpr failed: %v", err)
			}
			if got.SQL != tt.wantSQL {
				t.Errorf("SQL = %s, want %s", got.SQL, tt.wantSQL)
			}
			if got.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", got.Name, tt.wantName)
			}
		})
	}
}

func TestBuildExprErrors(t *testing.T) {
	tests := []struct {
		name    string
		expr    *plan.Expr
		code    bridgeerr.Code
		message string
	}{
		{
			name: "no kind",
			expr: &plan.Expr{},
			code: bridgeerr.PlanSemanticCode,
		},
		{
			name:    "missing left",
			expr:    &plan.Expr{Binary: &plan.Binary{Op: plan.OpAdd, Right: lazy.Lit(1).Proto()}},
			code:    bridgeerr.PlanSemanticCode,
			message: "Binary has no left",
		},
		{
			name:    "unknown operator",
			expr:    &plan.Expr{Binary: &plan.Binary{Op: 99, Left: lazy.Col("a").Proto(), Right: lazy.Lit(1).Proto()}},
			code:    bridgeerr.UnsupportedCode,
			message: "99",
		},
		{
			name:    "zero operator",
			expr:    &plan.Expr{Binary: &plan.Binary{Left: lazy.Col("a").Proto(), Right: lazy.Lit(1).Proto()}},
			code:    bridgeerr.UnsupportedCode,
			message: "0",
		},
		{
			name: "unknown cast type",
			expr: &plan.Expr{Cast: &plan.Cast{Expr: lazy.Col("a").Proto(), DataType: 77}},
			code: bridgeerr.UnsupportedCode,
		},
		{
			name:    "cast without expr",
			expr:    &plan.Expr{Cast: &plan.Cast{DataType: plan.TypeInt8}},
			code:    bridgeerr.PlanSemanticCode,
			message: "Cast has no expr",
		},
		{
			name: "empty literal",
			expr: &plan.Expr{Lit: &plan.Literal{}},
			code: bridgeerr.PlanSemanticCode,
		},
		{
			name: "exclude",
			expr: lazy.All().Exclude("a").Proto(),
			code: bridgeerr.UnsupportedCode,
		},
		{
			name: "nested wildcard",
			expr: lazy.All().Alias("x").Proto(),
			code: bridgeerr.UnsupportedCode,
		},
		{
			name:    "string op without subject",
			expr:    &plan.Expr{StrToLowercase: &plan.StringFunction{}},
			code:    bridgeerr.PlanSemanticCode,
			message: "StrToLowercase has no expr",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildExpr(tt.expr)
			if code := bridgeerr.CodeOf(err); code != tt.code {
				t.Fatalf("code = %s, want %s (err: %v)", code, tt.code, err)
			}
			if tt.message != "" && !strings.Contains(err.Error(), tt.message) {
				t.Errorf("error %q should contain %q", err.Error(), tt.message)
			}
		})
	}
}

func TestBuildExprWildcard(t *testing.T) {
	got, err := BuildExpr(lazy.All().Proto())
	if err != nil {
		t.Fatalf("BuildExpr failed: %v", err)
	}
	if !got.Wildcard {
		t.Error("top-level wildcard should be accepted")
	}
}

func TestBuildStringExpr(t *testing.T) {
	s := lazy.Col("s")

	tests := []struct {
		name    string
		expr    lazy.Expr
		wantSQL string
	}{
		{"len bytes", s.StrLenBytes(), `strlen("s")`},
		{"len chars", s.StrLenChars(), `length("s")`},
		{"contains literal", s.StrContains("a.b", true), `contains("s", 'a.b')`},
		{"contains regex", s.StrContains("^a+", false), `regexp_matches("s", '^a+')`},
		{"starts with", s.StrStartsWith("pre"), `starts_with("s", 'pre')`},
		{"ends with", s.StrEndsWith("suf"), `ends_with("s", 'suf')`},
		{"extract", s.StrExtract(`(\d+)`, 1), `(CASE WHEN regexp_matches("s", '(\d+)') THEN regexp_extract("s", '(\d+)', 1) END)`},
		{"replace literal", s.StrReplace("a.b", "x", true), `regexp_replace("s", 'a\.b', 'x')`},
		{"replace regex groups", s.StrReplace(`(\w+)@(\w+)`, "$2 at ${1}", false), `regexp_replace("s", '(\w+)@(\w+)', '\2 at \1')`},
		{"replace all literal", s.StrReplaceAll("a", "b", true), `replace("s", 'a', 'b')`},
		{"replace all regex", s.StrReplaceAll("[0-9]", "#", false), `regexp_replace("s", '[0-9]', '#', 'g')`},
		{"lower", s.StrToLowercase(), `lower("s")`},
		{"upper", s.StrToUppercase(), `upper("s")`},
		{"strip chars", s.StrStripChars("xy"), `trim("s", 'xy')`},
		{"slice", s.StrSlice(1, 3), `substring("s", least(1, length("s")) + 1, least(4, length("s")) - least(1, length("s")))`},
		{"slice to end", s.StrSlice(0), `substring("s", least(0, length("s")) + 1, length("s") - least(0, length("s")))`},
		{
			"slice negative",
			s.StrSlice(-2, 1),
			`substring("s", greatest((length("s") + (-2)), 0) + 1, least(greatest((length("s") + (-2)) + 1, 0), length("s")) - greatest((length("s") + (-2)), 0))`,
		},
		{"split", s.StrSplit(","), `string_split("s", ',')`},
		{"pad start", s.StrPadStart(5, "*"), `(CASE WHEN length("s") >= 5 THEN "s" ELSE lpad("s", 5, '*') END)`},
		{"pad end", s.StrPadEnd(3, "é"), `(CASE WHEN length("s") >= 3 THEN "s" ELSE rpad("s", 3, 'é') END)`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildExpr(tt.expr.Proto())
			if err != nil {
				t.Fatalf("BuildExpr failed: %v", err)
			}
			if got.SQL != tt.wantSQL {
				t.Errorf("SQL = %s\nwant  %s", got.SQL, tt.wantSQL)
			}
			if got.Name != "s" {
				t.Errorf("Name = %q, want s", got.Name)
			}
		})
	}
}

func TestStripCharsWhitespace(t *testing.T) {
	got, err := BuildExpr(lazy.Col("s").StrStripChars("").Proto())
	if err != nil {
		t.Fatalf("BuildExpr failed: %v", err)
	}
	if got.SQL != `trim("s", '`+whitespace+`')` {
		t.Errorf("empty char set should strip whitespace, got %s", got.SQL)
	}
}

func TestPadFillChar(t *testing.T) {
	tests := []struct {
		fill    string
		wantErr bool
	}{
		{"", true},
		{"ab", true},
		{"*", false},
		{"é", false},
		{"\xff", true},
	}

	for _, tt := range tests {
		for _, e := range []lazy.Expr{lazy.Col("s").StrPadStart(4, tt.fill), lazy.Col("s").StrPadEnd(4, tt.fill)} {
			_, err := BuildExpr(e.Proto())
			if tt.wantErr {
				if code := bridgeerr.CodeOf(err); code != bridgeerr.InvalidArgumentCode {
					t.Errorf("fill %q: code = %s, want ERR_INVALID_ARGUMENT", tt.fill, code)
				}
				continue
			}
			if err != nil {
				t.Errorf("fill %q: unexpected error: %v", tt.fill, err)
			}
		}
	}
}

func TestFormatFloatSpecials(t *testing.T) {
	tests := []struct {
		v    float64
		want string
	}{
		{math.NaN(), "CAST('NaN' AS DOUBLE)"},
		{math.Inf(1), "CAST('Infinity' AS DOUBLE)"},
		{math.Inf(-1), "CAST('-Infinity' AS DOUBLE)"},
		{2, "CAST(2 AS DOUBLE)"},
	}
	for _, tt := range tests {
		if got := formatFloat(tt.v); got != tt.want {
			t.Errorf("formatFloat(%v) = %s, want %s", tt.v, got, tt.want)
		}
	}
}

func TestRewriteReplacement(t *testing.T) {
	tests := []struct {
		value   string
		literal bool
		want    string
	}{
		{`a\b`, true, `a\\b`},
		{"$1", true, "$1"},
		{"$1-$2", false, `\1-\2`},
		{"${3}x", false, `\3x`},
		{"cost: $$5", false, "cost: $5"},
	}
	for _, tt := range tests {
		if got := rewriteReplacement(tt.value, tt.literal); got != tt.want {
			t.Errorf("rewriteReplacement(%q, %v) = %q, want %q", tt.value, tt.literal, got, tt.want)
		}
	}
}
