package translate

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hugr-lab/planbridge/bridgeerr"
	"github.com/hugr-lab/planbridge/plan"
)

// whitespace is what strip_chars removes when no character set is given.
const whitespace = " \t\n\r\v\f"

func isStringKind(k plan.ExprKind) bool {
	return k >= plan.ExprStrLenBytes && k <= plan.ExprStrPadEnd
}

func buildString(e *plan.Expr, kind plan.ExprKind) (Expr, error) {
	switch kind {
	case plan.ExprStrLenBytes:
		return stringCall(e.StrLenBytes.Expr, kind, func(x string) string {
			return "strlen(" + x + ")"
		})
	case plan.ExprStrLenChars:
		return stringCall(e.StrLenChars.Expr, kind, func(x string) string {
			return "length(" + x + ")"
		})
	case plan.ExprStrContains:
		c := e.StrContains
		return stringCall(c.Expr, kind, func(x string) string {
			if c.Literal {
				return "contains(" + x + ", " + quoteLiteral(c.Pattern) + ")"
			}
			return "regexp_matches(" + x + ", " + quoteLiteral(c.Pattern) + ")"
		})
	case plan.ExprStrStartsWith:
		return stringCall(e.StrStartsWith.Expr, kind, func(x string) string {
			return "starts_with(" + x + ", " + quoteLiteral(e.StrStartsWith.Prefix) + ")"
		})
	case plan.ExprStrEndsWith:
		return stringCall(e.StrEndsWith.Expr, kind, func(x string) string {
			return "ends_with(" + x + ", " + quoteLiteral(e.StrEndsWith.Suffix) + ")"
		})
	case plan.ExprStrExtract:
		ex := e.StrExtract
		return stringCall(ex.Expr, kind, func(x string) string {
			pattern := quoteLiteral(ex.Pattern)
			// regexp_extract yields '' on no match; the engine contract is null.
			return "(CASE WHEN regexp_matches(" + x + ", " + pattern + ") THEN regexp_extract(" +
				x + ", " + pattern + ", " + formatUint(uint64(ex.GroupIndex)) + ") END)"
		})
	case plan.ExprStrReplace:
		r := e.StrReplace
		return stringCall(r.Expr, kind, func(x string) string {
			return "regexp_replace(" + x + ", " + quoteLiteral(replacePattern(r.Pattern, r.Literal)) +
				", " + quoteLiteral(rewriteReplacement(r.Value, r.Literal)) + ")"
		})
	case plan.ExprStrReplaceAll:
		r := e.StrReplaceAll
		return stringCall(r.Expr, kind, func(x string) string {
			if r.Literal {
				return "replace(" + x + ", " + quoteLiteral(r.Pattern) + ", " + quoteLiteral(r.Value) + ")"
			}
			return "regexp_replace(" + x + ", " + quoteLiteral(r.Pattern) +
				", " + quoteLiteral(rewriteReplacement(r.Value, false)) + ", 'g')"
		})
	case plan.ExprStrToLowercase:
		return stringCall(e.StrToLowercase.Expr, kind, func(x string) string {
			return "lower(" + x + ")"
		})
	case plan.ExprStrToUppercase:
		return stringCall(e.StrToUppercase.Expr, kind, func(x string) string {
			return "upper(" + x + ")"
		})
	case plan.ExprStrStripChars:
		return buildStripChars(e.StrStripChars)
	case plan.ExprStrSlice:
		return buildSlice(e.StrSlice)
	case plan.ExprStrSplit:
		return stringCall(e.StrSplit.Expr, kind, func(x string) string {
			return "string_split(" + x + ", " + quoteLiteral(e.StrSplit.By) + ")"
		})
	case plan.ExprStrPadStart:
		return buildPad(e.StrPadStart, kind, "lpad")
	case plan.ExprStrPadEnd:
		return buildPad(e.StrPadEnd, kind, "rpad")
	}
	return Expr{}, bridgeerr.Unsupportedf("expression type %s is not yet supported", kind)
}

// stringCall builds the subject of a string operation and applies render to it.
// The result keeps the subject's name.
func stringCall(subject *plan.Expr, kind plan.ExprKind, render func(x string) string) (Expr, error) {
	inner, err := buildInner(subject, kind.String())
	if err != nil {
		return Expr{}, err
	}
	return Expr{SQL: render(inner.SQL), Name: inner.Name}, nil
}

func buildStripChars(s *plan.StringStripChars) (Expr, error) {
	// A nil matcher means "strip whitespace", not "strip nothing".
	var matcher *string
	if s.Chars != "" {
		matcher = &s.Chars
	}
	return stringCall(s.Expr, plan.ExprStrStripChars, func(x string) string {
		if matcher == nil {
			return "trim(" + x + ", " + quoteLiteral(whitespace) + ")"
		}
		return "trim(" + x + ", " + quoteLiteral(*matcher) + ")"
	})
}

// maxStringSpan exceeds any DuckDB string length, so clamping slice bounds
// to it never changes a result and keeps the bound arithmetic inside BIGINT.
const maxStringSpan int64 = 1 << 40

// buildSlice translates a 0-based, optionally negative offset into DuckDB's
// 1-based substring. Bounds follow [offset, offset+length) clamped to the
// string, so a window starting before the string loses the overshoot.
func buildSlice(s *plan.StringSlice) (Expr, error) {
	offset := min(max(s.Offset, -maxStringSpan), maxStringSpan)
	length := int64(-1)
	if s.Length != nil {
		length = int64(min(*s.Length, uint64(maxStringSpan)))
	}

	return stringCall(s.Expr, plan.ExprStrSlice, func(x string) string {
		n := "length(" + x + ")"
		var start, stop string
		if offset >= 0 {
			start = "least(" + formatInt(offset) + ", " + n + ")"
			stop = "least(" + formatInt(offset+length) + ", " + n + ")"
		} else {
			from := "(" + n + " + " + formatInt(offset) + ")"
			start = "greatest(" + from + ", 0)"
			stop = "least(greatest(" + from + " + " + formatInt(length) + ", 0), " + n + ")"
		}
		if length < 0 {
			stop = n
		}
		return "substring(" + x + ", " + start + " + 1, " + stop + " - " + start + ")"
	})
}

func buildPad(p *plan.StringPad, kind plan.ExprKind, fn string) (Expr, error) {
	fill, err := parseFillChar(p.FillChar, kind.String())
	if err != nil {
		return Expr{}, err
	}
	n := formatUint(p.Length)
	// lpad and rpad truncate longer strings; padding never shortens a value.
	return stringCall(p.Expr, kind, func(x string) string {
		return "(CASE WHEN length(" + x + ") >= " + n + " THEN " + x +
			" ELSE " + fn + "(" + x + ", " + n + ", " + quoteLiteral(fill) + ") END)"
	})
}

// parseFillChar requires exactly one character.
func parseFillChar(value, name string) (string, error) {
	switch utf8.RuneCountInString(value) {
	case 0:
		return "", bridgeerr.InvalidArgumentf("%s fill_char cannot be empty", name)
	case 1:
		if r, _ := utf8.DecodeRuneInString(value); r == utf8.RuneError {
			return "", bridgeerr.InvalidArgumentf("%s fill_char is not valid UTF-8", name)
		}
		return value, nil
	default:
		return "", bridgeerr.InvalidArgumentf("%s fill_char must be a single character", name)
	}
}

func replacePattern(pattern string, literal bool) string {
	if literal {
		return regexp.QuoteMeta(pattern)
	}
	return pattern
}

var groupRef = regexp.MustCompile(`\$(\d+|\{\d+\})`)

// rewriteReplacement converts a replacement string to RE2 rewrite syntax.
// Literal replacements only need backslashes escaped; pattern replacements
// also turn $n and ${n} group references into \n, and $$ into $.
func rewriteReplacement(value string, literal bool) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	if literal {
		return escaped
	}
	const dollar = "\x00"
	escaped = strings.ReplaceAll(escaped, "$$", dollar)
	escaped = groupRef.ReplaceAllStringFunc(escaped, func(ref string) string {
		return `\` + strings.Trim(ref[1:], "{}")
	})
	return strings.ReplaceAll(escaped, dollar, "$")
}
