package lazy

import "github.com/hugr-lab/planbridge/plan"

func (x Expr) fn() *plan.StringFunction {
	return &plan.StringFunction{Expr: x.e}
}

// StrLenBytes returns the UTF-8 byte length.
func (x Expr) StrLenBytes() Expr {
	return Expr{&plan.Expr{StrLenBytes: x.fn()}}
}

// StrLenChars returns the length in characters.
func (x Expr) StrLenChars() Expr {
	return Expr{&plan.Expr{StrLenChars: x.fn()}}
}

// StrContains matches pattern as a regular expression, or as plain text when literal is set.
func (x Expr) StrContains(pattern string, literal bool) Expr {
	return Expr{&plan.Expr{StrContains: &plan.StringContains{Expr: x.e, Pattern: pattern, Literal: literal}}}
}

func (x Expr) StrStartsWith(prefix string) Expr {
	return Expr{&plan.Expr{StrStartsWith: &plan.StringStartsWith{Expr: x.e, Prefix: prefix}}}
}

func (x Expr) StrEndsWith(suffix string) Expr {
	return Expr{&plan.Expr{StrEndsWith: &plan.StringEndsWith{Expr: x.e, Suffix: suffix}}}
}

// StrExtract returns capture group groupIndex of the first match, or null.
func (x Expr) StrExtract(pattern string, groupIndex uint32) Expr {
	return Expr{&plan.Expr{StrExtract: &plan.StringExtract{Expr: x.e, Pattern: pattern, GroupIndex: groupIndex}}}
}

// StrReplace replaces the first match.
func (x Expr) StrReplace(pattern, value string, literal bool) Expr {
	return Expr{&plan.Expr{StrReplace: &plan.StringReplace{Expr: x.e, Pattern: pattern, Value: value, Literal: literal}}}
}

// StrReplaceAll replaces every match.
func (x Expr) StrReplaceAll(pattern, value string, literal bool) Expr {
	return Expr{&plan.Expr{StrReplaceAll: &plan.StringReplace{Expr: x.e, Pattern: pattern, Value: value, Literal: literal}}}
}

func (x Expr) StrToLowercase() Expr {
	return Expr{&plan.Expr{StrToLowercase: x.fn()}}
}

func (x Expr) StrToUppercase() Expr {
	return Expr{&plan.Expr{StrToUppercase: x.fn()}}
}

// StrStripChars strips chars from both ends; an empty set strips whitespace.
func (x Expr) StrStripChars(chars string) Expr {
	return Expr{&plan.Expr{StrStripChars: &plan.StringStripChars{Expr: x.e, Chars: chars}}}
}

// StrSlice takes length characters from offset. Without length it runs to the end.
func (x Expr) StrSlice(offset int64, length ...uint64) Expr {
	s := &plan.StringSlice{Expr: x.e, Offset: offset}
	if len(length) > 0 {
		l := length[0]
		s.Length = &l
	}
	return Expr{&plan.Expr{StrSlice: s}}
}

func (x Expr) StrSplit(by string) Expr {
	return Expr{&plan.Expr{StrSplit: &plan.StringSplit{Expr: x.e, By: by}}}
}

func (x Expr) StrPadStart(length uint64, fillChar string) Expr {
	return Expr{&plan.Expr{StrPadStart: &plan.StringPad{Expr: x.e, Length: length, FillChar: fillChar}}}
}

func (x Expr) StrPadEnd(length uint64, fillChar string) Expr {
	return Expr{&plan.Expr{StrPadEnd: &plan.StringPad{Expr: x.e, Length: length, FillChar: fillChar}}}
}
