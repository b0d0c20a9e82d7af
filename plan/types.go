// Package plan defines the versioned plan IR and its MessagePack wire codec.
//
// A plan is a tree of relational nodes (scans and transforms) carrying scalar
// expressions. Node, Expr and Literal are tagged unions: exactly one member
// pointer is set. Absent members are legal on the wire and are reported as
// semantic errors when the plan is interpreted.
package plan

// Plan is the root of a decoded plan.
type Plan struct {
	PlanVersion uint32 `msgpack:"plan_version"`
	Root        *Node  `msgpack:"root,omitempty"`
}

// Node is a relational operator.
type Node struct {
	MemoryScan  *MemoryScan  `msgpack:"memory_scan,omitempty"`
	FileScan    *FileScan    `msgpack:"file_scan,omitempty"`
	Project     *Project     `msgpack:"project,omitempty"`
	Filter      *Filter      `msgpack:"filter,omitempty"`
	WithColumns *WithColumns `msgpack:"with_columns,omitempty"`
	Limit       *Limit       `msgpack:"limit,omitempty"`
}

// MemoryScan reads the seed table supplied with the execute call.
// Non-empty ColumnNames project the seed to those columns, in order.
type MemoryScan struct {
	ColumnNames []string `msgpack:"column_names,omitempty"`
}

// FileFormat selects the reader used by FileScan.
type FileFormat int32

const (
	FormatUnspecified FileFormat = 0
	FormatCSV         FileFormat = 1
	FormatParquet     FileFormat = 2
)

func (f FileFormat) String() string {
	switch f {
	case FormatCSV:
		return "CSV"
	case FormatParquet:
		return "PARQUET"
	default:
		return "UNSPECIFIED"
	}
}

// FileScan reads a local file.
type FileScan struct {
	Path   string     `msgpack:"path"`
	Format FileFormat `msgpack:"format"`

	// Delimiter overrides the sniffed CSV delimiter when non-empty.
	Delimiter string `msgpack:"delimiter,omitempty"`

	// NoHeader treats the first CSV line as data.
	NoHeader bool `msgpack:"no_header,omitempty"`
}

type Project struct {
	Input       *Node   `msgpack:"input,omitempty"`
	Expressions []*Expr `msgpack:"expressions,omitempty"`
}

type Filter struct {
	Input     *Node `msgpack:"input,omitempty"`
	Predicate *Expr `msgpack:"predicate,omitempty"`
}

type WithColumns struct {
	Input       *Node   `msgpack:"input,omitempty"`
	Expressions []*Expr `msgpack:"expressions,omitempty"`
}

type Limit struct {
	Input *Node  `msgpack:"input,omitempty"`
	N     uint64 `msgpack:"n"`
}

// Expr is a scalar or column expression.
type Expr struct {
	Col      *Col      `msgpack:"col,omitempty"`
	Lit      *Literal  `msgpack:"lit,omitempty"`
	Binary   *Binary   `msgpack:"binary,omitempty"`
	Alias    *Alias    `msgpack:"alias,omitempty"`
	IsNull   *Unary    `msgpack:"is_null,omitempty"`
	Not      *Unary    `msgpack:"not,omitempty"`
	Wildcard *Wildcard `msgpack:"wildcard,omitempty"`
	Exclude  *Exclude  `msgpack:"exclude,omitempty"`
	Cast     *Cast     `msgpack:"cast,omitempty"`

	StrLenBytes    *StringFunction   `msgpack:"str_len_bytes,omitempty"`
	StrLenChars    *StringFunction   `msgpack:"str_len_chars,omitempty"`
	StrContains    *StringContains   `msgpack:"str_contains,omitempty"`
	StrStartsWith  *StringStartsWith `msgpack:"str_starts_with,omitempty"`
	StrEndsWith    *StringEndsWith   `msgpack:"str_ends_with,omitempty"`
	StrExtract     *StringExtract    `msgpack:"str_extract,omitempty"`
	StrReplace     *StringReplace    `msgpack:"str_replace,omitempty"`
	StrReplaceAll  *StringReplace    `msgpack:"str_replace_all,omitempty"`
	StrToLowercase *StringFunction   `msgpack:"str_to_lowercase,omitempty"`
	StrToUppercase *StringFunction   `msgpack:"str_to_uppercase,omitempty"`
	StrStripChars  *StringStripChars `msgpack:"str_strip_chars,omitempty"`
	StrSlice       *StringSlice      `msgpack:"str_slice,omitempty"`
	StrSplit       *StringSplit      `msgpack:"str_split,omitempty"`
	StrPadStart    *StringPad        `msgpack:"str_pad_start,omitempty"`
	StrPadEnd      *StringPad        `msgpack:"str_pad_end,omitempty"`
}

type Col struct {
	Name string `msgpack:"name"`
}

// Literal is a typed scalar value. Exactly one member is set.
type Literal struct {
	Int    *int64     `msgpack:"int,omitempty"`
	Float  *float64   `msgpack:"float,omitempty"`
	Bool   *bool      `msgpack:"bool,omitempty"`
	String *string    `msgpack:"string,omitempty"`
	Null   *NullValue `msgpack:"null,omitempty"`
}

// NullValue marks an untyped null literal.
type NullValue struct{}

type Binary struct {
	Op    BinaryOperator `msgpack:"op"`
	Left  *Expr          `msgpack:"left,omitempty"`
	Right *Expr          `msgpack:"right,omitempty"`
}

type Alias struct {
	Expr *Expr  `msgpack:"expr,omitempty"`
	Name string `msgpack:"name"`
}

// Unary wraps a single sub-expression (IsNull, Not).
type Unary struct {
	Expr *Expr `msgpack:"expr,omitempty"`
}

type Wildcard struct{}

// Exclude is decoded but never interpreted.
type Exclude struct {
	Expr    *Expr    `msgpack:"expr,omitempty"`
	Columns []string `msgpack:"columns,omitempty"`
}

type Cast struct {
	Expr     *Expr    `msgpack:"expr,omitempty"`
	DataType DataType `msgpack:"data_type"`
	Strict   bool     `msgpack:"strict"`
}

// StringFunction is a string operation without parameters.
type StringFunction struct {
	Expr *Expr `msgpack:"expr,omitempty"`
}

type StringContains struct {
	Expr    *Expr  `msgpack:"expr,omitempty"`
	Pattern string `msgpack:"pattern"`
	Literal bool   `msgpack:"literal"`
}

type StringStartsWith struct {
	Expr   *Expr  `msgpack:"expr,omitempty"`
	Prefix string `msgpack:"prefix"`
}

type StringEndsWith struct {
	Expr   *Expr  `msgpack:"expr,omitempty"`
	Suffix string `msgpack:"suffix"`
}

type StringExtract struct {
	Expr       *Expr  `msgpack:"expr,omitempty"`
	Pattern    string `msgpack:"pattern"`
	GroupIndex uint32 `msgpack:"group_index"`
}

type StringReplace struct {
	Expr    *Expr  `msgpack:"expr,omitempty"`
	Pattern string `msgpack:"pattern"`
	Value   string `msgpack:"value"`
	Literal bool   `msgpack:"literal"`
}

// StringStripChars strips Chars from both ends. Empty Chars strips whitespace.
type StringStripChars struct {
	Expr  *Expr  `msgpack:"expr,omitempty"`
	Chars string `msgpack:"chars"`
}

// StringSlice takes a substring. Offset is 0-based and may be negative
// (counted from the end). A nil Length runs to the end of the string.
type StringSlice struct {
	Expr   *Expr   `msgpack:"expr,omitempty"`
	Offset int64   `msgpack:"offset"`
	Length *uint64 `msgpack:"length,omitempty"`
}

type StringSplit struct {
	Expr *Expr  `msgpack:"expr,omitempty"`
	By   string `msgpack:"by"`
}

// StringPad pads to Length with FillChar, which must be a single character.
type StringPad struct {
	Expr     *Expr  `msgpack:"expr,omitempty"`
	Length   uint64 `msgpack:"length"`
	FillChar string `msgpack:"fill_char"`
}
