package plan

import "fmt"

// BinaryOperator is the wire code of a binary operator.
type BinaryOperator int32

const (
	OpUnspecified BinaryOperator = 0
	OpAdd         BinaryOperator = 1
	OpSub         BinaryOperator = 2
	OpMul         BinaryOperator = 3
	OpDiv         BinaryOperator = 4
	OpMod         BinaryOperator = 5
	OpPow         BinaryOperator = 6
	OpEq          BinaryOperator = 7
	OpNe          BinaryOperator = 8
	OpLt          BinaryOperator = 9
	OpLe          BinaryOperator = 10
	OpGt          BinaryOperator = 11
	OpGe          BinaryOperator = 12
	OpAnd         BinaryOperator = 13
	OpOr          BinaryOperator = 14
	OpXor         BinaryOperator = 15
)

var binaryOperatorNames = map[BinaryOperator]string{
	OpAdd: "ADD", OpSub: "SUB", OpMul: "MUL", OpDiv: "DIV", OpMod: "MOD", OpPow: "POW",
	OpEq: "EQ", OpNe: "NE", OpLt: "LT", OpLe: "LE", OpGt: "GT", OpGe: "GE",
	OpAnd: "AND", OpOr: "OR", OpXor: "XOR",
}

// Valid reports whether op is one of the enumerated operators.
func (op BinaryOperator) Valid() bool {
	_, ok := binaryOperatorNames[op]
	return ok
}

func (op BinaryOperator) String() string {
	if name, ok := binaryOperatorNames[op]; ok {
		return name
	}
	return fmt.Sprintf("BinaryOperator(%d)", int32(op))
}

// DataType is the wire tag of a cast target type.
type DataType int32

const (
	TypeUnspecified DataType = 0
	TypeInt8        DataType = 1
	TypeInt16       DataType = 2
	TypeInt32       DataType = 3
	TypeInt64       DataType = 4
	TypeUint8       DataType = 5
	TypeUint16      DataType = 6
	TypeUint32      DataType = 7
	TypeUint64      DataType = 8
	TypeFloat32     DataType = 9
	TypeFloat64     DataType = 10
	TypeBool        DataType = 11
	TypeUtf8        DataType = 12
	TypeDate        DataType = 13
	TypeDatetime    DataType = 14
	TypeTime        DataType = 15
)

var dataTypeNames = map[DataType]string{
	TypeInt8: "Int8", TypeInt16: "Int16", TypeInt32: "Int32", TypeInt64: "Int64",
	TypeUint8: "UInt8", TypeUint16: "UInt16", TypeUint32: "UInt32", TypeUint64: "UInt64",
	TypeFloat32: "Float32", TypeFloat64: "Float64", TypeBool: "Boolean", TypeUtf8: "Utf8",
	TypeDate: "Date", TypeDatetime: "Datetime", TypeTime: "Time",
}

func (t DataType) Valid() bool {
	_, ok := dataTypeNames[t]
	return ok
}

func (t DataType) String() string {
	if name, ok := dataTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("DataType(%d)", int32(t))
}

// DataTypes returns every cast target in wire order.
func DataTypes() []DataType {
	out := make([]DataType, 0, len(dataTypeNames))
	for t := TypeInt8; t <= TypeTime; t++ {
		out = append(out, t)
	}
	return out
}

// NodeKind identifies which member of a Node is set.
type NodeKind int

const (
	NodeNone NodeKind = iota
	NodeMemoryScan
	NodeFileScan
	NodeProject
	NodeFilter
	NodeWithColumns
	NodeLimit
)

var nodeKindNames = [...]string{
	NodeNone:        "None",
	NodeMemoryScan:  "MemoryScan",
	NodeFileScan:    "FileScan",
	NodeProject:     "Project",
	NodeFilter:      "Filter",
	NodeWithColumns: "WithColumns",
	NodeLimit:       "Limit",
}

func (k NodeKind) String() string {
	if k >= 0 && int(k) < len(nodeKindNames) {
		return nodeKindNames[k]
	}
	return fmt.Sprintf("NodeKind(%d)", int(k))
}

// NodeKinds returns every concrete node kind.
func NodeKinds() []NodeKind {
	return []NodeKind{NodeMemoryScan, NodeFileScan, NodeProject, NodeFilter, NodeWithColumns, NodeLimit}
}

// Kind returns the set member and how many members are set.
// A well-formed node has exactly one.
func (n *Node) Kind() (NodeKind, int) {
	if n == nil {
		return NodeNone, 0
	}
	kind, count := NodeNone, 0
	set := func(ok bool, k NodeKind) {
		if ok {
			kind = k
			count++
		}
	}
	set(n.MemoryScan != nil, NodeMemoryScan)
	set(n.FileScan != nil, NodeFileScan)
	set(n.Project != nil, NodeProject)
	set(n.Filter != nil, NodeFilter)
	set(n.WithColumns != nil, NodeWithColumns)
	set(n.Limit != nil, NodeLimit)
	return kind, count
}

// ExprKind identifies which member of an Expr is set.
type ExprKind int

const (
	ExprNone ExprKind = iota
	ExprCol
	ExprLit
	ExprBinary
	ExprAlias
	ExprIsNull
	ExprNot
	ExprWildcard
	ExprExclude
	ExprCast
	ExprStrLenBytes
	ExprStrLenChars
	ExprStrContains
	ExprStrStartsWith
	ExprStrEndsWith
	ExprStrExtract
	ExprStrReplace
	ExprStrReplaceAll
	ExprStrToLowercase
	ExprStrToUppercase
	ExprStrStripChars
	ExprStrSlice
	ExprStrSplit
	ExprStrPadStart
	ExprStrPadEnd
)

var exprKindNames = [...]string{
	ExprNone:           "None",
	ExprCol:            "Col",
	ExprLit:            "Lit",
	ExprBinary:         "Binary",
	ExprAlias:          "Alias",
	ExprIsNull:         "IsNull",
	ExprNot:            "Not",
	ExprWildcard:       "Wildcard",
	ExprExclude:        "Exclude",
	ExprCast:           "Cast",
	ExprStrLenBytes:    "StrLenBytes",
	ExprStrLenChars:    "StrLenChars",
	ExprStrContains:    "StrContains",
	ExprStrStartsWith:  "StrStartsWith",
	ExprStrEndsWith:    "StrEndsWith",
	ExprStrExtract:     "StrExtract",
	ExprStrReplace:     "StrReplace",
	ExprStrReplaceAll:  "StrReplaceAll",
	ExprStrToLowercase: "StrToLowercase",
	ExprStrToUppercase: "StrToUppercase",
	ExprStrStripChars:  "StrStripChars",
	ExprStrSlice:       "StrSlice",
	ExprStrSplit:       "StrSplit",
	ExprStrPadStart:    "StrPadStart",
	ExprStrPadEnd:      "StrPadEnd",
}

func (k ExprKind) String() string {
	if k >= 0 && int(k) < len(exprKindNames) {
		return exprKindNames[k]
	}
	return fmt.Sprintf("ExprKind(%d)", int(k))
}

// ExprKinds returns every concrete expression kind, including the ones that
// decode but are rejected during interpretation.
func ExprKinds() []ExprKind {
	out := make([]ExprKind, 0, len(exprKindNames)-1)
	for k := ExprCol; k <= ExprStrPadEnd; k++ {
		out = append(out, k)
	}
	return out
}

// Kind returns the set member and how many members are set.
func (e *Expr) Kind() (ExprKind, int) {
	if e == nil {
		return ExprNone, 0
	}
	kind, count := ExprNone, 0
	set := func(ok bool, k ExprKind) {
		if ok {
			kind = k
			count++
		}
	}
	set(e.Col != nil, ExprCol)
	set(e.Lit != nil, ExprLit)
	set(e.Binary != nil, ExprBinary)
	set(e.Alias != nil, ExprAlias)
	set(e.IsNull != nil, ExprIsNull)
	set(e.Not != nil, ExprNot)
	set(e.Wildcard != nil, ExprWildcard)
	set(e.Exclude != nil, ExprExclude)
	set(e.Cast != nil, ExprCast)
	set(e.StrLenBytes != nil, ExprStrLenBytes)
	set(e.StrLenChars != nil, ExprStrLenChars)
	set(e.StrContains != nil, ExprStrContains)
	set(e.StrStartsWith != nil, ExprStrStartsWith)
	set(e.StrEndsWith != nil, ExprStrEndsWith)
	set(e.StrExtract != nil, ExprStrExtract)
	set(e.StrReplace != nil, ExprStrReplace)
	set(e.StrReplaceAll != nil, ExprStrReplaceAll)
	set(e.StrToLowercase != nil, ExprStrToLowercase)
	set(e.StrToUppercase != nil, ExprStrToUppercase)
	set(e.StrStripChars != nil, ExprStrStripChars)
	set(e.StrSlice != nil, ExprStrSlice)
	set(e.StrSplit != nil, ExprStrSplit)
	set(e.StrPadStart != nil, ExprStrPadStart)
	set(e.StrPadEnd != nil, ExprStrPadEnd)
	return kind, count
}

// LiteralKind identifies which member of a Literal is set.
type LiteralKind int

const (
	LitNone LiteralKind = iota
	LitInt
	LitFloat
	LitBool
	LitString
	LitNull
)

// Kind returns the set member and how many members are set.
func (l *Literal) Kind() (LiteralKind, int) {
	if l == nil {
		return LitNone, 0
	}
	kind, count := LitNone, 0
	set := func(ok bool, k LiteralKind) {
		if ok {
			kind = k
			count++
		}
	}
	set(l.Int != nil, LitInt)
	set(l.Float != nil, LitFloat)
	set(l.Bool != nil, LitBool)
	set(l.String != nil, LitString)
	set(l.Null != nil, LitNull)
	return kind, count
}
