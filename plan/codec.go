package plan

import (
	"errors"
	"fmt"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/hugr-lab/planbridge/bridgeerr"
	"github.com/hugr-lab/planbridge/internal/serialize"
)

// Supported plan versions. Plans outside [MinPlanVersion, MaxPlanVersion]
// are rejected before the tree is decoded.
const (
	MinPlanVersion uint32 = 1
	MaxPlanVersion uint32 = 1
)

// MaxDepth bounds the nesting of nodes and expressions in a decoded plan.
const MaxDepth = 512

// header is decoded first so an incompatible producer never reaches the tree decoder.
type header struct {
	PlanVersion uint32 `msgpack:"plan_version"`
}

// Decoder turns wire bytes into a Plan.
type Decoder struct {
	decompressor *serialize.Decompressor
}

// NewDecoder creates a decoder. maxDecoded caps the size of decompressed
// payloads; zero selects the package default.
func NewDecoder(maxDecoded uint64) (*Decoder, error) {
	d, err := serialize.NewDecompressor(maxDecoded)
	if err != nil {
		return nil, err
	}
	return &Decoder{decompressor: d}, nil
}

// Close releases the decompressor.
func (d *Decoder) Close() {
	d.decompressor.Close()
}

var (
	defaultDecoderOnce sync.Once
	defaultDecoder     *Decoder
	defaultDecoderErr  error
)

// Decode decodes plan bytes with a shared default decoder.
func Decode(data []byte) (*Plan, error) {
	defaultDecoderOnce.Do(func() {
		defaultDecoder, defaultDecoderErr = NewDecoder(0)
	})
	if defaultDecoderErr != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Unknown, defaultDecoderErr, "plan decoder unavailable")
	}
	return defaultDecoder.Decode(data)
}

// Decode parses data as a MessagePack plan, optionally zstd-compressed.
//
// Errors:
//   - PlanDecode for empty, truncated or malformed payloads, for nodes or
//     expressions with more than one member set, and for trees nested
//     deeper than MaxDepth
//   - PlanVersionUnsupported when plan_version is outside the supported range
//   - Oom when a compressed payload exceeds the decompression cap
func (d *Decoder) Decode(data []byte) (*Plan, error) {
	if len(data) == 0 {
		return nil, bridgeerr.PlanDecode("empty plan bytes")
	}

	if serialize.IsCompressed(data) {
		raw, err := d.decompressor.Decompress(data)
		if err != nil {
			if errors.Is(err, serialize.ErrTooLarge) {
				return nil, bridgeerr.Wrap(bridgeerr.OomCode, err, "plan payload too large")
			}
			return nil, bridgeerr.Wrap(bridgeerr.PlanDecodeCode, err, "failed to decompress plan")
		}
		data = raw
	}

	h, tooDeep, err := scanHeader(data)
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.PlanDecodeCode, err, "failed to decode plan header")
	}
	if h.PlanVersion < MinPlanVersion || h.PlanVersion > MaxPlanVersion {
		return nil, bridgeerr.VersionUnsupported(h.PlanVersion)
	}
	if tooDeep {
		return nil, bridgeerr.PlanDecodef("plan nesting exceeds %d levels", MaxDepth)
	}

	var p Plan
	if err := msgpack.Unmarshal(data, &p); err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.PlanDecodeCode, err, "failed to decode plan")
	}
	if err := validateNode(p.Root, 0); err != nil {
		return nil, err
	}
	return &p, nil
}

// Encode serializes p as MessagePack.
func Encode(p *Plan) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("plan is nil")
	}
	data, err := msgpack.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode plan: %w", err)
	}
	return data, nil
}

// EncodeCompressed serializes p and wraps it in a zstd frame.
func EncodeCompressed(p *Plan) ([]byte, error) {
	data, err := Encode(p)
	if err != nil {
		return nil, err
	}
	c, err := serialize.NewCompressor()
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return c.Compress(data), nil
}

// validateNode checks the decoded tree's shape. Missing members are left to
// the interpreter; several members on one union are a wire error.
func validateNode(n *Node, depth int) error {
	if n == nil {
		return nil
	}
	if depth > MaxDepth {
		return bridgeerr.PlanDecodef("plan nesting exceeds %d levels", MaxDepth)
	}
	kind, count := n.Kind()
	if count > 1 {
		return bridgeerr.PlanDecodef("node sets %d kinds", count)
	}

	switch kind {
	case NodeProject:
		for _, e := range n.Project.Expressions {
			if err := validateExpr(e, depth+1); err != nil {
				return err
			}
		}
		return validateNode(n.Project.Input, depth+1)
	case NodeFilter:
		if err := validateExpr(n.Filter.Predicate, depth+1); err != nil {
			return err
		}
		return validateNode(n.Filter.Input, depth+1)
	case NodeWithColumns:
		for _, e := range n.WithColumns.Expressions {
			if err := validateExpr(e, depth+1); err != nil {
				return err
			}
		}
		return validateNode(n.WithColumns.Input, depth+1)
	case NodeLimit:
		return validateNode(n.Limit.Input, depth+1)
	}
	return nil
}

func validateExpr(e *Expr, depth int) error {
	if e == nil {
		return nil
	}
	if depth > MaxDepth {
		return bridgeerr.PlanDecodef("plan nesting exceeds %d levels", MaxDepth)
	}
	kind, count := e.Kind()
	if count > 1 {
		return bridgeerr.PlanDecodef("expression sets %d kinds", count)
	}
	if kind == ExprLit {
		if _, n := e.Lit.Kind(); n > 1 {
			return bridgeerr.PlanDecodef("literal sets %d values", n)
		}
	}
	for _, child := range e.Children() {
		if err := validateExpr(child, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// Children returns the direct sub-expressions of e.
func (e *Expr) Children() []*Expr {
	kind, _ := e.Kind()
	switch kind {
	case ExprBinary:
		return []*Expr{e.Binary.Left, e.Binary.Right}
	case ExprAlias:
		return []*Expr{e.Alias.Expr}
	case ExprIsNull:
		return []*Expr{e.IsNull.Expr}
	case ExprNot:
		return []*Expr{e.Not.Expr}
	case ExprExclude:
		return []*Expr{e.Exclude.Expr}
	case ExprCast:
		return []*Expr{e.Cast.Expr}
	case ExprStrLenBytes:
		return []*Expr{e.StrLenBytes.Expr}
	case ExprStrLenChars:
		return []*Expr{e.StrLenChars.Expr}
	case ExprStrContains:
		return []*Expr{e.StrContains.Expr}
	case ExprStrStartsWith:
		return []*Expr{e.StrStartsWith.Expr}
	case ExprStrEndsWith:
		return []*Expr{e.StrEndsWith.Expr}
	case ExprStrExtract:
		return []*Expr{e.StrExtract.Expr}
	case ExprStrReplace:
		return []*Expr{e.StrReplace.Expr}
	case ExprStrReplaceAll:
		return []*Expr{e.StrReplaceAll.Expr}
	case ExprStrToLowercase:
		return []*Expr{e.StrToLowercase.Expr}
	case ExprStrToUppercase:
		return []*Expr{e.StrToUppercase.Expr}
	case ExprStrStripChars:
		return []*Expr{e.StrStripChars.Expr}
	case ExprStrSlice:
		return []*Expr{e.StrSlice.Expr}
	case ExprStrSplit:
		return []*Expr{e.StrSplit.Expr}
	case ExprStrPadStart:
		return []*Expr{e.StrPadStart.Expr}
	case ExprStrPadEnd:
		return []*Expr{e.StrPadEnd.Expr}
	}
	return nil
}
