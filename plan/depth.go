package plan

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// maxWireDepth bounds raw MessagePack container nesting below the top-level
// plan map. One plan level costs at most a union map, its member map and an
// expression array.
const maxWireDepth = 4*MaxDepth + 4

// scanHeader reads plan_version and measures container nesting without
// recursion. The reflective decoder recurses once per level, so a deep
// payload must be rejected before it reaches msgpack.Unmarshal.
func scanHeader(data []byte) (h header, tooDeep bool, err error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))

	code, err := dec.PeekCode()
	if err != nil {
		return h, false, err
	}
	if !isMap(code) {
		return h, false, fmt.Errorf("plan is not a map (code %#x)", code)
	}
	n, err := dec.DecodeMapLen()
	if err != nil {
		return h, false, err
	}
	for i := 0; i < n; i++ {
		key, err := dec.DecodeString()
		if err != nil {
			return h, false, err
		}
		if key == "plan_version" {
			if h.PlanVersion, err = dec.DecodeUint32(); err != nil {
				return h, false, err
			}
			continue
		}
		deep, err := skipValue(dec, maxWireDepth)
		if err != nil {
			return h, false, err
		}
		tooDeep = tooDeep || deep
	}
	return h, tooDeep, nil
}

// skipValue consumes one value with an explicit stack and reports whether
// its containers nest deeper than limit. The walk continues past the limit
// so fields after a deep one are still reached.
func skipValue(dec *msgpack.Decoder, limit int) (tooDeep bool, err error) {
	// pending[i] is the number of values still to read in the i-th open container.
	pending := []int{1}
	for len(pending) > 0 {
		top := len(pending) - 1
		if pending[top] == 0 {
			pending = pending[:top]
			continue
		}
		pending[top]--

		code, err := dec.PeekCode()
		if err != nil {
			return tooDeep, err
		}

		var n int
		switch {
		case isMap(code):
			if n, err = dec.DecodeMapLen(); err == nil {
				n *= 2
			}
		case isArray(code):
			n, err = dec.DecodeArrayLen()
		default:
			err = dec.Skip()
			n = -1
		}
		if err != nil {
			return tooDeep, err
		}
		if n < 0 {
			continue
		}
		if len(pending) > limit {
			tooDeep = true
		}
		pending = append(pending, n)
	}
	return tooDeep, nil
}

func isMap(code byte) bool {
	return msgpcode.IsFixedMap(code) || code == msgpcode.Map16 || code == msgpcode.Map32
}

func isArray(code byte) bool {
	return msgpcode.IsFixedArray(code) || code == msgpcode.Array16 || code == msgpcode.Array32
}
