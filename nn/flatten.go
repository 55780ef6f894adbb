// nn/flatten.go
package nn

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

// GradLen is the length of the vector FlattenGrads produces.
func GradLen(params []*Param) int {
	n := 0
	for _, p := range params {
		if p.Grad == nil {
			continue
		}
		n += p.Grad.Numel()
	}
	return n
}

// FlattenGrads concatenates the gradients of params in slice order and returns
// the vector together with a restore func that writes a vector of the same
// layout back into the gradient buffers. The parameter order of params is the
// canonical order; callers must pass the same slice to every walk.
//
// restore panics when the vector length does not match the walk: that means
// the parameter enumeration drifted between flattening and reshaping.
func FlattenGrads(params []*Param) ([]float32, func([]float32)) {
	buf := make([]float32, 0, GradLen(params))
	for _, p := range params {
		if p.Grad == nil {
			continue
		}
		buf = append(buf, p.Grad.Data...)
	}
	restore := func(vals []float32) {
		off := 0
		for _, p := range params {
			if p.Grad == nil {
				continue
			}
			n := p.Grad.Numel()
			if off+n > len(vals) {
				panic(fmt.Sprintf("nn: gradient vector too short: %d values, walk needs at least %d", len(vals), off+n))
			}
			copy(p.Grad.Data, vals[off:off+n])
			off += n
		}
		if off != len(vals) {
			panic(fmt.Sprintf("nn: error in projecting gradient: walked %d of %d values", off, len(vals)))
		}
	}
	return buf, restore
}

// ToFloat64 widens a working-precision vector for double-precision math.
func ToFloat64[T constraints.Float](v []T) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// FromFloat64 narrows v back to the working precision.
func FromFloat64[T constraints.Float](v []float64) []T {
	out := make([]T, len(v))
	for i, x := range v {
		out[i] = T(x)
	}
	return out
}
