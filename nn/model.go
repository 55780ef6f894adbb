package nn

import (
	"fmt"
	"math"
	"math/rand"
)

// Model is a differentiable function of its parameters.
//
// Parameters returns the canonical parameter order. It must return the same
// params in the same order on every call; gradient flattening, reference
// gradients and projected-gradient reshaping all rely on it.
// Forward caches whatever Backward needs; Backward accumulates dLoss/dθ into
// Param.Grad and returns dLoss/dInput.
type Model interface {
	Parameters() []*Param
	Forward(x [][]float32) [][]float32
	Backward(dOut [][]float32) [][]float32
	Train(on bool)
}

// Linear computes y = x·Wᵀ + b with W of shape (out, in).
type Linear struct {
	In, Out int
	W, B    *Param

	x [][]float32
}

// NewLinear initialises weights uniformly in ±1/sqrt(in).
func NewLinear(name string, in, out int, rng *rand.Rand) *Linear {
	l := &Linear{
		In:  in,
		Out: out,
		W:   NewParam(name+".weight", out, in),
		B:   NewParam(name+".bias", out),
	}
	bound := 1.0 / math.Sqrt(float64(in))
	for i := range l.W.Value.Data {
		l.W.Value.Data[i] = float32((rng.Float64()*2 - 1) * bound)
	}
	for i := range l.B.Value.Data {
		l.B.Value.Data[i] = float32((rng.Float64()*2 - 1) * bound)
	}
	return l
}

func (l *Linear) Parameters() []*Param { return []*Param{l.W, l.B} }

func (l *Linear) Train(bool) {}

func (l *Linear) Forward(x [][]float32) [][]float32 {
	l.x = x
	w, b := l.W.Value.Data, l.B.Value.Data
	out := make([][]float32, len(x))
	for n, row := range x {
		if len(row) != l.In {
			panic(fmt.Sprintf("nn: linear %s expects %d inputs, got %d", l.W.Name, l.In, len(row)))
		}
		y := make([]float32, l.Out)
		for o := 0; o < l.Out; o++ {
			acc := b[o]
			wo := w[o*l.In : (o+1)*l.In]
			for i, v := range row {
				acc += wo[i] * v
			}
			y[o] = acc
		}
		out[n] = y
	}
	return out
}

func (l *Linear) Backward(dOut [][]float32) [][]float32 {
	if len(dOut) != len(l.x) {
		panic("nn: linear backward called without a matching forward")
	}
	w := l.W.Value.Data
	gw := l.W.ensureGrad().Data
	gb := l.B.ensureGrad().Data
	dx := make([][]float32, len(dOut))
	for n, d := range dOut {
		x := l.x[n]
		dxn := make([]float32, l.In)
		for o, g := range d {
			if g == 0 {
				continue
			}
			gb[o] += g
			off := o * l.In
			for i := 0; i < l.In; i++ {
				gw[off+i] += g * x[i]
				dxn[i] += g * w[off+i]
			}
		}
		dx[n] = dxn
	}
	return dx
}

// ReLU is max(0, x) element-wise.
type ReLU struct {
	mask [][]bool
}

func (r *ReLU) Parameters() []*Param { return nil }

func (r *ReLU) Train(bool) {}

func (r *ReLU) Forward(x [][]float32) [][]float32 {
	r.mask = make([][]bool, len(x))
	out := make([][]float32, len(x))
	for n, row := range x {
		m := make([]bool, len(row))
		y := make([]float32, len(row))
		for i, v := range row {
			if v > 0 {
				y[i] = v
				m[i] = true
			}
		}
		r.mask[n], out[n] = m, y
	}
	return out
}

func (r *ReLU) Backward(dOut [][]float32) [][]float32 {
	dx := make([][]float32, len(dOut))
	for n, d := range dOut {
		row := make([]float32, len(d))
		for i, g := range d {
			if r.mask[n][i] {
				row[i] = g
			}
		}
		dx[n] = row
	}
	return dx
}

// Sequential chains modules. Its parameter list is fixed at construction.
type Sequential struct {
	Layers   []Model
	params   []*Param
	training bool
}

func NewSequential(layers ...Model) *Sequential {
	s := &Sequential{Layers: layers, training: true}
	for _, l := range layers {
		s.params = append(s.params, l.Parameters()...)
	}
	return s
}

// NewMLP builds Linear/ReLU stacks, e.g. sizes {784, 256, 10}.
func NewMLP(sizes []int, seed int64) (*Sequential, error) {
	if len(sizes) < 2 {
		return nil, fmt.Errorf("nn: MLP needs at least input and output sizes, got %v", sizes)
	}
	for _, s := range sizes {
		if s <= 0 {
			return nil, fmt.Errorf("nn: MLP layer sizes must be positive, got %v", sizes)
		}
	}
	rng := rand.New(rand.NewSource(seed))
	var layers []Model
	for i := 0; i+1 < len(sizes); i++ {
		layers = append(layers, NewLinear(fmt.Sprintf("fc%d", i), sizes[i], sizes[i+1], rng))
		if i+2 < len(sizes) {
			layers = append(layers, &ReLU{})
		}
	}
	return NewSequential(layers...), nil
}

func (s *Sequential) Parameters() []*Param { return s.params }

func (s *Sequential) Training() bool { return s.training }

func (s *Sequential) Train(on bool) {
	s.training = on
	for _, l := range s.Layers {
		l.Train(on)
	}
}

func (s *Sequential) Forward(x [][]float32) [][]float32 {
	for _, l := range s.Layers {
		x = l.Forward(x)
	}
	return x
}

func (s *Sequential) Backward(dOut [][]float32) [][]float32 {
	for i := len(s.Layers) - 1; i >= 0; i-- {
		dOut = s.Layers[i].Backward(dOut)
	}
	return dOut
}
