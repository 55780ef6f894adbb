package nn

import "math"

// Optimizer applies gradient updates to params. Params must be passed in the
// same order on every call; per-parameter state is kept by position.
type Optimizer interface {
	Step(params []*Param)
	ZeroGrad(params []*Param)
	SetLR(lr float64)
	GetLR() float64
}

func zeroGrad(params []*Param) {
	for _, p := range params {
		p.Grad.Zero()
	}
}

// SGD with optional classical momentum.
type SGD struct {
	LR       float64
	Momentum float64
	buf      [][]float64
}

func NewSGD(lr, momentum float64) *SGD {
	return &SGD{LR: lr, Momentum: momentum}
}

func (opt *SGD) SetLR(lr float64) { opt.LR = lr }

func (opt *SGD) GetLR() float64 { return opt.LR }

func (opt *SGD) ZeroGrad(params []*Param) { zeroGrad(params) }

func (opt *SGD) Step(params []*Param) {
	if opt.Momentum != 0 && len(opt.buf) != len(params) {
		opt.buf = stateLike(params)
	}
	for pi, p := range params {
		if p.Grad == nil {
			continue
		}
		w, g := p.Value.Data, p.Grad.Data
		for i := range w {
			d := float64(g[i])
			if opt.Momentum != 0 {
				opt.buf[pi][i] = opt.Momentum*opt.buf[pi][i] + d
				d = opt.buf[pi][i]
			}
			w[i] -= float32(opt.LR * d)
		}
	}
}

type Adam struct {
	M, V  [][]float64 // First and second moment estimates
	LR    float64
	Beta1 float64 // Typically 0.9
	Beta2 float64 // Typically 0.999
	Eps   float64
	T     int // Timestep (for bias correction)
}

func NewAdam(lr float64) *Adam {
	return &Adam{
		LR:    lr,
		Beta1: 0.9,
		Beta2: 0.999,
		Eps:   1e-8,
	}
}

// SetLR updates the base learning rate.
func (opt *Adam) SetLR(lr float64) {
	opt.LR = lr
}

// GetLR returns the current base learning rate.
func (opt *Adam) GetLR() float64 {
	return opt.LR
}

func (opt *Adam) ZeroGrad(params []*Param) { zeroGrad(params) }

func (opt *Adam) Step(params []*Param) {
	if len(opt.M) != len(params) {
		opt.M, opt.V = stateLike(params), stateLike(params)
	}
	opt.T++

	// Bias correction factors
	bc1 := 1.0 - math.Pow(opt.Beta1, float64(opt.T))
	bc2 := 1.0 - math.Pow(opt.Beta2, float64(opt.T))

	for pi, p := range params {
		if p.Grad == nil {
			continue
		}
		m, v := opt.M[pi], opt.V[pi]
		w := p.Value.Data
		for i, gi := range p.Grad.Data {
			g := float64(gi)
			m[i] = opt.Beta1*m[i] + (1-opt.Beta1)*g
			v[i] = opt.Beta2*v[i] + (1-opt.Beta2)*g*g

			mHat := m[i] / bc1
			vHat := v[i] / bc2
			w[i] -= float32(opt.LR * mHat / (math.Sqrt(vHat) + opt.Eps))
		}
	}
}

type AdaGrad struct {
	G       [][]float64
	LR, Eps float64
}

func NewAdaGrad(lr float64) *AdaGrad {
	return &AdaGrad{LR: lr, Eps: 1e-8}
}

// SetLR updates the base learning rate.
func (opt *AdaGrad) SetLR(lr float64) {
	opt.LR = lr
}

// GetLR returns the current base learning rate.
func (opt *AdaGrad) GetLR() float64 {
	return opt.LR
}

func (opt *AdaGrad) ZeroGrad(params []*Param) { zeroGrad(params) }

func (opt *AdaGrad) Step(params []*Param) {
	if len(opt.G) != len(params) {
		opt.G = stateLike(params)
	}
	for pi, p := range params {
		if p.Grad == nil {
			continue
		}
		acc := opt.G[pi]
		w := p.Value.Data
		for i, gi := range p.Grad.Data {
			g := float64(gi)
			acc[i] += g * g
			w[i] -= float32(opt.LR / (math.Sqrt(acc[i]) + opt.Eps) * g)
		}
	}
}

func stateLike(params []*Param) [][]float64 {
	out := make([][]float64, len(params))
	for i, p := range params {
		out[i] = make([]float64, p.Value.Numel())
	}
	return out
}
