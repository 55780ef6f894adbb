package gem

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// qpRegularizer is added to the diagonal of G·Gᵀ so it stays positive definite
// when reference gradients are collinear.
const qpRegularizer = 1e-3

// ProjectGradient returns the gradient closest to g whose dot product with
// every row of G is non-negative, relaxed by memoryStrength. It solves the
// dual
//
//	min ½ xᵀPx − aᵀx  s.t.  x ≥ memoryStrength
//
// with P = sym(G·Gᵀ) + 1e-3·I and a = −G·g, and returns v* = Gᵀx + g.
// All arithmetic is float64.
func ProjectGradient(G *mat.Dense, g []float64, memoryStrength float64) ([]float64, error) {
	t, p := G.Dims()
	if len(g) != p {
		panic(fmt.Sprintf("gem: gradient has %d entries, reference matrix has %d columns", len(g), p))
	}

	var ggt mat.Dense
	ggt.Mul(G, G.T())
	P := mat.NewSymDense(t, nil)
	for i := 0; i < t; i++ {
		for j := i; j < t; j++ {
			v := 0.5 * (ggt.At(i, j) + ggt.At(j, i))
			if i == j {
				v += qpRegularizer
			}
			P.SetSym(i, j, v)
		}
	}

	gv := mat.NewVecDense(p, g)
	var a mat.VecDense
	a.MulVec(G, gv)
	a.ScaleVec(-1, &a)

	lower := make([]float64, t)
	for i := range lower {
		lower[i] = memoryStrength
	}
	x, err := SolveQP(P, a.RawVector().Data, lower)
	if err != nil {
		return nil, err
	}

	var v mat.VecDense
	v.MulVec(G.T(), mat.NewVecDense(t, x))
	v.AddVec(&v, gv)
	return append([]float64(nil), v.RawVector().Data...), nil
}

// SolveQP minimises ½ xᵀPx − aᵀx subject to x ≥ lower component-wise, for a
// small dense positive-definite P. It is a primal active-set method: start
// with every bound active, solve the equality-constrained problem on the free
// set by Cholesky, step back to the first bound crossed, and release the
// bound with the most negative multiplier until none is negative.
func SolveQP(P *mat.SymDense, a, lower []float64) ([]float64, error) {
	n := P.SymmetricDim()
	if len(a) != n || len(lower) != n {
		return nil, fmt.Errorf("%w: dimension mismatch: P is %d×%d, a has %d, lower has %d", ErrQPFailed, n, n, len(a), len(lower))
	}
	if n == 0 {
		return nil, nil
	}
	if hasNonFinite(a) || hasNonFinite(lower) {
		return nil, fmt.Errorf("%w: non-finite linear term or bound", ErrQPFailed)
	}

	tol := 1e-10 * (1 + floats.Norm(a, math.Inf(1)))
	x := append([]float64(nil), lower...)
	bound := make([]bool, n)
	for i := range bound {
		bound[i] = true
	}

	maxIter := 10 * (n + 1) * (n + 1)
	for iter := 0; iter < maxIter; iter++ {
		cand, err := solveFree(P, a, x, bound)
		if err != nil {
			return nil, err
		}

		// Largest step towards cand that keeps free variables feasible.
		alpha, blocking := 1.0, -1
		for i := 0; i < n; i++ {
			if bound[i] {
				continue
			}
			d := cand[i] - x[i]
			if d >= 0 || cand[i] >= lower[i] {
				continue
			}
			if step := (lower[i] - x[i]) / d; step < alpha {
				alpha, blocking = step, i
			}
		}
		if blocking >= 0 {
			for i := 0; i < n; i++ {
				if !bound[i] {
					x[i] += alpha * (cand[i] - x[i])
				}
			}
			x[blocking] = lower[blocking]
			bound[blocking] = true
			continue
		}
		copy(x, cand)

		// Multipliers of active bounds are the gradient entries P·x − a.
		release, most := -1, -tol
		for i := 0; i < n; i++ {
			if !bound[i] {
				continue
			}
			lambda := -a[i]
			for j := 0; j < n; j++ {
				lambda += P.At(i, j) * x[j]
			}
			if lambda < most {
				release, most = i, lambda
			}
		}
		if release < 0 {
			if hasNonFinite(x) {
				return nil, fmt.Errorf("%w: non-finite solution", ErrQPFailed)
			}
			return x, nil
		}
		bound[release] = false
	}
	return nil, fmt.Errorf("%w: no convergence after %d active-set iterations", ErrQPFailed, maxIter)
}

// solveFree solves P_FF·y = a_F − P_FB·x_B for the free set F and returns x
// with the free entries replaced by y.
func solveFree(P *mat.SymDense, a, x []float64, bound []bool) ([]float64, error) {
	var free []int
	for i, b := range bound {
		if !b {
			free = append(free, i)
		}
	}
	out := append([]float64(nil), x...)
	if len(free) == 0 {
		return out, nil
	}

	pff := mat.NewSymDense(len(free), nil)
	rhs := mat.NewVecDense(len(free), nil)
	for r, i := range free {
		for c := r; c < len(free); c++ {
			pff.SetSym(r, c, P.At(i, free[c]))
		}
		v := a[i]
		for j, b := range bound {
			if b {
				v -= P.At(i, j) * x[j]
			}
		}
		rhs.SetVec(r, v)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(pff); !ok {
		return nil, fmt.Errorf("%w: reduced system of size %d is not positive definite", ErrQPFailed, len(free))
	}
	var y mat.VecDense
	if err := chol.SolveVecTo(&y, rhs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQPFailed, err)
	}
	for r, i := range free {
		out[i] = y.AtVec(r)
	}
	return out, nil
}

func hasNonFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return true
		}
	}
	return false
}
