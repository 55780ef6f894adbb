package gem

import (
	"fmt"
	"math"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"continual-gem/nn"
)

// Host is what the projector borrows from the training loop to compute
// reference gradients. Model.Parameters() is the canonical order for all
// flatten/unflatten walks.
type Host struct {
	Model     nn.Model
	Criterion nn.Criterion
	Optimizer nn.Optimizer
}

// Projector keeps the reference-gradient matrix G, one row per prior
// experience, and projects the current gradient against it.
type Projector struct {
	memoryStrength float64

	g       *mat.Dense // nil until the first refresh with prior experiences
	rows    int
	lastMin float64
}

func NewProjector(memoryStrength float64) (*Projector, error) {
	if memoryStrength < 0 || math.IsNaN(memoryStrength) || math.IsInf(memoryStrength, 0) {
		return nil, fmt.Errorf("%w: memory strength must be a finite non-negative number, got %v", ErrInvalidConfig, memoryStrength)
	}
	return &Projector{memoryStrength: memoryStrength}, nil
}

func (p *Projector) MemoryStrength() float64 { return p.memoryStrength }

// Reference returns G, or nil when no prior experience exists.
func (p *Projector) Reference() *mat.Dense { return p.g }

// LastMinDot is the smallest entry of G·g seen by the last MaybeProject.
func (p *Projector) LastMinDot() float64 { return p.lastMin }

// Refresh rebuilds G from the stored samples of experiences [0, counter)
// against the current parameters. It must run before the current batch's
// backward pass: it runs its own backward passes through the same gradient
// buffers and leaves them zeroed.
func (p *Projector) Refresh(h Host, mem *Memory, counter int) error {
	if counter <= 0 {
		p.g, p.rows = nil, 0
		return nil
	}
	if h.Criterion == nil {
		return ErrMissingCriterion
	}
	if h.Model == nil || h.Optimizer == nil {
		return fmt.Errorf("%w: model and optimizer are required", ErrInvalidConfig)
	}

	params := h.Model.Parameters()
	h.Model.Train(true)

	var data []float64
	cols := -1
	for t := 0; t < counter; t++ {
		ref, ok := mem.get(t)
		if !ok || ref.Len() == 0 {
			p.g, p.rows = nil, 0
			return fmt.Errorf("%w: experience %d (refresh for %d prior experiences)", ErrMissingMemory, t, counter)
		}
		var row []float32
		withCleanGrads(h.Optimizer, params, func() {
			nn.LossBackward(h.Model, h.Criterion, ref.X, ref.Y)
			row, _ = nn.FlattenGrads(params)
		})
		if cols < 0 {
			cols = len(row)
			data = make([]float64, 0, counter*cols)
		} else if len(row) != cols {
			panic(fmt.Sprintf("gem: reference gradient %d has %d entries, earlier rows have %d", t, len(row), cols))
		}
		data = append(data, nn.ToFloat64(row)...)
	}
	if cols == 0 {
		p.g, p.rows = nil, 0
		return fmt.Errorf("%w: model produced no gradients", ErrInvalidConfig)
	}
	p.g, p.rows = mat.NewDense(counter, cols, data), counter
	return nil
}

// withCleanGrads zeroes gradient buffers around fn, on every exit path.
func withCleanGrads(opt nn.Optimizer, params []*nn.Param, fn func()) {
	opt.ZeroGrad(params)
	defer opt.ZeroGrad(params)
	fn()
}

// MaybeProject checks the current gradient of params against G and, when it
// conflicts with any prior experience, overwrites it with the projection.
// It reports whether the gradient was changed.
func (p *Projector) MaybeProject(params []*nn.Param, counter int) (bool, error) {
	if counter <= 0 {
		return false, nil
	}
	if p.g == nil || p.rows != counter {
		return false, fmt.Errorf("%w: have %d rows, need %d", ErrStaleReference, p.rows, counter)
	}

	g32, restore := nn.FlattenGrads(params)
	_, cols := p.g.Dims()
	if len(g32) != cols {
		panic(fmt.Sprintf("gem: current gradient has %d entries, reference rows have %d", len(g32), cols))
	}
	g := nn.ToFloat64(g32)

	var dots mat.VecDense
	dots.MulVec(p.g, mat.NewVecDense(len(g), g))
	p.lastMin = floats.Min(dots.RawVector().Data)
	if p.lastMin >= 0 {
		return false, nil
	}

	vStar, err := ProjectGradient(p.g, g, p.memoryStrength)
	if err != nil {
		return false, err
	}
	restore(nn.FromFloat64[float32](vStar))
	log.Debug("gradient projected", "experiences", counter, "min_dot", p.lastMin)
	return true, nil
}
