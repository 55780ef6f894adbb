package nn

// Param is a trainable tensor and its gradient buffer. A nil Grad means the
// parameter took no part in the last backward pass and is skipped by every
// flatten/unflatten walk.
type Param struct {
	Name  string
	Value *Tensor
	Grad  *Tensor
}

func NewParam(name string, shape ...int) *Param {
	return &Param{Name: name, Value: NewTensor(shape...)}
}

// ensureGrad allocates the gradient buffer on first use.
func (p *Param) ensureGrad() *Tensor {
	if p.Grad == nil {
		p.Grad = NewTensor(p.Value.Shape...)
	}
	return p.Grad
}

// NumParams counts the scalar entries across params.
func NumParams(params []*Param) int {
	n := 0
	for _, p := range params {
		n += p.Value.Numel()
	}
	return n
}
