// Package nn holds the small float32 neural-network toolkit the GEM plugin
// trains: tensors, parameters, layers, criteria and optimizers.
package nn

import "fmt"

// Tensor is a dense row-major float32 array.
type Tensor struct {
	Shape []int
	Data  []float32
}

func NewTensor(shape ...int) *Tensor {
	n := 1
	for _, d := range shape {
		if d < 0 {
			panic(fmt.Sprintf("nn: negative dimension in shape %v", shape))
		}
		n *= d
	}
	return &Tensor{Shape: append([]int(nil), shape...), Data: make([]float32, n)}
}

func (t *Tensor) Numel() int {
	if t == nil {
		return 0
	}
	return len(t.Data)
}

func (t *Tensor) Clone() *Tensor {
	if t == nil {
		return nil
	}
	return &Tensor{
		Shape: append([]int(nil), t.Shape...),
		Data:  append([]float32(nil), t.Data...),
	}
}

// Zero clears the data in place.
func (t *Tensor) Zero() {
	if t == nil {
		return
	}
	for i := range t.Data {
		t.Data[i] = 0
	}
}

func (t *Tensor) SameShape(o *Tensor) bool {
	if t == nil || o == nil || len(t.Shape) != len(o.Shape) {
		return false
	}
	for i := range t.Shape {
		if t.Shape[i] != o.Shape[i] {
			return false
		}
	}
	return true
}
