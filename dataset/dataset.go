// Package dataset implements labelled sample sets, sequential chunking and the
// experience stream a continual-learning run consumes.
package dataset

import "fmt"

// Samples is a batch of feature rows and their integer labels.
type Samples struct {
	X [][]float32
	Y []int
}

func (s Samples) Len() int { return len(s.Y) }

// Clone deep-copies rows so later mutation of the source cannot reach the copy.
func (s Samples) Clone() Samples {
	out := Samples{X: make([][]float32, len(s.X)), Y: append([]int(nil), s.Y...)}
	for i, row := range s.X {
		out.X[i] = append([]float32(nil), row...)
	}
	return out
}

// Slice returns rows [lo, hi) sharing storage with s.
func (s Samples) Slice(lo, hi int) Samples {
	return Samples{X: s.X[lo:hi], Y: s.Y[lo:hi]}
}

// Append deep-copies o onto the end of s.
func (s Samples) Append(o Samples) Samples {
	c := o.Clone()
	return Samples{X: append(s.X, c.X...), Y: append(s.Y, c.Y...)}
}

// Dataset is random-access labelled data.
type Dataset interface {
	Len() int
	Sample(i int) ([]float32, int)
}

// InMemory is a Dataset backed by Samples.
type InMemory struct {
	Samples
}

func NewInMemory(x [][]float32, y []int) (*InMemory, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("dataset: %d rows but %d labels", len(x), len(y))
	}
	return &InMemory{Samples{X: x, Y: y}}, nil
}

func (d *InMemory) Len() int { return len(d.Y) }

func (d *InMemory) Sample(i int) ([]float32, int) { return d.X[i], d.Y[i] }

// Experience is one step of the stream. ID is assigned in presentation order.
type Experience struct {
	ID      int
	Name    string
	Dataset Dataset
}

// Stream builds experiences numbered 0..n-1 in the order given.
func Stream(names []string, sets []Dataset) ([]Experience, error) {
	if len(names) != len(sets) {
		return nil, fmt.Errorf("dataset: %d names for %d datasets", len(names), len(sets))
	}
	out := make([]Experience, len(sets))
	for i := range sets {
		out[i] = Experience{ID: i, Name: names[i], Dataset: sets[i]}
	}
	return out, nil
}
