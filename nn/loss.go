package nn

import (
	"fmt"
	"math"
)

// Criterion returns the mean loss over a batch and dLoss/dOut.
type Criterion interface {
	Loss(out [][]float32, y []int) (float64, [][]float32)
}

// CrossEntropy is softmax followed by mean negative log-likelihood.
type CrossEntropy struct{}

func (CrossEntropy) Loss(out [][]float32, y []int) (float64, [][]float32) {
	if len(out) != len(y) {
		panic(fmt.Sprintf("nn: cross entropy got %d outputs and %d labels", len(out), len(y)))
	}
	if len(out) == 0 {
		return 0, nil
	}
	inv := 1.0 / float64(len(out))
	var loss float64
	grad := make([][]float32, len(out))
	for n, logits := range out {
		if y[n] < 0 || y[n] >= len(logits) {
			panic(fmt.Sprintf("nn: label %d out of range for %d classes", y[n], len(logits)))
		}
		p := softmax(logits)
		// clamp as the logistic loss does to keep log finite
		loss -= math.Log(math.Max(p[y[n]], 1e-15))
		g := make([]float32, len(logits))
		for k := range p {
			d := p[k]
			if k == y[n] {
				d -= 1
			}
			g[k] = float32(d * inv)
		}
		grad[n] = g
	}
	return loss * inv, grad
}

func softmax(logits []float32) []float64 {
	maxv := math.Inf(-1)
	for _, v := range logits {
		maxv = math.Max(maxv, float64(v))
	}
	p := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		p[i] = math.Exp(float64(v) - maxv)
		sum += p[i]
	}
	for i := range p {
		p[i] /= sum
	}
	return p
}

// Argmax returns the predicted class of a logit row.
func Argmax(row []float32) int {
	best := 0
	for i, v := range row {
		if v > row[best] {
			best = i
		}
	}
	return best
}

// LossBackward runs forward, criterion and backward on one batch and returns
// the loss. Gradients accumulate into the model's Param.Grad buffers.
func LossBackward(m Model, crit Criterion, x [][]float32, y []int) float64 {
	out := m.Forward(x)
	loss, dOut := crit.Loss(out, y)
	m.Backward(dOut)
	return loss
}
