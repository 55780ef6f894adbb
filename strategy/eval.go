package strategy

import (
	"gonum.org/v1/gonum/floats"

	"continual-gem/dataset"
	"continual-gem/nn"
)

type EvalResult struct {
	Experience int
	Accuracy   float64
	Loss       float64
	N          int
}

// Eval measures the model on each experience without touching gradients.
func (s *Strategy) Eval(exps []dataset.Experience) []EvalResult {
	s.Model.Train(false)
	defer s.Model.Train(true)

	out := make([]EvalResult, 0, len(exps))
	for _, exp := range exps {
		res := EvalResult{Experience: exp.ID}
		loader := dataset.NewLoader(exp.Dataset, s.TrainMBSize)
		var lossSum float64
		correct := 0
		for {
			mb, ok := loader.Next()
			if !ok {
				break
			}
			logits := s.Model.Forward(mb.X)
			loss, _ := s.Criterion.Loss(logits, mb.Y)
			lossSum += loss * float64(mb.Len())
			for i, row := range logits {
				if nn.Argmax(row) == mb.Y[i] {
					correct++
				}
			}
			res.N += mb.Len()
		}
		if res.N > 0 {
			res.Accuracy = float64(correct) / float64(res.N)
			res.Loss = lossSum / float64(res.N)
		}
		out = append(out, res)
	}
	return out
}

// MeanAccuracy averages accuracy over results.
func MeanAccuracy(results []EvalResult) float64 {
	if len(results) == 0 {
		return 0
	}
	acc := make([]float64, len(results))
	for i, r := range results {
		acc[i] = r.Accuracy
	}
	return floats.Sum(acc) / float64(len(acc))
}
