// strategy/strategy.go
package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"continual-gem/dataset"
	"continual-gem/nn"
)

// Strategy is a plain fine-tuning loop over a stream of experiences. Plugins
// change its behaviour through the Plugin hooks. Not safe for concurrent use.
type Strategy struct {
	Model       nn.Model
	Optimizer   nn.Optimizer
	Criterion   nn.Criterion
	TrainMBSize int
	TrainEpochs int
	Plugins     []Plugin

	Clock Clock

	// Current experience and minibatch, valid while Train runs.
	Experience *dataset.Experience
	MBX        [][]float32
	MBY        []int
	Loss       float64
}

func New(model nn.Model, opt nn.Optimizer, crit nn.Criterion, mbSize, epochs int, plugins ...Plugin) (*Strategy, error) {
	if model == nil || opt == nil {
		return nil, fmt.Errorf("strategy: model and optimizer are required")
	}
	if crit == nil {
		return nil, fmt.Errorf("strategy: criterion is required")
	}
	if mbSize <= 0 || epochs <= 0 {
		return nil, fmt.Errorf("strategy: minibatch size and epochs must be positive, got %d and %d", mbSize, epochs)
	}
	return &Strategy{
		Model:       model,
		Optimizer:   opt,
		Criterion:   crit,
		TrainMBSize: mbSize,
		TrainEpochs: epochs,
		Plugins:     plugins,
	}, nil
}

// Params is the canonical parameter list of the model.
func (s *Strategy) Params() []*nn.Param { return s.Model.Parameters() }

// Train fits the model on one experience, then advances the clock.
func (s *Strategy) Train(ctx context.Context, exp dataset.Experience) error {
	s.Experience = &exp
	defer func() { s.Experience, s.MBX, s.MBY = nil, nil, nil }()

	s.Model.Train(true)
	if err := s.each(func(p Plugin) error { return p.BeforeTrainingExp(s) }); err != nil {
		return err
	}

	loader := dataset.NewLoader(exp.Dataset, s.TrainMBSize)
	for ep := 0; ep < s.TrainEpochs; ep++ {
		s.Clock.Epoch = ep
		t0 := time.Now()
		totalLoss, totalN := 0.0, 0

		loader.Reset()
		for {
			mb, ok := loader.Next()
			if !ok {
				break
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := s.trainingIteration(mb); err != nil {
				return fmt.Errorf("experience %d epoch %d iteration %d: %w", exp.ID, ep, s.Clock.TrainIterations, err)
			}
			totalLoss += s.Loss * float64(mb.Len())
			totalN += mb.Len()
		}

		log.Debug("epoch done",
			"experience", exp.ID, "epoch", ep+1,
			"loss", totalLoss/float64(max(1, totalN)), "n", totalN, "time", time.Since(t0))
	}

	if err := s.each(func(p Plugin) error { return p.AfterTrainingExp(s) }); err != nil {
		return err
	}
	s.Clock.TrainExpCounter++
	return nil
}

func (s *Strategy) trainingIteration(mb dataset.Samples) error {
	params := s.Params()
	s.MBX, s.MBY = mb.X, mb.Y

	s.Optimizer.ZeroGrad(params)
	if err := s.each(func(p Plugin) error { return p.BeforeTrainingIteration(s) }); err != nil {
		return err
	}

	s.Loss = nn.LossBackward(s.Model, s.Criterion, s.MBX, s.MBY)

	if err := s.each(func(p Plugin) error { return p.AfterBackward(s) }); err != nil {
		return err
	}
	s.Optimizer.Step(params)
	s.Clock.TrainIterations++

	return s.each(func(p Plugin) error { return p.AfterTrainingIteration(s) })
}

func (s *Strategy) each(hook func(Plugin) error) error {
	for _, p := range s.Plugins {
		if err := hook(p); err != nil {
			return err
		}
	}
	return nil
}
