// Package gem implements Gradient Episodic Memory as a training-loop plugin.
//
// GEM projects the gradient on the current minibatch by using an episodic
// memory of patterns from previous experiences. The gradient is projected so
// that its dot product with the reference gradient of every previous
// experience stays non-negative. Task identities are not used.
package gem

import (
	"fmt"

	"github.com/charmbracelet/log"

	"continual-gem/strategy"
)

type Config struct {
	// PatternsPerExperience is the number of stored samples per experience.
	PatternsPerExperience int `mapstructure:"patterns_per_experience"`
	// MemoryStrength is the slack added to the projection constraints to
	// favour backward transfer (gamma in the GEM paper).
	MemoryStrength float64 `mapstructure:"memory_strength"`
}

// Plugin wires Memory and Projector into a strategy.Strategy.
type Plugin struct {
	strategy.BasePlugin

	cfg       Config
	memory    *Memory
	projector *Projector
	stats     Stats
}

func NewPlugin(cfg Config) (*Plugin, error) {
	mem, err := NewMemory(cfg.PatternsPerExperience)
	if err != nil {
		return nil, err
	}
	proj, err := NewProjector(cfg.MemoryStrength)
	if err != nil {
		return nil, err
	}
	return &Plugin{cfg: cfg, memory: mem, projector: proj}, nil
}

func (p *Plugin) Memory() *Memory { return p.memory }

func (p *Plugin) Projector() *Projector { return p.projector }

// BeforeTrainingIteration computes the reference gradients of all previous
// experiences against the current parameters.
func (p *Plugin) BeforeTrainingIteration(s *strategy.Strategy) error {
	p.stats.Iterations++
	counter := s.Clock.TrainExpCounter
	if counter == 0 {
		return p.projector.Refresh(Host{}, p.memory, 0)
	}
	if s.Criterion == nil {
		return ErrMissingCriterion
	}
	err := p.projector.Refresh(Host{Model: s.Model, Criterion: s.Criterion, Optimizer: s.Optimizer}, p.memory, counter)
	if err != nil {
		return err
	}
	p.stats.Refreshes++
	return nil
}

// AfterBackward projects the minibatch gradient when it conflicts with memory.
func (p *Plugin) AfterBackward(s *strategy.Strategy) error {
	projected, err := p.projector.MaybeProject(s.Params(), s.Clock.TrainExpCounter)
	if err != nil {
		return err
	}
	if s.Clock.TrainExpCounter > 0 {
		p.stats.Checks++
		p.stats.LastMinDot = p.projector.LastMinDot()
	}
	if projected {
		p.stats.Projections++
	}
	return nil
}

// AfterTrainingExp stores the leading samples of the finished experience.
func (p *Plugin) AfterTrainingExp(s *strategy.Strategy) error {
	if s.Experience == nil {
		return fmt.Errorf("gem: no current experience at experience end")
	}
	t := s.Clock.TrainExpCounter
	if err := p.memory.Update(s.Experience.Dataset, t, s.TrainMBSize); err != nil {
		return err
	}
	log.Debug("episodic memory updated", "experience", t, "patterns", p.memory.Len(t), "capacity", p.memory.Capacity())
	return nil
}
