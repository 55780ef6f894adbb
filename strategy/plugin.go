package strategy

// Plugin hooks into fixed points of the training lifecycle. Hooks run inline
// on the training goroutine; a returned error aborts the current Train call.
type Plugin interface {
	BeforeTrainingExp(s *Strategy) error
	BeforeTrainingIteration(s *Strategy) error
	AfterBackward(s *Strategy) error
	AfterTrainingIteration(s *Strategy) error
	AfterTrainingExp(s *Strategy) error
}

// BasePlugin implements every hook as a no-op. Embed it and override what
// you need.
type BasePlugin struct{}

func (BasePlugin) BeforeTrainingExp(*Strategy) error       { return nil }
func (BasePlugin) BeforeTrainingIteration(*Strategy) error { return nil }
func (BasePlugin) AfterBackward(*Strategy) error           { return nil }
func (BasePlugin) AfterTrainingIteration(*Strategy) error  { return nil }
func (BasePlugin) AfterTrainingExp(*Strategy) error        { return nil }

// Clock counts progress through the stream.
type Clock struct {
	TrainExpCounter int // experiences fully trained so far
	TrainIterations int // minibatches seen across all experiences
	Epoch           int // epoch within the current experience
}
