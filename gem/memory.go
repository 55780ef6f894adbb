// gem/memory.go
package gem

import (
	"fmt"

	"continual-gem/dataset"
)

// Memory is the episodic memory: at most Capacity() samples per experience,
// indexed by experience number. An experience's slot is written once, when
// the experience finishes, and is read-only afterwards.
type Memory struct {
	capacity int
	slots    []*dataset.Samples // nil = experience not stored yet
}

func NewMemory(patternsPerExperience int) (*Memory, error) {
	if patternsPerExperience <= 0 {
		return nil, fmt.Errorf("%w: patterns per experience must be positive, got %d", ErrInvalidConfig, patternsPerExperience)
	}
	return &Memory{capacity: patternsPerExperience}, nil
}

func (m *Memory) Capacity() int { return m.capacity }

// Update stores the leading samples of ds for experience t. It walks ds in
// chunks of batchSize, keeps whole chunks while they fit, then the part of
// the next chunk that fills the capacity, and reads nothing further.
// Samples are copied out of ds.
func (m *Memory) Update(ds dataset.Dataset, t, batchSize int) error {
	if t < 0 {
		return fmt.Errorf("%w: negative experience index %d", ErrInvalidConfig, t)
	}
	if batchSize <= 0 {
		return fmt.Errorf("%w: memory chunk size must be positive, got %d", ErrInvalidConfig, batchSize)
	}
	if _, ok := m.get(t); ok {
		return fmt.Errorf("%w: experience %d", ErrDuplicateExperience, t)
	}

	var stored dataset.Samples
	loader := dataset.NewLoader(ds, batchSize)
	for stored.Len() < m.capacity {
		chunk, ok := loader.Next()
		if !ok {
			break
		}
		if room := m.capacity - stored.Len(); chunk.Len() > room {
			chunk = chunk.Slice(0, room)
		}
		stored = stored.Append(chunk)
	}

	for len(m.slots) <= t {
		m.slots = append(m.slots, nil)
	}
	m.slots[t] = &stored
	return nil
}

// Get returns a copy of the stored samples of experience t; false if t was
// never stored.
func (m *Memory) Get(t int) (dataset.Samples, bool) {
	s, ok := m.get(t)
	if !ok {
		return dataset.Samples{}, false
	}
	return s.Clone(), true
}

// get returns the stored slot itself. Callers must not modify it.
func (m *Memory) get(t int) (dataset.Samples, bool) {
	if t < 0 || t >= len(m.slots) || m.slots[t] == nil {
		return dataset.Samples{}, false
	}
	return *m.slots[t], true
}

// Len is the number of samples stored for t.
func (m *Memory) Len(t int) int {
	s, _ := m.get(t)
	return s.Len()
}

// Experiences lists stored experience indices in ascending order.
func (m *Memory) Experiences() []int {
	var out []int
	for t, s := range m.slots {
		if s != nil {
			out = append(out, t)
		}
	}
	return out
}

// Reset drops every stored experience.
func (m *Memory) Reset() {
	m.slots = nil
}
