package gem

// Stats counts what the plugin did over a run.
type Stats struct {
	Iterations  int64   // training iterations seen
	Refreshes   int64   // reference-gradient rebuilds with at least one prior experience
	Checks      int64   // projection checks with at least one prior experience
	Projections int64   // checks that changed the gradient
	LastMinDot  float64 // smallest G·g entry of the last check
}

func (p *Plugin) Stats() Stats { return p.stats }

// GetMetrics returns a snapshot for logging.
func (p *Plugin) GetMetrics() map[string]any {
	rate := 0.0
	if p.stats.Checks > 0 {
		rate = float64(p.stats.Projections) / float64(p.stats.Checks)
	}
	mem := map[int]int{}
	for _, t := range p.memory.Experiences() {
		mem[t] = p.memory.Len(t)
	}
	return map[string]any{
		"iterations":      p.stats.Iterations,
		"refreshes":       p.stats.Refreshes,
		"checks":          p.stats.Checks,
		"projections":     p.stats.Projections,
		"projection_rate": rate,
		"last_min_dot":    p.stats.LastMinDot,
		"memory":          mem,
	}
}
