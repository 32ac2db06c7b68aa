package supervisor

import "context"

// Metrics is a point-in-time resource sample of the managed child.
type Metrics struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemPercent float64 `json:"mem_percent"`
}

// SampleMetrics reads the child's CPU and memory utilisation. It returns
// nil when there is no child, the child has exited, or any reading fails;
// callers treat nil as "process telemetry unavailable" rather than zero
// load. CPU percent is measured over the interval since the previous
// sample.
func (s *Supervisor) SampleMetrics(ctx context.Context) *Metrics {
	s.mu.Lock()
	proc := s.proc
	exited := s.exited
	s.mu.Unlock()

	if proc == nil || exited == nil {
		return nil
	}
	select {
	case <-exited:
		return nil
	default:
	}

	cpu, err := proc.PercentWithContext(ctx, 0)
	if err != nil {
		return nil
	}

	mem, err := proc.MemoryPercentWithContext(ctx)
	if err != nil {
		return nil
	}

	return &Metrics{
		CPUPercent: cpu,
		MemPercent: float64(mem),
	}
}
