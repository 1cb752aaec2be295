package metrics

import (
	"sync"

	"github.com/Conceptual-Machines/chordsheet-api/internal/events"
)

// Counters keeps in-process conversion totals for the metrics endpoint.
type Counters struct {
	mu          sync.Mutex
	total       int64
	succeeded   int64
	failed      int64
	recovered   int64
	transposed  int64
	detected    int64
	lineErrors  int64
	totalMillis int64
	bySource    map[string]int64
	byTarget    map[string]int64
	failedStage map[string]int64
}

// Snapshot is a copy of the counters.
type Snapshot struct {
	Total         int64            `json:"total"`
	Succeeded     int64            `json:"succeeded"`
	Failed        int64            `json:"failed"`
	Recovered     int64            `json:"recovered"`
	Transposed    int64            `json:"transposed"`
	Detected      int64            `json:"detected"`
	LineErrors    int64            `json:"line_errors"`
	AvgDurationMS float64          `json:"avg_duration_ms"`
	BySource      map[string]int64 `json:"by_source"`
	ByTarget      map[string]int64 `json:"by_target"`
	FailedStages  map[string]int64 `json:"failed_stages"`
}

func NewCounters() *Counters {
	return &Counters{
		bySource:    make(map[string]int64),
		byTarget:    make(map[string]int64),
		failedStage: make(map[string]int64),
	}
}

// Record counts one finished conversion event. Other events are ignored.
func (c *Counters) Record(ev events.Event) {
	if ev.Type != events.ConversionCompleted && ev.Type != events.ConversionFailed {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total++
	c.totalMillis += ev.Duration.Milliseconds()
	if ev.Type == events.ConversionCompleted {
		c.succeeded++
	} else {
		c.failed++
		if stage, ok := ev.Fields["stage"].(string); ok && stage != "" {
			c.failedStage[stage]++
		}
	}
	if v, _ := ev.Fields["recovered"].(bool); v {
		c.recovered++
	}
	if v, _ := ev.Fields["transposed"].(bool); v {
		c.transposed++
	}
	if v, _ := ev.Fields["detected"].(bool); v {
		c.detected++
	}
	if n, ok := ev.Fields["errors"].(int); ok {
		c.lineErrors += int64(n)
	}
	if s, ok := ev.Fields["source_format"].(string); ok && s != "" {
		c.bySource[s]++
	}
	if s, ok := ev.Fields["target_format"].(string); ok && s != "" {
		c.byTarget[s]++
	}
}

// Subscribe counts conversions published on bus.
func (c *Counters) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.ConversionCompleted, c.Record)
	bus.Subscribe(events.ConversionFailed, c.Record)
}

func (c *Counters) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		Total:        c.total,
		Succeeded:    c.succeeded,
		Failed:       c.failed,
		Recovered:    c.recovered,
		Transposed:   c.transposed,
		Detected:     c.detected,
		LineErrors:   c.lineErrors,
		BySource:     copyCounts(c.bySource),
		ByTarget:     copyCounts(c.byTarget),
		FailedStages: copyCounts(c.failedStage),
	}
	if c.total > 0 {
		s.AvgDurationMS = float64(c.totalMillis) / float64(c.total)
	}
	return s
}

func copyCounts(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

