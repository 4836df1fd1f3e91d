// Package observ measures how long the CLI spends in each phase.
package observ

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Phase accumulates the time spent in one named phase.
type Phase struct {
	Name  string
	Dur   time.Duration
	Count int
}

// Timer collects phase durations from any number of goroutines. Phases are
// reported in the order they were first seen.
type Timer struct {
	mu     sync.Mutex
	phases []Phase
	index  map[string]int
	now    func() time.Time
}

// NewTimer creates an empty Timer.
func NewTimer() *Timer {
	return &Timer{index: make(map[string]int), now: time.Now}
}

// Begin starts timing name; call the returned func to stop. A nil Timer
// returns a no-op.
func (t *Timer) Begin(name string) func() {
	if t == nil {
		return func() {}
	}
	start := t.now()
	return func() { t.Add(name, t.now().Sub(start)) }
}

// Add records d under name.
func (t *Timer) Add(name string, d time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.index[name]
	if !ok {
		i = len(t.phases)
		t.index[name] = i
		t.phases = append(t.phases, Phase{Name: name})
	}
	t.phases[i].Dur += d
	t.phases[i].Count++
}

// PhaseReport is the serializable form of a phase.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Count      int     `json:"count"`
}

// Report агрегирует фазы и общую длительность в миллисекундах.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

func (t *Timer) Report() Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	var report Report
	var total time.Duration
	for _, p := range t.phases {
		total += p.Dur
		report.Phases = append(report.Phases, PhaseReport{
			Name:       p.Name,
			DurationMS: durationToMillis(p.Dur),
			Count:      p.Count,
		})
	}
	report.TotalMS = durationToMillis(total)
	return report
}

// WriteSummary prints a table of phases followed by the total.
func (t *Timer) WriteSummary(w io.Writer) error {
	report := t.Report()
	if _, err := fmt.Fprintln(w, "timings:"); err != nil {
		return err
	}
	for _, p := range report.Phases {
		if _, err := fmt.Fprintf(w, "  %-12s %9.2f ms  x%d\n", p.Name, p.DurationMS, p.Count); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "  %-12s %9.2f ms\n", "total", report.TotalMS)
	return err
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
