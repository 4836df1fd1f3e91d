package observ

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestTimerAggregates(t *testing.T) {
	tm := NewTimer()
	tm.Add("assemble", 2*time.Millisecond)
	tm.Add("read", time.Millisecond)
	tm.Add("assemble", 3*time.Millisecond)

	r := tm.Report()
	if len(r.Phases) != 2 || r.Phases[0].Name != "assemble" {
		t.Fatalf("phases = %+v", r.Phases)
	}
	if r.Phases[0].DurationMS != 5 || r.Phases[0].Count != 2 {
		t.Errorf("assemble = %+v", r.Phases[0])
	}
	if r.TotalMS != 6 {
		t.Errorf("total = %v", r.TotalMS)
	}
}

func TestTimerBegin(t *testing.T) {
	tm := NewTimer()
	clock := time.Unix(0, 0)
	tm.now = func() time.Time { return clock }

	stop := tm.Begin("write")
	clock = clock.Add(4 * time.Millisecond)
	stop()

	if got := tm.Report().Phases[0].DurationMS; got != 4 {
		t.Errorf("duration = %v", got)
	}
}

func TestTimerConcurrent(t *testing.T) {
	tm := NewTimer()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tm.Add("assemble", time.Millisecond)
		}()
	}
	wg.Wait()
	if c := tm.Report().Phases[0].Count; c != 10 {
		t.Errorf("count = %d", c)
	}
}

func TestWriteSummary(t *testing.T) {
	tm := NewTimer()
	tm.Add("read", 1500*time.Microsecond)
	var buf bytes.Buffer
	if err := tm.WriteSummary(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "timings:\n") || !strings.Contains(out, "1.50 ms  x1") || !strings.Contains(out, "total") {
		t.Errorf("summary:\n%s", out)
	}
}

func TestNilTimer(t *testing.T) {
	var tm *Timer
	tm.Begin("x")()
	tm.Add("x", time.Second)
}
