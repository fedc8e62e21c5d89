package release

import (
	"bytes"
	"testing"
)

func TestProgressReportsEveryFourPercent(t *testing.T) {
	p := newProgress(100, nil)
	var reported []int
	p.report = func(percent int, total int64) {
		if total != 100 {
			t.Errorf("total = %d, want 100", total)
		}
		reported = append(reported, percent)
	}

	for i := 0; i < 10; i++ {
		p.Add(10)
	}
	p.Finish()

	if len(reported) != progressSteps+1 {
		t.Fatalf("got %d reports, want %d: %v", len(reported), progressSteps+1, reported)
	}
	for i, pct := range reported {
		if pct != i*4 {
			t.Errorf("report[%d] = %d, want %d", i, pct, i*4)
		}
	}
}

func TestProgressSingleChunk(t *testing.T) {
	p := newProgress(8192, nil)
	count := 0
	p.report = func(int, int64) { count++ }

	p.Add(8192)
	p.Add(0)

	if count != progressSteps+1 {
		t.Errorf("got %d reports, want %d", count, progressSteps+1)
	}
}

func TestProgressUnknownLength(t *testing.T) {
	p := newProgress(-1, &bytes.Buffer{})
	p.report = func(int, int64) { t.Error("no percentage reports expected for unknown length") }

	p.Add(4096)
	p.Add(4096)
	p.Finish()

	if p.bar != nil {
		t.Error("bar should not be created for unknown length")
	}
	if p.done != 8192 {
		t.Errorf("done = %d, want 8192", p.done)
	}
}

func TestProgressBarCreatedForWriter(t *testing.T) {
	var buf bytes.Buffer
	p := newProgress(1024, &buf)
	p.report = func(int, int64) {}

	p.Add(1024)
	p.Finish()

	if p.bar == nil {
		t.Fatal("bar should be created when a writer is given")
	}
	if p.done != 1024 {
		t.Errorf("done = %d, want 1024", p.done)
	}
}

func TestProgressAbortLeavesBarUnfinished(t *testing.T) {
	var buf bytes.Buffer
	p := newProgress(1024, &buf)
	p.report = func(int, int64) {}

	p.Add(256)
	p.Abort()

	if p.bar == nil {
		t.Fatal("bar should be created when a writer is given")
	}
	if p.bar.IsFinished() {
		t.Error("aborted bar should not be marked finished")
	}
	if pct := p.bar.State().CurrentPercent; pct >= 1 {
		t.Errorf("aborted bar at %.0f%%, want partial", pct*100)
	}
}
