package benchmarks

import (
	"testing"
	"time"

	"github.com/datacenter/wiper/internal/provision"
)

func TestEstimateRemaining_NoHistory(t *testing.T) {
	// At CONNECTING, 2s elapsed, no history, 12 prompts ahead
	remaining := EstimateRemaining(provision.StageConnecting, 2*time.Second, 0, 12, nil)

	// Should be: (5-2) + 5 + 15 + 45 + 240 + 12*8 = 404s
	expected := 404 * time.Second
	if remaining != expected {
		t.Errorf("expected %v, got %v", expected, remaining)
	}
}

func TestEstimateRemaining_InsideWizard(t *testing.T) {
	// Prompt stages only count the unanswered prompts.
	remaining := EstimateRemaining(provision.PromptStage(5), 3*time.Second, 4, 12, nil)

	// Should be: (12-4) * 8 = 64s
	expected := 64 * time.Second
	if remaining != expected {
		t.Errorf("expected %v, got %v", expected, remaining)
	}
}

func TestEstimateRemaining_ElapsedExceedsExpected(t *testing.T) {
	// At CONNECTING but already 10s in (over the 5s estimate)
	remaining := EstimateRemaining(provision.StageConnecting, 10*time.Second, 0, 0, nil)

	// Overrun scales future predictions: 10s/5s = 2x
	// Should be: max(0, 5*2-10)=0 + (5 + 15 + 45 + 240) * 2 = 610s
	expected := 610 * time.Second
	if remaining != expected {
		t.Errorf("expected %v, got %v", expected, remaining)
	}
}

func TestEstimateRemaining_HistoryOnPace(t *testing.T) {
	now := time.Now()
	history := []StageRecord{
		{Stage: provision.StageConnecting, Started: now.Add(-10 * time.Second), Ended: now.Add(-5 * time.Second)},
		{Stage: provision.StageAuthenticating, Started: now.Add(-5 * time.Second), Ended: now},
	}

	remaining := EstimateRemaining(provision.StageLaunchingConsole, 0, 0, 0, history)

	// Both observed stages matched their 5s estimates, scale stays 1.
	// Should be: 15 + 45 + 240 = 300s
	expected := 300 * time.Second
	if remaining != expected {
		t.Errorf("expected %v, got %v", expected, remaining)
	}
}

func TestEstimateRemaining_Complete(t *testing.T) {
	remaining := EstimateRemaining(provision.StageComplete, 0, 12, 12, nil)
	if remaining != 0 {
		t.Errorf("expected 0, got %v", remaining)
	}
}

func TestEstimateRemaining_UnknownStage(t *testing.T) {
	remaining := EstimateRemaining(provision.Stage("REWINDING"), 0, 0, 12, nil)
	if remaining != 0 {
		t.Errorf("expected 0 for unknown stage, got %v", remaining)
	}
}

func TestPerformanceScale(t *testing.T) {
	now := time.Now()
	history := []StageRecord{
		// AWAITING_REBOOT expected 240s, observed 360s => 1.5x
		{Stage: provision.StageAwaitingReboot, Started: now.Add(-360 * time.Second), Ended: now},
	}

	scale := PerformanceScale(provision.PromptStage(1), 0, history)
	if scale < 1.49 || scale > 1.51 {
		t.Fatalf("expected ~1.5 scale, got %f", scale)
	}
}

func TestPerformanceScale_Clamped(t *testing.T) {
	now := time.Now()
	slow := []StageRecord{
		{Stage: provision.StageConnecting, Started: now.Add(-100 * time.Second), Ended: now},
	}
	if scale := PerformanceScale(provision.StageWiping, 0, slow); scale != 3.0 {
		t.Errorf("expected slow history clamped to 3.0, got %f", scale)
	}

	fast := []StageRecord{
		{Stage: provision.StageAwaitingReboot, Started: now.Add(-time.Second), Ended: now},
	}
	if scale := PerformanceScale(provision.StageWiping, 0, fast); scale != 0.6 {
		t.Errorf("expected fast history clamped to 0.6, got %f", scale)
	}
}

func TestTotalEstimate(t *testing.T) {
	total := TotalEstimate(12)

	// Sum of stage timings plus prompts: 5 + 5 + 15 + 45 + 240 + 12*8 = 406s
	expected := 406 * time.Second
	if total != expected {
		t.Errorf("expected %v, got %v", expected, total)
	}
}
