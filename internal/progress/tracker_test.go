package progress

import (
	"sync"
	"testing"

	"github.com/ytget/yt-remux/internal/model"
)

func TestNewTracker(t *testing.T) {
	tracker := NewTracker()

	snapshot := tracker.Snapshot()
	if snapshot.Phase != model.PhaseIdle {
		t.Errorf("Expected initial phase Idle, got %s", snapshot.Phase)
	}
	if snapshot.Percent != 0 {
		t.Errorf("Expected initial percent 0, got %f", snapshot.Percent)
	}
}

func TestTracker_SetPhase(t *testing.T) {
	tracker := NewTracker()

	if !tracker.SetPhase(model.PhaseDownloading) {
		t.Error("Expected Idle -> Downloading to be accepted")
	}

	// Skipping phases is rejected
	if tracker.SetPhase(model.PhaseMerging) {
		t.Error("Expected Downloading -> Merging to be rejected")
	}

	if snapshot := tracker.Snapshot(); snapshot.Phase != model.PhaseDownloading {
		t.Errorf("Expected phase Downloading after rejected transition, got %s", snapshot.Phase)
	}
}

func TestTracker_SetPhase_ResetsPercent(t *testing.T) {
	tracker := NewTracker()
	tracker.SetPhase(model.PhaseDownloading)
	tracker.SetPercent(80)

	tracker.SetPhase(model.PhaseProbing)
	if snapshot := tracker.Snapshot(); snapshot.Percent != 0 {
		t.Errorf("Expected percent reset to 0 on phase entry, got %f", snapshot.Percent)
	}
}

func TestTracker_SetPhase_CompletePinsPercent(t *testing.T) {
	tracker := NewTracker()
	tracker.SetPhase(model.PhaseDownloading)
	tracker.SetPhase(model.PhaseProbing)
	tracker.SetPhase(model.PhaseMerging)
	tracker.SetPercent(97.5)

	tracker.SetPhase(model.PhaseComplete)
	if snapshot := tracker.Snapshot(); snapshot.Percent != 100 {
		t.Errorf("Expected percent 100 in Complete, got %f", snapshot.Percent)
	}
}

func TestTracker_SetPercent_ClampsAndMonotonic(t *testing.T) {
	tracker := NewTracker()
	tracker.SetPhase(model.PhaseDownloading)

	tests := []struct {
		input    float64
		expected float64
	}{
		{-10, 0},
		{25.5, 25.5},
		{10, 25.5},  // lower values are dropped
		{150, 100},  // clamped
		{99, 100},   // still monotonic after clamp
	}

	for _, test := range tests {
		tracker.SetPercent(test.input)
		if snapshot := tracker.Snapshot(); snapshot.Percent != test.expected {
			t.Errorf("SetPercent(%f): got %f, expected %f", test.input, snapshot.Percent, test.expected)
		}
	}
}

func TestTracker_Subscribe_ReceivesInitialState(t *testing.T) {
	tracker := NewTracker()
	tracker.SetPhase(model.PhaseDownloading)
	tracker.SetPercent(42)

	ch := tracker.Subscribe()
	defer tracker.Unsubscribe(ch)

	snapshot := <-ch
	if snapshot.Phase != model.PhaseDownloading || snapshot.Percent != 42 {
		t.Errorf("Expected initial snapshot {Downloading 42}, got {%s %f}", snapshot.Phase, snapshot.Percent)
	}
}

func TestTracker_Subscribe_ReceivesUpdates(t *testing.T) {
	tracker := NewTracker()
	ch := tracker.Subscribe()
	defer tracker.Unsubscribe(ch)

	<-ch // initial state

	tracker.SetPhase(model.PhaseDownloading)
	snapshot := <-ch
	if snapshot.Phase != model.PhaseDownloading {
		t.Errorf("Expected Downloading update, got %s", snapshot.Phase)
	}

	tracker.SetPercent(50)
	snapshot = <-ch
	if snapshot.Percent != 50 {
		t.Errorf("Expected percent 50 update, got %f", snapshot.Percent)
	}
}

func TestTracker_SlowSubscriberDoesNotBlock(t *testing.T) {
	tracker := NewTracker()
	ch := tracker.Subscribe()
	defer tracker.Unsubscribe(ch)

	// Never drain the channel; updates beyond the buffer must be dropped,
	// not block the writer.
	tracker.SetPhase(model.PhaseDownloading)
	for i := 1; i <= SubscriberBuffer*3; i++ {
		tracker.SetPercent(float64(i))
	}

	if snapshot := tracker.Snapshot(); snapshot.Percent != float64(SubscriberBuffer*3) {
		t.Errorf("Expected percent %d, got %f", SubscriberBuffer*3, snapshot.Percent)
	}
}

func TestTracker_ConcurrentWritersAndReaders(t *testing.T) {
	tracker := NewTracker()
	tracker.SetPhase(model.PhaseDownloading)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				tracker.SetPercent(float64(base*25+i) / 4)
			}
		}(w)
	}

	var last float64
	for i := 0; i < 200; i++ {
		snapshot := tracker.Snapshot()
		if snapshot.Percent < last {
			t.Fatalf("Percent decreased from %f to %f", last, snapshot.Percent)
		}
		if snapshot.Percent < 0 || snapshot.Percent > 100 {
			t.Fatalf("Percent out of range: %f", snapshot.Percent)
		}
		last = snapshot.Percent
	}
	wg.Wait()
}
