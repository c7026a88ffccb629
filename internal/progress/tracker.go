// Package progress implements the run-scoped progress tracker: the single
// source of truth for phase and percent, safe for concurrent writers and
// readers, with an optional channel-based subscription interface.
package progress

import (
	"sync"

	"github.com/ytget/yt-remux/internal/model"
)

// SubscriberBuffer is the per-subscriber channel depth. Sends never block; a
// full channel drops the update, the latest state stays observable via
// Snapshot.
const SubscriberBuffer = 5

// Snapshot is an immutable copy of the tracker state at one observation.
type Snapshot struct {
	Phase   model.Phase
	Percent float64 // 0 to 100
}

// Tracker tracks the current phase and percentage of one pipeline run.
// Percent is clamped to [0,100] and monotonically non-decreasing within a
// phase; entering a phase resets it.
type Tracker struct {
	mu          sync.RWMutex
	phase       model.Phase
	percent     float64
	subscribers map[chan Snapshot]struct{}
}

// NewTracker creates a tracker in the Idle phase.
func NewTracker() *Tracker {
	return &Tracker{
		phase:       model.PhaseIdle,
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

// SetPhase advances the tracker to the given phase. Illegal transitions are
// rejected and reported as false. Entering a phase resets percent to 0,
// except Complete which pins it to 100.
func (t *Tracker) SetPhase(phase model.Phase) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.phase.CanTransitionTo(phase) {
		return false
	}

	t.phase = phase
	if phase == model.PhaseComplete {
		t.percent = 100
	} else {
		t.percent = 0
	}
	t.broadcast()
	return true
}

// SetPercent publishes a new percentage for the current phase. Values are
// clamped to [0,100]; values below the current one are dropped so observers
// never see percent decrease within a phase.
func (t *Tracker) SetPercent(percent float64) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if percent <= t.percent {
		return
	}
	t.percent = percent
	t.broadcast()
}

// Snapshot returns an immutable copy of the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Snapshot{Phase: t.phase, Percent: t.percent}
}

// Subscribe registers a new observer and returns the channel updates are sent
// on. The current state is delivered immediately. Callers must Unsubscribe
// when done.
func (t *Tracker) Subscribe() chan Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch := make(chan Snapshot, SubscriberBuffer)
	t.subscribers[ch] = struct{}{}

	select {
	case ch <- Snapshot{Phase: t.phase, Percent: t.percent}:
	default:
	}
	return ch
}

// Unsubscribe removes an observer and closes its channel.
func (t *Tracker) Unsubscribe(ch chan Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.subscribers[ch]; ok {
		delete(t.subscribers, ch)
		close(ch)
	}
}

// broadcast sends the current state to all subscribers without blocking.
// Callers must hold t.mu.
func (t *Tracker) broadcast() {
	snapshot := Snapshot{Phase: t.phase, Percent: t.percent}
	for ch := range t.subscribers {
		select {
		case ch <- snapshot:
		default:
			// Slow subscriber, skip. It can catch up via Snapshot.
		}
	}
}
