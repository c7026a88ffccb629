package model

// Phase represents the stage a pipeline run is currently in
type Phase string

const (
	// PhaseIdle means the run has been created but not started
	PhaseIdle Phase = "Idle"

	// PhaseDownloading means one or more stream downloads are in progress
	PhaseDownloading Phase = "Downloading"

	// PhaseProbing means the downloaded video file is being probed for its
	// packet count
	PhaseProbing Phase = "Probing"

	// PhaseMerging means the remux subprocess is running
	PhaseMerging Phase = "Merging"

	// PhaseComplete means the run finished successfully
	PhaseComplete Phase = "Complete"

	// PhaseFailed means the run ended with an error or was cancelled
	PhaseFailed Phase = "Failed"
)

// String returns the string representation of Phase
func (p Phase) String() string {
	return string(p)
}

// IsTerminal returns true if the phase ends a run
func (p Phase) IsTerminal() bool {
	return p == PhaseComplete || p == PhaseFailed
}

// CanTransitionTo reports whether moving from p to next is a legal phase
// transition. Phases advance strictly Idle, Downloading, Probing, Merging,
// Complete; Failed is reachable from any non-terminal phase.
func (p Phase) CanTransitionTo(next Phase) bool {
	if p.IsTerminal() {
		return false
	}
	if next == PhaseFailed {
		return true
	}
	switch p {
	case PhaseIdle:
		return next == PhaseDownloading
	case PhaseDownloading:
		return next == PhaseProbing
	case PhaseProbing:
		return next == PhaseMerging
	case PhaseMerging:
		return next == PhaseComplete
	}
	return false
}
