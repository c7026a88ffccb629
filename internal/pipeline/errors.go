package pipeline

import "errors"

var (
	// ErrNoAudioStream is a recoverable warning: the run proceeded without an
	// audio track. Found in Result.Warnings, or returned as an error when the
	// pipeline was configured with RequireAudio.
	ErrNoAudioStream = errors.New("no audio stream available")

	// ErrNoVideoStream means the run had no video stream handle to download.
	ErrNoVideoStream = errors.New("no video stream available")

	// ErrCancelled means the run was aborted by context cancellation.
	ErrCancelled = errors.New("pipeline cancelled")
)
