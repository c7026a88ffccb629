package model

import "time"

// DownloadTask represents a single stream download within one pipeline run.
// Mutable only by the downloader that owns it; BytesReceived increases
// monotonically until it equals BytesTotal or the task fails.
type DownloadTask struct {
	ID            string
	Descriptor    StreamDescriptor
	OutputPath    string  // destination file inside the scratch workspace
	BytesTotal    int64   // total size in bytes
	BytesReceived int64   // bytes written so far
	Percent       float64 // 0 to 100, rounded to 2 decimal places
	LastError     string  // last error message if any
	StartedAt     time.Time
	FinishedAt    time.Time
}

// MergeJob represents one remux invocation. TotalFrames stays zero until the
// probe completes; FramesProcessed is owned exclusively by the merge engine's
// progress reader.
type MergeJob struct {
	VideoPath       string
	AudioPath       string // empty for video-only jobs
	OutputPath      string
	TotalFrames     int64
	FramesProcessed int64
}

// HasAudio returns true if the job muxes an audio track
func (j *MergeJob) HasAudio() bool {
	return j.AudioPath != ""
}
