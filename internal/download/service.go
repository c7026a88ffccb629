package download

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ytget/yt-remux/internal/catalog"
	"github.com/ytget/yt-remux/internal/log"
	"github.com/ytget/yt-remux/internal/model"
	"github.com/ytget/yt-remux/internal/progress"
)

// Task ID constants
const (
	TaskIDPrefix = "dl-"
)

// Service handles stream download operations for one pipeline run.
type Service struct {
	tracker  *progress.Tracker
	onUpdate func(*model.DownloadTask) // callback for progress aggregation
	logger   zerolog.Logger
}

// NewService creates a download service. The tracker may be nil when the
// caller aggregates progress itself through the update callback.
func NewService(tracker *progress.Tracker) *Service {
	return &Service{
		tracker: tracker,
		logger:  log.WithComponent("download"),
	}
}

// SetUpdateCallback sets the callback invoked on every task progress change.
func (s *Service) SetUpdateCallback(callback func(*model.DownloadTask)) {
	s.onUpdate = callback
}

// Download fetches one stream into destDir, blocking until the transfer
// completes or fails. The scratch filename is derived from the descriptor's
// kind and container. Exactly one file is written; the caller owns cleanup.
func (s *Service) Download(ctx context.Context, stream catalog.Stream, destDir string) (*model.DownloadTask, error) {
	if stream == nil {
		return nil, fmt.Errorf("%w: no stream handle", catalog.ErrStreamUnavailable)
	}

	descriptor := stream.Descriptor()
	filename := descriptor.ScratchFilename()

	task := &model.DownloadTask{
		ID:         generateTaskID(),
		Descriptor: descriptor,
		OutputPath: filepath.Join(destDir, filename),
		BytesTotal: descriptor.FileSize,
		StartedAt:  time.Now(),
	}

	s.logger.Info().
		Str("task", task.ID).
		Int("itag", descriptor.Itag).
		Str("kind", string(descriptor.Kind)).
		Str("file", task.OutputPath).
		Msg("starting download")

	err := stream.Download(ctx, destDir, filename, func(bytesRemaining int64) {
		s.onChunk(task, bytesRemaining)
	})
	task.FinishedAt = time.Now()

	if err != nil {
		task.LastError = err.Error()
		s.logger.Error().Str("task", task.ID).Err(err).Msg("download failed")
		return task, fmt.Errorf("download %s stream: %w", descriptor.Kind, err)
	}

	// The final callback carries bytesRemaining=0, but keep the terminal
	// state exact even for streams of unknown size.
	task.Percent = 100
	if task.BytesTotal > 0 {
		task.BytesReceived = task.BytesTotal
	}
	s.notifyUpdate(task)

	s.logger.Info().Str("task", task.ID).Str("file", task.OutputPath).Msg("download complete")
	return task, nil
}

// onChunk converts a bytes-remaining sample into task progress. The stream's
// total size is known upfront from the descriptor.
func (s *Service) onChunk(task *model.DownloadTask, bytesRemaining int64) {
	total := task.BytesTotal
	if total <= 0 {
		return
	}

	received := total - bytesRemaining
	if received < task.BytesReceived {
		return // bytes received never decreases
	}
	task.BytesReceived = received
	task.Percent = roundPercent(float64(received) / float64(total) * 100)

	if s.tracker != nil {
		s.tracker.SetPercent(task.Percent)
	}
	s.notifyUpdate(task)
}

// notifyUpdate calls the update callback if set
func (s *Service) notifyUpdate(task *model.DownloadTask) {
	if s.onUpdate != nil {
		s.onUpdate(task)
	}
}

// roundPercent rounds to 2 decimal places
func roundPercent(percent float64) float64 {
	return math.Round(percent*100) / 100
}

// generateTaskID generates a unique task ID using UUID v7 for time ordering
func generateTaskID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf(TaskIDPrefix+"%d", time.Now().UnixNano())
	}
	return TaskIDPrefix + id.String()
}
