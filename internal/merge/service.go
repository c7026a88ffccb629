// Package merge drives the ffmpeg remux subprocess: both tracks are
// stream-copied into the output container (no re-encode, the tracks are
// already in final encoded form), while a dedicated goroutine drains the
// structured progress feed from the child's stdout.
package merge

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ytget/yt-remux/internal/log"
	"github.com/ytget/yt-remux/internal/model"
	"github.com/ytget/yt-remux/internal/progress"
)

// FFmpeg invocation constants
const (
	DefaultCommand     = "ffmpeg"
	LogLevel           = "error"
	CodecCopy          = "copy"
	ProgressPipeTarget = "pipe:1"
	FrameLinePrefix    = "frame="

	// DefaultPollInterval is the cadence at which the driving flow
	// recomputes the merge percentage from the last frame sample.
	DefaultPollInterval = time.Second
)

// ExitError reports an ffmpeg subprocess that exited non-zero, with whatever
// diagnostics it wrote to stderr.
type ExitError struct {
	Code        int
	Diagnostics string
}

func (e *ExitError) Error() string {
	if e.Diagnostics == "" {
		return fmt.Sprintf("ffmpeg exited with code %d", e.Code)
	}
	return fmt.Sprintf("ffmpeg exited with code %d: %s", e.Code, e.Diagnostics)
}

// Engine remuxes downloaded streams into a single output file.
type Engine struct {
	ffmpegPath   string
	tracker      *progress.Tracker
	pollInterval time.Duration
	logger       zerolog.Logger
}

// NewEngine creates a merge engine using the given ffmpeg executable. The
// tracker may be nil if the caller does not need progress.
func NewEngine(ffmpegPath string, tracker *progress.Tracker) *Engine {
	if ffmpegPath == "" {
		ffmpegPath = DefaultCommand
	}
	return &Engine{
		ffmpegPath:   ffmpegPath,
		tracker:      tracker,
		pollInterval: DefaultPollInterval,
		logger:       log.WithComponent("merge"),
	}
}

// SetPollInterval overrides the progress poll cadence, mainly for tests.
func (e *Engine) SetPollInterval(interval time.Duration) {
	if interval > 0 {
		e.pollInterval = interval
	}
}

// Merge runs ffmpeg for the given job and blocks until the subprocess exits.
// job.TotalFrames must already be populated by the probe; FramesProcessed is
// updated from the child's progress feed. A failed or cancelled merge removes
// the partial output file.
func (e *Engine) Merge(ctx context.Context, job *model.MergeJob) error {
	if job.TotalFrames <= 0 {
		return fmt.Errorf("merge requires a positive total frame count, got %d", job.TotalFrames)
	}

	outputDir := filepath.Dir(job.OutputPath)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	args := buildFFmpegArgs(job)
	e.logger.Info().
		Str("video", job.VideoPath).
		Str("audio", job.AudioPath).
		Str("output", job.OutputPath).
		Int64("total_frames", job.TotalFrames).
		Msg("starting remux")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	// Last-value slot shared between the progress reader and the poll loop.
	// Only the latest frame sample matters, so last-write-wins is enough.
	var frames atomic.Int64

	done := make(chan error, 1)
	go func() {
		// The feed ends with EOF when the child exits; reap it afterwards.
		readProgress(stdout, &frames)
		done <- cmd.Wait()
	}()

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case waitErr := <-done:
			job.FramesProcessed = frames.Load()

			if ctx.Err() != nil {
				os.Remove(job.OutputPath)
				return fmt.Errorf("merge interrupted: %w", ctx.Err())
			}
			if waitErr != nil {
				os.Remove(job.OutputPath)
				code := -1
				if exitErr, ok := waitErr.(*exec.ExitError); ok {
					code = exitErr.ExitCode()
				}
				return &ExitError{Code: code, Diagnostics: strings.TrimSpace(stderr.String())}
			}

			e.publishPercent(100)
			e.logger.Info().Str("output", job.OutputPath).Msg("remux finished")
			return nil

		case <-ticker.C:
			job.FramesProcessed = frames.Load()
			e.publishPercent(Percent(job.FramesProcessed, job.TotalFrames))
		}
	}
}

// publishPercent forwards a merge percentage to the tracker if one is set.
func (e *Engine) publishPercent(percent float64) {
	if e.tracker != nil {
		e.tracker.SetPercent(percent)
	}
}

// Percent converts a frame sample into a percentage of totalFrames, clamped
// to 100. The packet count is approximate, so the sample can overshoot.
func Percent(framesProcessed, totalFrames int64) float64 {
	if totalFrames <= 0 {
		return 0
	}
	percent := float64(framesProcessed) / float64(totalFrames) * 100
	if percent > 100 {
		percent = 100
	}
	return percent
}

// buildFFmpegArgs builds the ffmpeg command arguments for a remux job
func buildFFmpegArgs(job *model.MergeJob) []string {
	args := []string{
		"-y", // Overwrite output without prompting
		"-loglevel", LogLevel,
		"-i", job.VideoPath,
	}
	if job.HasAudio() {
		args = append(args, "-i", job.AudioPath)
	}
	args = append(args, "-codec:v", CodecCopy)
	if job.HasAudio() {
		args = append(args, "-codec:a", CodecCopy)
	}
	args = append(args,
		"-progress", ProgressPipeTarget,
		job.OutputPath,
	)
	return args
}

// readProgress consumes the line-oriented key=value feed from the child's
// stdout and stores every frame sample into the shared slot. Returns when
// the pipe reaches EOF.
func readProgress(r io.Reader, frames *atomic.Int64) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, FrameLinePrefix) {
			continue
		}
		value, err := strconv.ParseInt(strings.TrimPrefix(line, FrameLinePrefix), 10, 64)
		if err != nil {
			continue
		}
		frames.Store(value)
	}
}
