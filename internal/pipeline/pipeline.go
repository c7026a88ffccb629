package pipeline

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ytget/yt-remux/internal/catalog"
	"github.com/ytget/yt-remux/internal/download"
	"github.com/ytget/yt-remux/internal/log"
	"github.com/ytget/yt-remux/internal/merge"
	"github.com/ytget/yt-remux/internal/model"
	"github.com/ytget/yt-remux/internal/probe"
	"github.com/ytget/yt-remux/internal/progress"
)

// Workspace constants
const (
	WorkspacePrefix = "yt-remux-"
)

// Options configures a pipeline.
type Options struct {
	FFmpegPath  string // path to the ffmpeg executable
	FFprobePath string // path to the ffprobe executable

	// SequentialDownloads forces the video and audio downloads to run one
	// after the other instead of concurrently.
	SequentialDownloads bool

	// RequireAudio turns a missing audio stream into a hard failure instead
	// of a video-only run with a warning.
	RequireAudio bool
}

// RunSpec names the inputs of one run. Audio may be nil.
type RunSpec struct {
	Video      catalog.Stream
	Audio      catalog.Stream
	OutputPath string
}

// Result is the terminal outcome of a successful run.
type Result struct {
	OutputPath string
	Warnings   []error // recoverable conditions, e.g. ErrNoAudioStream
}

// Pipeline orchestrates download, probe and merge for independent runs. A
// single Pipeline may serve concurrent runs; all per-run state lives in Run.
type Pipeline struct {
	opts   Options
	logger zerolog.Logger

	newDownloader downloaderFactory
	newCounter    counterFactory
	newMerger     mergerFactory
}

// New creates a pipeline wired to the production components.
func New(opts Options) *Pipeline {
	return &Pipeline{
		opts:   opts,
		logger: log.WithComponent("pipeline"),
		newDownloader: func() streamDownloader {
			return download.NewService(nil)
		},
		newCounter: func() packetCounter {
			return probe.NewCounter(opts.FFprobePath)
		},
		newMerger: func(tracker *progress.Tracker) merger {
			return merge.NewEngine(opts.FFmpegPath, tracker)
		},
	}
}

// Run executes one full download-probe-merge cycle and blocks until it
// reaches a terminal phase. The tracker may be nil; pass one to observe
// progress. On success the returned result carries the output path; on
// failure the typed error identifies the failing stage. The scratch
// workspace is removed on every exit path.
func (p *Pipeline) Run(ctx context.Context, spec RunSpec, tracker *progress.Tracker) (*Result, error) {
	if tracker == nil {
		tracker = progress.NewTracker()
	}
	if spec.Video == nil {
		return nil, p.fail(ctx, tracker, ErrNoVideoStream)
	}
	if spec.OutputPath == "" {
		return nil, p.fail(ctx, tracker, fmt.Errorf("no output path provided"))
	}

	result := &Result{}
	if spec.Audio == nil {
		if p.opts.RequireAudio {
			return nil, p.fail(ctx, tracker, ErrNoAudioStream)
		}
		result.Warnings = append(result.Warnings, ErrNoAudioStream)
		p.logger.Warn().Msg("no audio stream, proceeding video-only")
	}

	runID := generateRunID()
	workspace, err := os.MkdirTemp("", WorkspacePrefix+runID+"-")
	if err != nil {
		return nil, p.fail(ctx, tracker, fmt.Errorf("create scratch workspace: %w", err))
	}
	defer os.RemoveAll(workspace)

	logger := p.logger.With().Str("run", runID).Logger()
	logger.Info().Str("workspace", workspace).Str("output", spec.OutputPath).Msg("run started")

	// Downloading
	tracker.SetPhase(model.PhaseDownloading)
	videoTask, audioTask, err := p.downloadStreams(ctx, spec, workspace, tracker)
	if err != nil {
		return nil, p.fail(ctx, tracker, err)
	}

	// Probing
	tracker.SetPhase(model.PhaseProbing)
	totalFrames, err := p.newCounter().CountPackets(ctx, videoTask.OutputPath)
	if err != nil {
		return nil, p.fail(ctx, tracker, err)
	}

	// Merging
	tracker.SetPhase(model.PhaseMerging)
	job := &model.MergeJob{
		VideoPath:   videoTask.OutputPath,
		OutputPath:  spec.OutputPath,
		TotalFrames: totalFrames,
	}
	if audioTask != nil {
		job.AudioPath = audioTask.OutputPath
	}
	if err := p.newMerger(tracker).Merge(ctx, job); err != nil {
		return nil, p.fail(ctx, tracker, err)
	}

	tracker.SetPhase(model.PhaseComplete)
	result.OutputPath = spec.OutputPath
	logger.Info().Str("output", result.OutputPath).Msg("run complete")
	return result, nil
}

// downloadStreams fetches the video and, if present, the audio stream into
// the workspace. The published percentage is the mean of the per-stream
// percentages, which stays monotonic because each stream's one is.
func (p *Pipeline) downloadStreams(ctx context.Context, spec RunSpec, workspace string, tracker *progress.Tracker) (videoTask, audioTask *model.DownloadTask, err error) {
	streams := 1
	if spec.Audio != nil {
		streams = 2
	}
	aggregator := newDownloadAggregator(streams, tracker)

	service := p.newDownloader()
	service.SetUpdateCallback(aggregator.update)

	if p.opts.SequentialDownloads || spec.Audio == nil {
		videoTask, err = service.Download(ctx, spec.Video, workspace)
		if err != nil {
			return nil, nil, err
		}
		if spec.Audio != nil {
			audioTask, err = service.Download(ctx, spec.Audio, workspace)
			if err != nil {
				return nil, nil, err
			}
		}
		return videoTask, audioTask, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		task, err := service.Download(gctx, spec.Video, workspace)
		videoTask = task
		return err
	})
	g.Go(func() error {
		task, err := service.Download(gctx, spec.Audio, workspace)
		audioTask = task
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return videoTask, audioTask, nil
}

// fail moves the tracker to the Failed phase and maps the error, turning
// context cancellation into ErrCancelled.
func (p *Pipeline) fail(ctx context.Context, tracker *progress.Tracker, err error) error {
	tracker.SetPhase(model.PhaseFailed)
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	p.logger.Error().Err(err).Msg("run failed")
	return err
}

// downloadAggregator folds per-stream download percentages into the single
// percentage published to the tracker.
type downloadAggregator struct {
	mu       sync.Mutex
	percents map[model.StreamKind]float64
	streams  int
	tracker  *progress.Tracker
}

func newDownloadAggregator(streams int, tracker *progress.Tracker) *downloadAggregator {
	return &downloadAggregator{
		percents: make(map[model.StreamKind]float64),
		streams:  streams,
		tracker:  tracker,
	}
}

func (a *downloadAggregator) update(task *model.DownloadTask) {
	a.mu.Lock()
	a.percents[task.Descriptor.Kind] = task.Percent
	var sum float64
	for _, percent := range a.percents {
		sum += percent
	}
	mean := sum / float64(a.streams)
	a.mu.Unlock()

	if a.tracker != nil {
		a.tracker.SetPercent(mean)
	}
}

// generateRunID generates a unique run ID using UUID v7 for time ordering
func generateRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return id.String()
}
