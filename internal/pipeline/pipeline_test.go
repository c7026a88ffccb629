package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ytget/yt-remux/internal/catalog"
	"github.com/ytget/yt-remux/internal/merge"
	"github.com/ytget/yt-remux/internal/model"
	"github.com/ytget/yt-remux/internal/probe"
	"github.com/ytget/yt-remux/internal/progress"
)

// stubStream satisfies catalog.Stream; the fake downloader never calls its
// Download.
type stubStream struct {
	descriptor model.StreamDescriptor
}

func (s *stubStream) Descriptor() model.StreamDescriptor {
	return s.descriptor
}

func (s *stubStream) Download(_ context.Context, _, _ string, _ catalog.ProgressFunc) error {
	return nil
}

type fakeDownloader struct {
	mu       sync.Mutex
	onUpdate func(*model.DownloadTask)
	destDirs []string
	failKind model.StreamKind
}

func (f *fakeDownloader) SetUpdateCallback(callback func(*model.DownloadTask)) {
	f.onUpdate = callback
}

func (f *fakeDownloader) Download(ctx context.Context, stream catalog.Stream, destDir string) (*model.DownloadTask, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	descriptor := stream.Descriptor()
	if f.failKind != "" && descriptor.Kind == f.failKind {
		return nil, catalog.ErrStreamUnavailable
	}

	path := filepath.Join(destDir, descriptor.ScratchFilename())
	if err := os.WriteFile(path, []byte("stream-bytes"), 0644); err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.destDirs = append(f.destDirs, destDir)
	f.mu.Unlock()

	task := &model.DownloadTask{Descriptor: descriptor, OutputPath: path, Percent: 100}
	if f.onUpdate != nil {
		f.onUpdate(task)
	}
	return task, nil
}

type fakeCounter struct {
	count int64
	err   error
}

func (f *fakeCounter) CountPackets(_ context.Context, _ string) (int64, error) {
	return f.count, f.err
}

type fakeMerger struct {
	mu   sync.Mutex
	jobs []*model.MergeJob
	err  error
}

func (f *fakeMerger) Merge(_ context.Context, job *model.MergeJob) error {
	f.mu.Lock()
	f.jobs = append(f.jobs, job)
	f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(job.OutputPath, []byte("muxed"), 0644)
}

// newTestPipeline wires a pipeline to fakes, returning them for inspection.
func newTestPipeline(opts Options) (*Pipeline, *fakeDownloader, *fakeCounter, *fakeMerger) {
	downloader := &fakeDownloader{}
	counter := &fakeCounter{count: 1000}
	mergerFake := &fakeMerger{}

	p := New(opts)
	p.newDownloader = func() streamDownloader { return downloader }
	p.newCounter = func() packetCounter { return counter }
	p.newMerger = func(_ *progress.Tracker) merger { return mergerFake }
	return p, downloader, counter, mergerFake
}

func testSpec(t *testing.T, withAudio bool) RunSpec {
	t.Helper()
	spec := RunSpec{
		Video:      &stubStream{descriptor: model.StreamDescriptor{Itag: 137, Kind: model.StreamKindVideo, FileSize: 100}},
		OutputPath: filepath.Join(t.TempDir(), "result.mp4"),
	}
	if withAudio {
		spec.Audio = &stubStream{descriptor: model.StreamDescriptor{Itag: 140, Kind: model.StreamKindAudio, FileSize: 50}}
	}
	return spec
}

func TestRun_Success(t *testing.T) {
	p, downloader, _, mergerFake := newTestPipeline(Options{})
	spec := testSpec(t, true)

	tracker := progress.NewTracker()
	ch := tracker.Subscribe()

	var phases []model.Phase
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for snapshot := range ch {
			if len(phases) == 0 || phases[len(phases)-1] != snapshot.Phase {
				phases = append(phases, snapshot.Phase)
			}
		}
	}()

	result, err := p.Run(context.Background(), spec, tracker)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.OutputPath != spec.OutputPath {
		t.Errorf("Expected output path %s, got %s", spec.OutputPath, result.OutputPath)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", result.Warnings)
	}
	if _, statErr := os.Stat(result.OutputPath); statErr != nil {
		t.Errorf("Expected output file to exist: %v", statErr)
	}

	// The scratch workspace must be gone
	if len(downloader.destDirs) == 0 {
		t.Fatal("Expected downloads to have run")
	}
	if _, statErr := os.Stat(downloader.destDirs[0]); !os.IsNotExist(statErr) {
		t.Error("Expected scratch workspace to be removed after Run")
	}

	// The merge job carried both tracks
	if len(mergerFake.jobs) != 1 {
		t.Fatalf("Expected 1 merge job, got %d", len(mergerFake.jobs))
	}
	job := mergerFake.jobs[0]
	if !job.HasAudio() {
		t.Error("Expected merge job with audio track")
	}
	if job.TotalFrames != 1000 {
		t.Errorf("Expected total frames 1000, got %d", job.TotalFrames)
	}

	// Observed phases advance in order and end Complete
	tracker.Unsubscribe(ch)
	<-collected
	if snapshot := tracker.Snapshot(); snapshot.Phase != model.PhaseComplete || snapshot.Percent != 100 {
		t.Errorf("Expected terminal state {Complete 100}, got {%s %f}", snapshot.Phase, snapshot.Percent)
	}
	// Updates may be dropped for a slow subscriber, but the phases that were
	// observed must appear in pipeline order.
	for i := 1; i < len(phases); i++ {
		if phaseIndex(phases[i]) < phaseIndex(phases[i-1]) {
			t.Errorf("Observed phases out of order: %s before %s", phases[i-1], phases[i])
		}
	}
}

// phaseIndex orders phases along the pipeline for observation checks.
func phaseIndex(phase model.Phase) int {
	switch phase {
	case model.PhaseIdle:
		return 0
	case model.PhaseDownloading:
		return 1
	case model.PhaseProbing:
		return 2
	case model.PhaseMerging:
		return 3
	default:
		return 4
	}
}

func TestRun_NoAudio_Graceful(t *testing.T) {
	p, _, _, mergerFake := newTestPipeline(Options{})
	spec := testSpec(t, false)

	result, err := p.Run(context.Background(), spec, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	found := false
	for _, warning := range result.Warnings {
		if errors.Is(warning, ErrNoAudioStream) {
			found = true
		}
	}
	if !found {
		t.Error("Expected ErrNoAudioStream warning")
	}

	if len(mergerFake.jobs) != 1 {
		t.Fatalf("Expected 1 merge job, got %d", len(mergerFake.jobs))
	}
	if mergerFake.jobs[0].HasAudio() {
		t.Error("Expected video-only merge job")
	}
}

func TestRun_NoAudio_RequireAudio(t *testing.T) {
	p, _, _, _ := newTestPipeline(Options{RequireAudio: true})
	spec := testSpec(t, false)

	tracker := progress.NewTracker()
	_, err := p.Run(context.Background(), spec, tracker)
	if !errors.Is(err, ErrNoAudioStream) {
		t.Fatalf("Expected ErrNoAudioStream, got %v", err)
	}
	if snapshot := tracker.Snapshot(); snapshot.Phase != model.PhaseFailed {
		t.Errorf("Expected Failed phase, got %s", snapshot.Phase)
	}
}

func TestRun_NoVideo(t *testing.T) {
	p, _, _, _ := newTestPipeline(Options{})

	_, err := p.Run(context.Background(), RunSpec{OutputPath: "/tmp/out.mp4"}, nil)
	if !errors.Is(err, ErrNoVideoStream) {
		t.Errorf("Expected ErrNoVideoStream, got %v", err)
	}
}

func TestRun_DownloadFailure(t *testing.T) {
	p, downloader, _, _ := newTestPipeline(Options{})
	downloader.failKind = model.StreamKindAudio
	spec := testSpec(t, true)

	tracker := progress.NewTracker()
	_, err := p.Run(context.Background(), spec, tracker)
	if !errors.Is(err, catalog.ErrStreamUnavailable) {
		t.Fatalf("Expected ErrStreamUnavailable, got %v", err)
	}
	if snapshot := tracker.Snapshot(); snapshot.Phase != model.PhaseFailed {
		t.Errorf("Expected Failed phase, got %s", snapshot.Phase)
	}

	// Cleanup happens on the failure path too
	for _, dir := range downloader.destDirs {
		if _, statErr := os.Stat(dir); !os.IsNotExist(statErr) {
			t.Error("Expected scratch workspace to be removed after failed run")
		}
	}
}

func TestRun_ProbeFailure(t *testing.T) {
	p, _, counter, mergerFake := newTestPipeline(Options{})
	counter.err = probe.ErrProbeFailed
	spec := testSpec(t, true)

	_, err := p.Run(context.Background(), spec, nil)
	if !errors.Is(err, probe.ErrProbeFailed) {
		t.Fatalf("Expected ErrProbeFailed, got %v", err)
	}
	if len(mergerFake.jobs) != 0 {
		t.Error("Expected no merge after failed probe")
	}
}

func TestRun_MergeFailure(t *testing.T) {
	p, _, _, mergerFake := newTestPipeline(Options{})
	mergerFake.err = &merge.ExitError{Code: 1, Diagnostics: "boom"}
	spec := testSpec(t, true)

	_, err := p.Run(context.Background(), spec, nil)
	var exitErr *merge.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("Expected merge.ExitError, got %v", err)
	}
	if exitErr.Code != 1 {
		t.Errorf("Expected exit code 1, got %d", exitErr.Code)
	}
}

func TestRun_Cancelled(t *testing.T) {
	p, _, _, _ := newTestPipeline(Options{})
	spec := testSpec(t, true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, spec, nil)
	if !errors.Is(err, ErrCancelled) {
		t.Errorf("Expected ErrCancelled, got %v", err)
	}
}

func TestRun_SequentialDownloads(t *testing.T) {
	p, _, _, _ := newTestPipeline(Options{SequentialDownloads: true})
	spec := testSpec(t, true)

	result, err := p.Run(context.Background(), spec, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.OutputPath == "" {
		t.Error("Expected output path in result")
	}
}

func TestRun_ConcurrentRunsAreIsolated(t *testing.T) {
	p, downloader, _, _ := newTestPipeline(Options{})

	var wg sync.WaitGroup
	outcomes := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			spec := RunSpec{
				Video:      &stubStream{descriptor: model.StreamDescriptor{Itag: 137, Kind: model.StreamKindVideo}},
				Audio:      &stubStream{descriptor: model.StreamDescriptor{Itag: 140, Kind: model.StreamKindAudio}},
				OutputPath: filepath.Join(t.TempDir(), "result.mp4"),
			}
			_, outcomes[i] = p.Run(context.Background(), spec, progress.NewTracker())
		}(i)
	}
	wg.Wait()

	for i, err := range outcomes {
		if err != nil {
			t.Errorf("Run %d failed: %v", i, err)
		}
	}

	// Each run had its own workspace: 2 runs, 2 streams each
	dirs := make(map[string]struct{})
	for _, dir := range downloader.destDirs {
		dirs[dir] = struct{}{}
	}
	if len(dirs) != 2 {
		t.Errorf("Expected 2 distinct workspaces, got %d", len(dirs))
	}
}

func TestDownloadAggregator_Mean(t *testing.T) {
	tracker := progress.NewTracker()
	tracker.SetPhase(model.PhaseDownloading)
	aggregator := newDownloadAggregator(2, tracker)

	aggregator.update(&model.DownloadTask{
		Descriptor: model.StreamDescriptor{Kind: model.StreamKindVideo},
		Percent:    50,
	})
	if snapshot := tracker.Snapshot(); snapshot.Percent != 25 {
		t.Errorf("Expected mean 25 with one stream at 50, got %f", snapshot.Percent)
	}

	aggregator.update(&model.DownloadTask{
		Descriptor: model.StreamDescriptor{Kind: model.StreamKindAudio},
		Percent:    100,
	})
	if snapshot := tracker.Snapshot(); snapshot.Percent != 75 {
		t.Errorf("Expected mean 75, got %f", snapshot.Percent)
	}
}
