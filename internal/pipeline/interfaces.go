package pipeline

import (
	"context"

	"github.com/ytget/yt-remux/internal/catalog"
	"github.com/ytget/yt-remux/internal/model"
	"github.com/ytget/yt-remux/internal/progress"
)

// streamDownloader is the downloader seam; internal/download.Service is the
// production implementation.
type streamDownloader interface {
	SetUpdateCallback(func(*model.DownloadTask))
	Download(ctx context.Context, stream catalog.Stream, destDir string) (*model.DownloadTask, error)
}

// packetCounter is the probe seam; internal/probe.Counter is the production
// implementation.
type packetCounter interface {
	CountPackets(ctx context.Context, videoPath string) (int64, error)
}

// merger is the merge-engine seam; internal/merge.Engine is the production
// implementation.
type merger interface {
	Merge(ctx context.Context, job *model.MergeJob) error
}

// Factory hooks, replaced in tests. The downloader gets no tracker because
// the pipeline aggregates the per-stream percentages itself; the merger
// publishes straight to the run's tracker.
type (
	downloaderFactory func() streamDownloader
	counterFactory    func() packetCounter
	mergerFactory     func(tracker *progress.Tracker) merger
)
