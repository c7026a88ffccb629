package catalog

import (
	"context"

	"github.com/ytget/yt-remux/internal/model"
)

// ProgressFunc is invoked as stream bytes arrive, with the number of bytes
// still to be fetched. The total size is known upfront from the descriptor.
type ProgressFunc func(bytesRemaining int64)

// Stream is one downloadable variant resolved by a catalog provider.
type Stream interface {
	// Descriptor returns the immutable description of this variant.
	Descriptor() model.StreamDescriptor

	// Download writes the stream into destDir/filename, blocking until the
	// transfer completes or fails. onProgress may be nil.
	Download(ctx context.Context, destDir, filename string, onProgress ProgressFunc) error
}

// Provider enumerates the stream variants available for a video URL.
type Provider interface {
	ListStreams(ctx context.Context, url string) ([]Stream, error)
	GetByItag(ctx context.Context, url string, itag int) (Stream, error)
}
