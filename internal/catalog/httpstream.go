package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ytget/yt-remux/internal/model"
)

// Transfer constants
const (
	// DownloadChunkSize is the copy granularity between progress callbacks.
	DownloadChunkSize = 256 * 1024

	// DefaultHTTPTimeout bounds a whole stream transfer.
	DefaultHTTPTimeout = 30 * time.Minute
)

// HTTPStream is a Stream backed by a pre-resolved direct URL. It implements
// the external download primitive: a blocking chunked fetch that reports
// bytes remaining after every chunk.
type HTTPStream struct {
	descriptor model.StreamDescriptor
	url        string
	client     *http.Client
}

// NewHTTPStream creates a stream for a resolved direct URL.
func NewHTTPStream(descriptor model.StreamDescriptor, url string) *HTTPStream {
	return &HTTPStream{
		descriptor: descriptor,
		url:        url,
		client:     &http.Client{Timeout: DefaultHTTPTimeout},
	}
}

// SetClient overrides the HTTP client, mainly for tests.
func (s *HTTPStream) SetClient(client *http.Client) {
	s.client = client
}

// Descriptor returns the immutable description of this variant.
func (s *HTTPStream) Descriptor() model.StreamDescriptor {
	return s.descriptor
}

// Download fetches the stream into destDir/filename. The transfer blocks the
// calling goroutine; onProgress is invoked with the bytes still to fetch
// after each chunk and with 0 once the file is complete.
func (s *HTTPStream) Download(ctx context.Context, destDir, filename string, onProgress ProgressFunc) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch stream: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusForbidden, http.StatusNotFound, http.StatusGone:
		return fmt.Errorf("%w: itag=%d status=%d", ErrStreamUnavailable, s.descriptor.Itag, resp.StatusCode)
	default:
		return fmt.Errorf("fetch stream: unexpected status %d", resp.StatusCode)
	}

	total := s.descriptor.FileSize
	if total <= 0 {
		total = resp.ContentLength
	}

	out, err := os.Create(filepath.Join(destDir, filename))
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer out.Close()

	var received int64
	for {
		n, copyErr := io.CopyN(out, resp.Body, DownloadChunkSize)
		received += n
		if onProgress != nil && total > 0 && n > 0 {
			remaining := total - received
			if remaining < 0 {
				remaining = 0
			}
			onProgress(remaining)
		}
		if copyErr == io.EOF {
			break
		}
		if copyErr != nil {
			return fmt.Errorf("read stream body: %w", copyErr)
		}
	}

	if onProgress != nil {
		onProgress(0)
	}
	return nil
}
