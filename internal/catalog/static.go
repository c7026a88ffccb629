package catalog

import (
	"context"
	"fmt"
)

// StaticProvider serves a fixed set of pre-resolved streams, keyed by itag.
// It backs the CLI (where stream URLs arrive already resolved) and tests.
type StaticProvider struct {
	streams []Stream
}

// NewStaticProvider creates a provider over the given streams.
func NewStaticProvider(streams ...Stream) *StaticProvider {
	return &StaticProvider{streams: streams}
}

// ListStreams returns every known stream. The url argument is ignored; a
// static provider holds variants of exactly one video.
func (p *StaticProvider) ListStreams(_ context.Context, _ string) ([]Stream, error) {
	out := make([]Stream, len(p.streams))
	copy(out, p.streams)
	return out, nil
}

// GetByItag returns the stream with the given itag.
func (p *StaticProvider) GetByItag(_ context.Context, _ string, itag int) (Stream, error) {
	for _, s := range p.streams {
		if s.Descriptor().Itag == itag {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: itag=%d", ErrStreamNotFound, itag)
}
