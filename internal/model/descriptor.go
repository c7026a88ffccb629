package model

// StreamKind distinguishes the two elementary track types a catalog can offer
type StreamKind string

const (
	// StreamKindVideo is a video-only track
	StreamKindVideo StreamKind = "video"

	// StreamKindAudio is an audio-only track
	StreamKindAudio StreamKind = "audio"
)

// Scratch file basenames, matching the container the catalog serves for the
// default stream variants
const (
	DefaultVideoContainer = "mp4"
	DefaultAudioContainer = "m4a"
)

// StreamDescriptor describes one downloadable stream variant. It is produced
// by the stream catalog and consumed read-only by the downloader and the
// pipeline.
type StreamDescriptor struct {
	Itag      int        // opaque variant identifier from the catalog
	Kind      StreamKind // video or audio
	Label     string     // resolution for video ("1080p"), bitrate for audio ("128kbps")
	Container string     // container/extension without dot ("mp4", "m4a")
	FileSize  int64      // total size in bytes, 0 if unknown until download
}

// ScratchFilename returns the filename used for this stream inside a run's
// scratch workspace. The kind picks the basename, the container the extension.
func (d StreamDescriptor) ScratchFilename() string {
	container := d.Container
	if container == "" {
		if d.Kind == StreamKindAudio {
			container = DefaultAudioContainer
		} else {
			container = DefaultVideoContainer
		}
	}
	if d.Kind == StreamKindAudio {
		return "audio." + container
	}
	return "video." + container
}
