// Package probe obtains the total packet count of a downloaded video file by
// invoking ffprobe. The packet count approximates the frame count: it is read
// from the container index instead of a full decode pass, which is much
// faster at the cost of exactness. The count is the denominator for
// merge-phase progress.
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/ytget/yt-remux/internal/log"
)

// ffprobe invocation constants
const (
	DefaultCommand     = "ffprobe"
	LogLevel           = "error"
	VideoStreamSelect  = "v:0"
	PacketCountEntries = "stream=nb_read_packets"
	OutputFormat       = "json"
)

// ErrProbeFailed means ffprobe exited non-zero, produced malformed output, or
// the selected stream carries no packet count. Fatal to a pipeline run.
var ErrProbeFailed = errors.New("probe failed")

// Counter counts the packets of a file's first video stream.
type Counter struct {
	ffprobePath string
	logger      zerolog.Logger
}

// NewCounter creates a counter using the given ffprobe executable.
func NewCounter(ffprobePath string) *Counter {
	if ffprobePath == "" {
		ffprobePath = DefaultCommand
	}
	return &Counter{
		ffprobePath: ffprobePath,
		logger:      log.WithComponent("probe"),
	}
}

// CountPackets runs ffprobe against videoPath and returns the packet count of
// its first video stream. Blocks until the subprocess exits.
func (c *Counter) CountPackets(ctx context.Context, videoPath string) (int64, error) {
	args := buildFFprobeArgs(videoPath)
	c.logger.Debug().Str("file", videoPath).Msg("counting packets")

	cmd := exec.CommandContext(ctx, c.ffprobePath, args...)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return 0, fmt.Errorf("%w: ffprobe exited with code %d: %s",
				ErrProbeFailed, exitErr.ExitCode(), bytes.TrimSpace(exitErr.Stderr))
		}
		return 0, fmt.Errorf("%w: run ffprobe: %v", ErrProbeFailed, err)
	}

	count, err := parsePacketCount(output)
	if err != nil {
		return 0, err
	}

	c.logger.Debug().Str("file", videoPath).Int64("packets", count).Msg("packet count obtained")
	return count, nil
}

// buildFFprobeArgs builds the ffprobe command arguments
func buildFFprobeArgs(videoPath string) []string {
	return []string{
		"-v", LogLevel,
		"-select_streams", VideoStreamSelect,
		"-count_packets",
		"-show_entries", PacketCountEntries,
		"-of", OutputFormat,
		videoPath,
	}
}

// parsePacketCount extracts streams[0].nb_read_packets from ffprobe JSON
// output. ffprobe serialises the count as a JSON string.
func parsePacketCount(data []byte) (int64, error) {
	var result struct {
		Streams []struct {
			NbReadPackets string `json:"nb_read_packets"`
		} `json:"streams"`
	}

	if err := json.Unmarshal(data, &result); err != nil {
		return 0, fmt.Errorf("%w: malformed ffprobe output: %v", ErrProbeFailed, err)
	}
	if len(result.Streams) == 0 {
		return 0, fmt.Errorf("%w: no video stream in ffprobe output", ErrProbeFailed)
	}
	if result.Streams[0].NbReadPackets == "" {
		return 0, fmt.Errorf("%w: stream has no packet count", ErrProbeFailed)
	}

	count, err := strconv.ParseInt(result.Streams[0].NbReadPackets, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid packet count %q: %v", ErrProbeFailed, result.Streams[0].NbReadPackets, err)
	}
	if count <= 0 {
		return 0, fmt.Errorf("%w: non-positive packet count %d", ErrProbeFailed, count)
	}

	return count, nil
}
