package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ytget/yt-remux/internal/catalog"
	"github.com/ytget/yt-remux/internal/config"
	"github.com/ytget/yt-remux/internal/log"
	"github.com/ytget/yt-remux/internal/model"
	"github.com/ytget/yt-remux/internal/pipeline"
	"github.com/ytget/yt-remux/internal/progress"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

// Default itags for the common H.264 1080p + AAC 128k pairing
const (
	DefaultVideoItag = 137
	DefaultAudioItag = 140
)

func main() {
	var (
		videoURL     = flag.String("video-url", "", "resolved direct URL of the video stream (required)")
		audioURL     = flag.String("audio-url", "", "resolved direct URL of the audio stream (optional)")
		videoItag    = flag.Int("video-itag", DefaultVideoItag, "itag of the video stream")
		audioItag    = flag.Int("audio-itag", DefaultAudioItag, "itag of the audio stream")
		videoSize    = flag.Int64("video-size", 0, "video stream size in bytes, for download progress")
		audioSize    = flag.Int64("audio-size", 0, "audio stream size in bytes, for download progress")
		outputPath   = flag.String("o", "", "output file path (required)")
		configPath   = flag.String("config", "", "path to a YAML settings file")
		sequential   = flag.Bool("sequential", false, "download streams one after the other")
		requireAudio = flag.Bool("require-audio", false, "fail instead of producing video-only output when no audio stream is given")
		showVersion  = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("yt-remux v%s\n", version)
		return
	}
	if *videoURL == "" || *outputPath == "" {
		fmt.Fprintln(os.Stderr, "both -video-url and -o are required")
		flag.Usage()
		os.Exit(2)
	}

	settings, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *sequential {
		settings.SequentialDownloads = true
	}
	if *requireAudio {
		settings.RequireAudio = true
	}

	log.Configure(log.Config{Level: settings.LogLevel})
	logger := log.WithComponent("main")
	logger.Info().Str("version", version).Msg("starting")

	if err := settings.ResolveTools(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	spec := pipeline.RunSpec{
		Video: catalog.NewHTTPStream(model.StreamDescriptor{
			Itag:     *videoItag,
			Kind:     model.StreamKindVideo,
			FileSize: *videoSize,
		}, *videoURL),
		OutputPath: *outputPath,
	}
	if *audioURL != "" {
		spec.Audio = catalog.NewHTTPStream(model.StreamDescriptor{
			Itag:     *audioItag,
			Kind:     model.StreamKindAudio,
			FileSize: *audioSize,
		}, *audioURL)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracker := progress.NewTracker()
	updates := tracker.Subscribe()
	printerDone := make(chan struct{})
	go func() {
		defer close(printerDone)
		printProgress(updates)
	}()

	engine := pipeline.New(pipeline.Options{
		FFmpegPath:          settings.FFmpegPath,
		FFprobePath:         settings.FFprobePath,
		SequentialDownloads: settings.SequentialDownloads,
		RequireAudio:        settings.RequireAudio,
	})

	result, runErr := engine.Run(ctx, spec, tracker)
	tracker.Unsubscribe(updates)
	<-printerDone

	if runErr != nil {
		if errors.Is(runErr, pipeline.ErrCancelled) {
			fmt.Fprintln(os.Stderr, "cancelled")
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "failed: %v\n", runErr)
		os.Exit(1)
	}

	for _, warning := range result.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %v\n", warning)
	}
	fmt.Printf("done: %s\n", result.OutputPath)
}

// printProgress renders tracker updates until the channel closes.
func printProgress(updates chan progress.Snapshot) {
	var lastLine string
	for snapshot := range updates {
		line := fmt.Sprintf("%s ... %.2f %%", snapshot.Phase, snapshot.Percent)
		if line == lastLine {
			continue
		}
		lastLine = line
		fmt.Println(line)
	}
}
