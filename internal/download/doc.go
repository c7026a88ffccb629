package download

// Package download implements the stream downloader: it drives a catalog
// stream's blocking download primitive into a scratch file, converts the
// bytes-remaining callbacks into a percentage, and forwards progress to the
// run's tracker and an optional update callback.
