package catalog

import "errors"

// Typed failures a catalog provider can report. Callers match them with
// errors.Is; providers wrap them with context.
var (
	// ErrVideoUnavailable means the source video cannot be accessed at all.
	ErrVideoUnavailable = errors.New("video unavailable")

	// ErrVideoPrivate means the source video is private.
	ErrVideoPrivate = errors.New("video is private")

	// ErrAgeRestricted means the source video is age restricted.
	ErrAgeRestricted = errors.New("video is age restricted")

	// ErrMembersOnly means the source video is restricted to members.
	ErrMembersOnly = errors.New("video is members only")

	// ErrStreamNotFound means no stream matches the requested itag.
	ErrStreamNotFound = errors.New("stream not found")

	// ErrStreamUnavailable means a previously enumerated stream no longer
	// resolves to playable bytes at download time.
	ErrStreamUnavailable = errors.New("stream unavailable")
)
