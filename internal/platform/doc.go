package platform

// Package platform contains OS integration glue: filesystem helpers and
// discovery of the external ffmpeg/ffprobe tools.
