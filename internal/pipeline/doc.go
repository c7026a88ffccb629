package pipeline

// Package pipeline sequences one full run: acquire a scratch workspace,
// download the chosen video and audio streams, probe the video file for its
// packet count, remux both tracks into the output file, and surface a single
// terminal result. Each run owns its workspace and progress tracker; runs
// never share state.
