package model

// Package model defines the domain data structures used across the engine:
// stream descriptors, per-run download and merge records, and the pipeline
// phase enum. Structures are plain data with explicit state transitions and
// carry no I/O.
