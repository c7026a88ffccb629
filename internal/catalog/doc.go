package catalog

// Package catalog defines the stream-catalog boundary: interfaces for
// enumerating and downloading stream variants, the typed errors a provider
// can report, and an HTTP-backed Stream for already-resolved direct URLs.
// URL-to-metadata extraction itself lives behind the Provider interface and
// is not implemented here.
