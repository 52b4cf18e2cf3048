// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs the binary; Parse decodes captured output; the Prober
// interface lets extraction and diagnostics swap in a fake during tests.
// Helper methods on Result expose stream counts, the first audio stream, and
// duration parsing.
package ffprobe
