// Package prompt implements the interactive console used by subgen: a line
// reader that honours context cancellation, and the numbered-choice
// selection loop used when a path matches more than one video.
//
// The selection loop is an explicit state machine (AwaitingInput,
// Validating, then Accepted, Rejected, or Cancelled). Rejected input loops
// back to AwaitingInput without limit; end of input, a quit word, or context
// cancellation ends the loop with services.ErrSelectionAborted.
package prompt
