// Package services defines the shared error taxonomy and context helpers used
// by every pipeline stage.
//
// Key responsibilities:
//   - Sentinel markers (ErrNotFound, ErrExtraction, ErrTranscription, ...) plus
//     the Wrap helper that tags a failure with its stage and operation.
//   - Context helpers that stamp run identifiers and stage names for logging.
//
// Stage code should always return errors built with Wrap so callers can branch
// with errors.Is instead of matching message text.
package services
