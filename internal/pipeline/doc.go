// Package pipeline sequences one subtitle run: resolve the input to a video,
// extract its audio, transcribe it and write the SubRip file.
//
// Stages run strictly forward. The first failure ends the run in the Failed
// state with the stage and cause recorded; later stages never start and
// artifacts of earlier stages stay on disk as they are. Nothing is retried.
package pipeline
