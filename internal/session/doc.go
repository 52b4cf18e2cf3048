// Package session implements the interactive read-eval loop: it prompts for
// a video path, runs the pipeline for each entry, prints the result and asks
// again until the user quits or input ends.
package session
