// Package watch monitors a directory and feeds new video files to the
// pipeline one at a time, each into its own output subdirectory.
package watch
