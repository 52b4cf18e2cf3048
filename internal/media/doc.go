// Package media holds the value types that flow through a subtitle run:
// the verified source video, the extracted audio track, and the time-coded
// transcript segments. Constructors enforce the invariants each stage relies
// on, so later stages never re-check them.
package media
