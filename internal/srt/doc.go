// Package srt renders transcript segments as SubRip subtitles and reads them
// back.
//
// Cues are numbered from 1 in segment order. Timestamps use the
// HH:MM:SS,mmm form rounded to the nearest millisecond; a cue whose start and
// end differ but round to the same millisecond gets a 1 ms duration so it
// never collapses.
package srt
