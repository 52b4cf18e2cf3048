// Command subgen generates SubRip subtitles for video files.
//
// With no arguments it starts an interactive session that asks for a video
// path, resolves it (direct path, directory listing or fuzzy search across
// the configured roots), extracts the audio track with ffmpeg, transcribes it
// with the configured engine and writes subtitles.srt to the output
// directory.
package main
