// Package extract pulls the first audio stream out of a video as a mono 16 kHz
// PCM WAV file, the input format both transcription backends expect.
package extract
