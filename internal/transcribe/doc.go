// Package transcribe turns an extracted audio track into time-coded segments.
//
// Two backends are available: WhisperX, launched through uvx, and the
// whisper.cpp command-line tool. Each backend must be initialized before use;
// initialization verifies the engine binary and model so a misconfigured
// install fails before any audio is processed.
package transcribe
