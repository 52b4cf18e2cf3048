// Package language normalizes the transcription language setting.
//
// Users may write an ISO 639-1 code ("de"), an ISO 639-2/3 code ("deu") or
// the English name ("German"); the transcription backends want the 2-letter
// form. "auto" and the empty string mean detection by the engine.
package language
