// Package preflight checks the filesystem state a run depends on: the output
// and log directories, the history database location and the whisper.cpp
// model file. The doctor command reports these alongside the binary checks
// from package deps.
package preflight
