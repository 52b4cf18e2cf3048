package main

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset = "\033[0m"
	ansiGreen = "\033[32m"
	ansiRed   = "\033[31m"
	ansiDim   = "\033[2m"
)

// statusMark renders a pass/fail cell, coloured when out is a terminal.
func statusMark(out io.Writer, passed, optional bool) string {
	label, color := "OK", ansiGreen
	switch {
	case !passed && optional:
		label, color = "SKIP", ansiDim
	case !passed:
		label, color = "FAIL", ansiRed
	}
	if !shouldColorize(out) {
		return label
	}
	return color + label + ansiReset
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
