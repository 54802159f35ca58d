package main

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"audiorating/internal/completion"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

func renderCompletion(status completion.Status, colorize bool) string {
	label := string(status)
	if !colorize {
		return label
	}
	switch status {
	case completion.StatusComplete:
		return ansiGreen + label + ansiReset
	case completion.StatusIncomplete:
		return ansiYellow + label + ansiReset
	default:
		return ansiRed + label + ansiReset
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
