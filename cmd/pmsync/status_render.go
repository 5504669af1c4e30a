package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"pmsync/internal/preflight"
)

const (
	ansiReset = "\x1b[0m"
	ansiBold  = "\x1b[1m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
)

const checkNameWidth = 20

// checkLine renders one environment check as "  ok   Name   detail".
func checkLine(check preflight.Result, colorize bool) string {
	mark, color := "ok  ", ansiGreen
	if !check.Passed {
		mark, color = "FAIL", ansiRed
	}
	if colorize {
		mark = color + mark + ansiReset
	}
	line := fmt.Sprintf("  %s %-*s %s", mark, checkNameWidth, check.Name, check.Detail)
	return strings.TrimRight(line, " ")
}

func sectionTitle(title string, colorize bool) string {
	title = strings.ToUpper(strings.TrimSpace(title))
	if colorize {
		return ansiBold + title + ansiReset
	}
	return title
}

func shouldColorize(w io.Writer) bool {
	if _, off := os.LookupEnv("NO_COLOR"); off {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}
