// Package console decides when output is colored and styles it.
package console

import (
	"io"
	"os"

	fcolor "github.com/fatih/color"
	"golang.org/x/term"
)

// IsTerminal reports whether w is a terminal. NO_COLOR disables detection.
func IsTerminal(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Green returns s colored green when w is a terminal.
func Green(w io.Writer, s string) string {
	return paint(w, fcolor.FgGreen, s)
}

// Cyan returns s colored cyan when w is a terminal.
func Cyan(w io.Writer, s string) string {
	return paint(w, fcolor.FgCyan, s)
}

// Red returns s colored red when w is a terminal.
func Red(w io.Writer, s string) string {
	return paint(w, fcolor.FgRed, s)
}

func paint(w io.Writer, attr fcolor.Attribute, s string) string {
	if !IsTerminal(w) {
		return s
	}
	c := fcolor.New(attr)
	c.EnableColor()
	return c.Sprint(s)
}
