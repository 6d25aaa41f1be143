package main

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// sanitize strips terminal escape sequences and control characters other
// than tab and newline from model output. A CR of a CRLF pair is dropped
// with the rest.
func sanitize(s string) string {
	s = ansi.Strip(s)
	if !strings.ContainsFunc(s, isControl) {
		return s
	}
	return strings.Map(func(r rune) rune {
		if isControl(r) {
			return -1
		}
		return r
	}, s)
}

func isControl(r rune) bool {
	return (r < 0x20 && r != '\t' && r != '\n') || r == 0x7f
}
