// Package ptyrclog wraps the standard logger with the conventions the rest
// of the module relies on: raw-mode-safe line endings and a verbose gate.
package ptyrclog

import (
	"fmt"
	"log"
	"os"
)

var std = log.New(os.Stderr, "", log.LstdFlags)

var verbose = false

// SetVerbose toggles Verbosef output. Off by default.
func SetVerbose(v bool) { verbose = v }

// Printf logs unconditionally, prefixed with a connection id when non-empty.
// Each line ends in "\r\n" so it stays legible in raw mode.
func Printf(connID, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if connID != "" {
		msg = connID + ": " + msg
	}
	std.Print(msg + "\r")
}

// Verbosef logs only when SetVerbose(true) has been called. Matches the
// original's verbose() helper, which writes with "\n\r" line endings so
// output stays legible while the terminal is in raw mode; Printf adds the
// "\r" and the log package adds the trailing newline, so callers should
// not add one.
func Verbosef(connID, format string, args ...any) {
	if !verbose {
		return
	}
	Printf(connID, format, args...)
}
