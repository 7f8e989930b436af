// Package logutil contains logging utilities.
package logutil

import (
	"io"
	"log"
)

// Discard is a Logger that ignores everything written to it. Components take
// a *log.Logger in their constructors and fall back to Discard when given nil.
var Discard = log.New(io.Discard, "", 0)

// Named returns a logger writing to w with the given component name as
// prefix, or Discard if w is nil.
func Named(w io.Writer, name string) *log.Logger {
	if w == nil {
		return Discard
	}
	return log.New(w, "["+name+"] ", log.LstdFlags)
}
