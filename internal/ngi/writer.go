// Package ngi holds small pieces of plumbing needed while flushing a
// compiled listing that don't belong in the emitter itself.
package ngi

import (
	"io"

	"github.com/pkg/errors"
)

// ListingWriter wraps the io.Writer a compiled listing is flushed to and
// latches the first write error it sees. A listing is written one
// instruction line at a time (see Emitter.Flush); checking an error after
// every Fprintln would bury the actual failure in repetition, so every
// Write after the first failure is a no-op that keeps returning it, and
// the caller checks Err exactly once at the end.
type ListingWriter struct {
	w   io.Writer
	Err error
}

func (w *ListingWriter) Write(p []byte) (n int, err error) {
	if w.Err != nil {
		return 0, w.Err
	}
	n, err = w.w.Write(p)
	if err != nil {
		w.Err = errors.Wrap(err, "writing listing")
	}
	return n, w.Err
}

// NewListingWriter returns a ListingWriter flushing to w.
func NewListingWriter(w io.Writer) *ListingWriter {
	return &ListingWriter{w: w}
}
