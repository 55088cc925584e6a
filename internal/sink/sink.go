// Package sink provides consumers for the raw RTCM correction chunks the
// streaming client reads from the caster. Sinks implement io.Writer; the
// buffer passed to Write is reused by the caller, so sinks that retain
// data must copy it. Sink failures are reported to the caller but never
// stop the stream.
package sink

import (
	"errors"
	"io"
)

// Multi fans a chunk out to every sink. All sinks are attempted even
// when an earlier one fails; the errors are joined.
type Multi []io.Writer

func (m Multi) Write(p []byte) (int, error) {
	var errs []error
	for _, w := range m {
		if _, err := w.Write(p); err != nil {
			errs = append(errs, err)
		}
	}
	return len(p), errors.Join(errs...)
}
