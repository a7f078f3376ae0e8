package logging

import (
	"io"

	"go.uber.org/multierr"
)

// teeWriter writes to every writer even when one fails, so a full disk does
// not silence the console.
type teeWriter []io.Writer

func (t teeWriter) Write(p []byte) (int, error) {
	var err error
	for _, w := range t {
		if _, werr := w.Write(p); werr != nil {
			err = multierr.Append(err, werr)
		}
	}
	return len(p), err
}
