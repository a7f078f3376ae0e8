// Package motion provides acceleration sample sources with hardware abstraction.
// The serial implementation reads an IMU streaming over a serial line, the
// replay implementation reads a recorded sample file, and the fake
// implementation allows testing without hardware.
package motion

import (
	"errors"

	"github.com/sweeney/skiptrack/internal/logic"
)

// Sentinel errors.
var (
	// ErrNoSource is returned once every configured source has been tried
	// and none can deliver samples.
	ErrNoSource = errors.New("motion: no source available")

	// ErrMalformed wraps sample lines that cannot be parsed.
	ErrMalformed = errors.New("motion: malformed sample")

	// ErrTimeout is returned when a source produced no data within its
	// read timeout.
	ErrTimeout = errors.New("motion: read timeout")
)

// Source delivers acceleration samples.
type Source interface {
	// Name identifies the source in logs and status output.
	Name() string

	// Available checks whether the source can deliver samples, acquiring
	// any resources it needs. It is called before the first Read and again
	// after Close when the source is re-selected.
	Available() error

	// Read returns the next sample. Any error means the stream is broken.
	Read() (logic.Sample, error)

	// Close releases the source's resources.
	Close() error
}
