package motion

import (
	"errors"

	"github.com/sweeney/skiptrack/internal/logic"
)

// FakeSource is a test double that returns scripted samples.
type FakeSource struct {
	// SourceName is returned by Name.
	SourceName string

	// Samples contains scripted samples to return.
	// Each call to Read() consumes the next sample.
	Samples []logic.Sample

	// AvailableError, if set, will be returned by Available().
	AvailableError error

	// ReadError, if set, will be returned by Read().
	ReadError error

	// FailAfter, if positive, makes every Read after that many successful
	// reads return FailError.
	FailAfter int
	FailError error

	// Reads counts successful reads.
	Reads int

	// Opened and Closed count calls to Available and Close.
	Opened int
	Closed int

	// index tracks current position in Samples
	index int
}

// NewFakeSource creates a FakeSource with the given samples.
func NewFakeSource(name string, samples []logic.Sample) *FakeSource {
	return &FakeSource{SourceName: name, Samples: samples}
}

// Name returns SourceName.
func (f *FakeSource) Name() string {
	return f.SourceName
}

// Available returns AvailableError.
func (f *FakeSource) Available() error {
	f.Opened++
	return f.AvailableError
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeSource) Read() (logic.Sample, error) {
	if f.ReadError != nil {
		return logic.Sample{}, f.ReadError
	}
	if f.FailAfter > 0 && f.Reads >= f.FailAfter {
		if f.FailError == nil {
			return logic.Sample{}, errors.New("fake stream broken")
		}
		return logic.Sample{}, f.FailError
	}
	if len(f.Samples) == 0 {
		return logic.Sample{}, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	f.Reads++
	return sample, nil
}

// Close records the call.
func (f *FakeSource) Close() error {
	f.Closed++
	return nil
}

// Reset rewinds the scripted samples.
func (f *FakeSource) Reset() {
	f.index = 0
	f.Reads = 0
}
