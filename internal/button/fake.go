package button

// FakeReader is a test double that returns scripted button levels.
type FakeReader struct {
	// Levels contains scripted pressed values to return.
	// Each call to Pressed() consumes the next level.
	Levels []bool

	// index tracks current position in Levels
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Pressed()
	ReadError error
}

// NewFakeReader creates a FakeReader with the given levels.
func NewFakeReader(levels ...bool) *FakeReader {
	return &FakeReader{Levels: levels}
}

// Pressed returns the next scripted level.
// If levels are exhausted, the button reads as released.
func (f *FakeReader) Pressed() (bool, error) {
	if f.ReadError != nil {
		return false, f.ReadError
	}
	if f.index >= len(f.Levels) {
		return false, nil
	}
	v := f.Levels[f.index]
	f.index++
	return v, nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}
