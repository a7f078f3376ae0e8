package motion

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/sweeney/skiptrack/internal/logic"
)

// ReplaySource plays back samples recorded in a file, one "x,y,z" (or JSON)
// sample per line.
type ReplaySource struct {
	name string
	path string
	loop bool

	samples []logic.Sample
	index   int
	loaded  bool
}

// NewReplaySource creates a source for the recording at path. When loop is
// set, playback restarts at the first sample after the last one.
func NewReplaySource(name, path string, loop bool) *ReplaySource {
	return &ReplaySource{name: name, path: path, loop: loop}
}

// Name returns the configured source name.
func (r *ReplaySource) Name() string {
	return r.name
}

// Available loads the recording and rewinds playback.
func (r *ReplaySource) Available() error {
	f, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("open replay %s: %w", r.path, err)
	}
	defer f.Close()

	samples, err := readSamples(f)
	if err != nil {
		return fmt.Errorf("replay %s: %w", r.path, err)
	}
	if len(samples) == 0 {
		return fmt.Errorf("replay %s: no samples", r.path)
	}

	r.samples = samples
	r.index = 0
	r.loaded = true
	return nil
}

// Read returns the next recorded sample, or io.EOF at the end of a
// non-looping recording.
func (r *ReplaySource) Read() (logic.Sample, error) {
	if !r.loaded {
		return logic.Sample{}, fmt.Errorf("replay %s: not loaded", r.path)
	}
	if r.index >= len(r.samples) {
		if !r.loop {
			return logic.Sample{}, fmt.Errorf("replay %s: %w", r.path, io.EOF)
		}
		r.index = 0
	}
	s := r.samples[r.index]
	r.index++
	return s, nil
}

// Close drops the loaded recording.
func (r *ReplaySource) Close() error {
	r.samples = nil
	r.index = 0
	r.loaded = false
	return nil
}

func readSamples(rd io.Reader) ([]logic.Sample, error) {
	var samples []logic.Sample
	sc := bufio.NewScanner(rd)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if skipLine(line) {
			continue
		}
		s, err := ParseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		samples = append(samples, s)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}
