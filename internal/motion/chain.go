package motion

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sweeney/skiptrack/internal/logic"
)

// State is a point-in-time view of source selection.
type State struct {
	// Active is the name of the selected source; empty when none.
	Active string
	// Degraded is set once every source has failed or was unavailable.
	Degraded bool
	// Fallbacks counts switches away from a failed source since Reset.
	Fallbacks int
	// LastError describes the most recent source failure.
	LastError string
}

// Chain is an ordered list of sources tried in sequence. The first
// available source is used; when it fails mid-stream the chain falls back
// to the next available one. With every source exhausted the chain is
// degraded and Read returns ErrNoSource until Reset.
// Not safe for concurrent use.
type Chain struct {
	sources []Source
	current int // index into sources, -1 when none is selected

	degraded  bool
	fallbacks int
	lastErr   error

	log *logrus.Entry
}

// NewChain creates a chain over sources in priority order.
func NewChain(sources ...Source) *Chain {
	return &Chain{
		sources: sources,
		current: -1,
		log:     logrus.WithField("component", "motion"),
	}
}

// Open selects the first available source. It returns ErrNoSource when
// none is available; the chain is then degraded.
func (c *Chain) Open() error {
	if c.current >= 0 {
		return nil
	}
	if c.degraded {
		return ErrNoSource
	}
	return c.selectFrom(0)
}

// Reset closes the selected source, clears degraded state and selects again
// from the top of the list.
func (c *Chain) Reset() error {
	c.closeCurrent()
	c.degraded = false
	c.fallbacks = 0
	c.lastErr = nil
	return c.selectFrom(0)
}

// Read returns a sample from the selected source. When that source fails
// the failure is returned and the chain switches to the next available
// source, which serves the following Read.
func (c *Chain) Read() (logic.Sample, error) {
	if c.current < 0 {
		if err := c.Open(); err != nil {
			return logic.Sample{}, err
		}
	}

	src := c.sources[c.current]
	s, err := src.Read()
	if err == nil {
		return s, nil
	}

	c.lastErr = err
	c.fallbacks++
	c.log.WithError(err).WithField("source", src.Name()).Warn("motion source failed, falling back")

	failed := c.current
	c.closeCurrent()
	if selErr := c.selectFrom(failed + 1); selErr != nil {
		return logic.Sample{}, fmt.Errorf("%w: %s failed: %v", ErrNoSource, src.Name(), err)
	}
	return logic.Sample{}, fmt.Errorf("source %s: %w", src.Name(), err)
}

// State returns the current selection state.
func (c *Chain) State() State {
	st := State{
		Degraded:  c.degraded,
		Fallbacks: c.fallbacks,
	}
	if c.current >= 0 {
		st.Active = c.sources[c.current].Name()
	}
	if c.lastErr != nil {
		st.LastError = c.lastErr.Error()
	}
	return st
}

// Close releases the selected source.
func (c *Chain) Close() error {
	if c.current < 0 {
		return nil
	}
	err := c.sources[c.current].Close()
	c.current = -1
	return err
}

func (c *Chain) selectFrom(start int) error {
	for i := start; i < len(c.sources); i++ {
		src := c.sources[i]
		if err := src.Available(); err != nil {
			c.lastErr = err
			c.log.WithError(err).WithField("source", src.Name()).Info("motion source unavailable")
			continue
		}
		c.current = i
		c.log.WithField("source", src.Name()).Info("motion source selected")
		return nil
	}

	c.current = -1
	c.degraded = true
	c.log.Warn("no motion source available, jump detection will produce no events")
	return ErrNoSource
}

func (c *Chain) closeCurrent() {
	if c.current < 0 {
		return
	}
	src := c.sources[c.current]
	if err := src.Close(); err != nil {
		c.log.WithError(err).WithField("source", src.Name()).Warn("close motion source")
	}
	c.current = -1
}
