// Package feedback provides the acknowledgement played for each counted jump.
package feedback

import (
	"fmt"
	"io"
	"sync"

	"github.com/sweeney/skiptrack/internal/logic"
)

// bell is the ASCII BEL control character: most terminals and serial
// consoles render it as a short click or beep.
const bell = "\a"

// Bell writes a terminal bell to w for every click.
type Bell struct {
	mu sync.Mutex
	w  io.Writer
}

// NewBell creates a Bell that writes to w.
func NewBell(w io.Writer) *Bell {
	return &Bell{w: w}
}

// Click writes one bell character.
func (b *Bell) Click() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := io.WriteString(b.w, bell); err != nil {
		return fmt.Errorf("write bell: %w", err)
	}
	return nil
}

// Nop discards clicks.
type Nop struct{}

// Click does nothing.
func (Nop) Click() error { return nil }

// New returns the feedback implementation for a configured mode:
// "bell" writes to w, "none" (or empty) is silent.
func New(mode string, w io.Writer) (logic.Feedback, error) {
	switch mode {
	case "bell":
		return NewBell(w), nil
	case "", "none":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown feedback mode %q", mode)
	}
}
