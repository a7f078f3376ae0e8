// Package button provides the manual tap input with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package button

// Reader reads the state of a push button.
type Reader interface {
	// Pressed returns the logical button state.
	// The line is pulled up and the button shorts it to ground, so raw
	// inactive (0) = pressed.
	Pressed() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Defaults (BCM numbering).
const (
	DefaultChip = "gpiochip0"
	DefaultPin  = 17
)

// Edge turns polled button levels into press events.
type Edge struct {
	last bool
}

// Update records the current level and reports whether it is a
// released-to-pressed transition. Holding the button reports one press.
func (e *Edge) Update(pressed bool) bool {
	rising := pressed && !e.last
	e.last = pressed
	return rising
}
