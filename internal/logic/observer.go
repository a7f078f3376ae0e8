package logic

// Observer is notified once per accepted event.
type Observer interface {
	JumpDetected(ev Event)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(ev Event)

// JumpDetected calls f(ev).
func (f ObserverFunc) JumpDetected(ev Event) {
	f(ev)
}

// Feedback performs the user-facing acknowledgement of an event, such as a
// short click.
type Feedback interface {
	Click() error
}

// Dispatch delivers ev to the observer and triggers one feedback action.
// The feedback error is returned for logging; the observer has already been
// notified when it is non-nil.
func Dispatch(obs Observer, fb Feedback, ev Event) error {
	if obs != nil {
		obs.JumpDetected(ev)
	}
	if fb == nil {
		return nil
	}
	return fb.Click()
}
