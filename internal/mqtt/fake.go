package mqtt

import "github.com/sweeney/skiptrack/internal/logic"

// Message is a publish recorded by FakePublisher.
type Message struct {
	Topic    string
	QoS      byte
	Retained bool
	Payload  []byte
}

// FakePublisher records what would have been sent to the broker.
type FakePublisher struct {
	// Events and SystemEvents hold successful publishes in call order.
	Events       []logic.Event
	SystemEvents []SystemEvent

	// Messages holds every successful publish as it would hit the wire.
	Messages []Message

	// PublishError and PublishSystemError fail the respective call; failed
	// calls are not recorded.
	PublishError       error
	PublishSystemError error

	Connected bool
	Closed    bool
}

// NewFakePublisher creates an empty FakePublisher.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// Publish records a jump event.
func (f *FakePublisher) Publish(event logic.Event) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, event)
	f.Messages = append(f.Messages, Message{Topic: Topic, Payload: payload})
	return nil
}

// PublishSystem records a system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.Messages = append(f.Messages, Message{Topic: TopicSystem, QoS: 1, Retained: event.Retained, Payload: payload})
	return nil
}

// SystemEventNames lists recorded system event names in order.
func (f *FakePublisher) SystemEventNames() []string {
	names := make([]string, len(f.SystemEvents))
	for i, ev := range f.SystemEvents {
		names[i] = ev.Event
	}
	return names
}

// Close marks the publisher closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected returns Connected.
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset forgets everything, including configured errors.
func (f *FakePublisher) Reset() {
	*f = FakePublisher{}
}
