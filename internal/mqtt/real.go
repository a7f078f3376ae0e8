package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/sweeney/skiptrack/internal/logic"
)

const publishTimeout = 5 * time.Second

// Options configures the broker connection.
type Options struct {
	Broker   string
	ClientID string
	// BufferSize is the number of messages kept while disconnected.
	BufferSize int
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are buffered and replayed, oldest first, once it
// comes back. Safe for concurrent use.
type RealPublisher struct {
	client paho.Client
	log    *logrus.Entry

	mu     sync.Mutex
	buffer *ringBuffer
}

// NewRealPublisher creates a publisher and starts connecting in the
// background. It does not wait for the broker: until the first connection
// succeeds, messages are buffered.
func NewRealPublisher(opts Options) *RealPublisher {
	p := newPublisher(nil, opts.BufferSize)

	will, _ := FormatSystemPayload(SystemEvent{Event: EventOffline, Reason: "LWT"})
	copts := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(func(paho.Client) {
			p.log.WithField("broker", opts.Broker).Info("connected")
			p.flush()
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			p.log.WithError(err).Warn("connection lost, buffering messages")
		})

	p.client = paho.NewClient(copts)
	p.client.Connect()
	return p
}

func newPublisher(client paho.Client, bufferSize int) *RealPublisher {
	return &RealPublisher{
		client: client,
		log:    logrus.WithField("component", "mqtt"),
		buffer: newRingBuffer(bufferSize),
	}
}

// Publish sends a jump event. QoS 0, not retained.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	return p.send(bufferedMsg{topic: Topic, payload: payload})
}

// PublishSystem sends a system event. QoS 1 so lifecycle events are not lost.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.send(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

// IsConnected reports whether the connection to the broker is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffer.len()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // milliseconds
	return nil
}

func (p *RealPublisher) send(msg bufferedMsg) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		evicted := p.buffer.push(msg)
		first := evicted && p.buffer.dropped == 1
		p.mu.Unlock()
		if first {
			p.log.Warn("buffer full, dropping oldest messages")
		}
		return nil
	}
	return p.publish(msg)
}

func (p *RealPublisher) publish(msg bufferedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s: timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", msg.topic, err)
	}
	return nil
}

// flush replays buffered messages after a (re)connect.
func (p *RealPublisher) flush() {
	p.mu.Lock()
	msgs, dropped := p.buffer.drain()
	p.mu.Unlock()

	if len(msgs) == 0 {
		return
	}
	p.log.WithFields(logrus.Fields{"count": len(msgs), "dropped": dropped}).Info("replaying buffered messages")
	for _, msg := range msgs {
		if err := p.publish(msg); err != nil {
			p.log.WithError(err).Warn("replay failed")
		}
	}
}
