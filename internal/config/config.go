// Package config defines the daemon configuration and how it is loaded.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sweeney/skiptrack/internal/button"
	"github.com/sweeney/skiptrack/internal/logic"
	"github.com/sweeney/skiptrack/internal/workout"
)

// Source kinds.
const (
	KindSerial = "serial"
	KindReplay = "replay"
)

// Config contains process configuration.
type Config struct {
	// Poll is the sampling period of the run loop.
	Poll time.Duration `koanf:"poll"`

	// Heartbeat is the interval between HEARTBEAT system events; 0 disables.
	Heartbeat time.Duration `koanf:"heartbeat"`

	Detector DetectorConfig `koanf:"detector"`

	// Sources are tried in order; later entries are fallbacks.
	Sources []SourceConfig `koanf:"sources"`

	Button   ButtonConfig  `koanf:"button"`
	MQTT     MQTTConfig    `koanf:"mqtt"`
	HTTP     HTTPConfig    `koanf:"http"`
	Log      LogConfig     `koanf:"log"`
	Metrics  MetricsConfig `koanf:"metrics"`
	Feedback string        `koanf:"feedback"`

	// Autostart starts a workout at launch: "" for none, "free", or a plan name.
	Autostart string `koanf:"autostart"`
}

// DetectorConfig holds the detection policy.
type DetectorConfig struct {
	Threshold      float64       `koanf:"threshold"`
	Refractory     time.Duration `koanf:"refractory"`
	ManualInterval time.Duration `koanf:"manual_interval"`
}

// Policy converts the config into a detector policy.
func (d DetectorConfig) Policy() logic.Policy {
	return logic.Policy{
		Threshold:      d.Threshold,
		Refractory:     d.Refractory,
		ManualInterval: d.ManualInterval,
	}
}

// SourceConfig describes one motion source.
type SourceConfig struct {
	Kind string `koanf:"kind"`
	Name string `koanf:"name"`
	Path string `koanf:"path"`

	// Serial only.
	Baud        int           `koanf:"baud"`
	DataBits    int           `koanf:"data_bits"`
	StopBits    int           `koanf:"stop_bits"`
	Parity      string        `koanf:"parity"`
	ReadTimeout time.Duration `koanf:"read_timeout"`

	// Replay only.
	Loop bool `koanf:"loop"`
}

// DisplayName is Name, or kind:path when unnamed.
func (s SourceConfig) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Kind + ":" + s.Path
}

// ButtonConfig describes the manual tap button.
type ButtonConfig struct {
	Enabled bool   `koanf:"enabled"`
	Chip    string `koanf:"chip"`
	Pin     int    `koanf:"pin"`
}

// MQTTConfig describes the broker connection. An empty broker disables MQTT.
type MQTTConfig struct {
	Broker     string `koanf:"broker"`
	ClientID   string `koanf:"client_id"`
	BufferSize int    `koanf:"buffer_size"`
}

// HTTPConfig describes the status server. An empty address disables it.
type HTTPConfig struct {
	Addr string `koanf:"addr"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level  string `koanf:"level"`
	JSON   bool   `koanf:"json"`
	File   string `koanf:"file"`
	Stdout bool   `koanf:"stdout"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Namespace string `koanf:"namespace"`
}

// New returns a Config populated with defaults.
func New() *Config {
	p := logic.DefaultPolicy()
	return &Config{
		Poll:      100 * time.Millisecond,
		Heartbeat: 15 * time.Minute,
		Detector: DetectorConfig{
			Threshold:      p.Threshold,
			Refractory:     p.Refractory,
			ManualInterval: p.ManualInterval,
		},
		Button: ButtonConfig{
			Chip: button.DefaultChip,
			Pin:  button.DefaultPin,
		},
		MQTT: MQTTConfig{
			Broker:     "tcp://localhost:1883",
			ClientID:   "skiptrack",
			BufferSize: 100,
		},
		HTTP:     HTTPConfig{Addr: ":8080"},
		Log:      LogConfig{Level: "info"},
		Metrics:  MetricsConfig{Enabled: true, Namespace: "skiptrack"},
		Feedback: "bell",
	}
}

// DefaultSources is used when no source is configured: the IMU on the first
// USB serial port.
func DefaultSources() []SourceConfig {
	return []SourceConfig{
		{Kind: KindSerial, Name: "imu", Path: "/dev/ttyUSB0", Baud: 115200},
	}
}

// Validate reports the first problem found, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.Poll <= 0 {
		return fmt.Errorf("%w: poll must be positive, got %v", ErrInvalidConfig, c.Poll)
	}
	if c.Heartbeat < 0 {
		return fmt.Errorf("%w: heartbeat must not be negative, got %v", ErrInvalidConfig, c.Heartbeat)
	}
	if c.Detector.Threshold <= 0 {
		return fmt.Errorf("%w: detector.threshold must be positive, got %v", ErrInvalidConfig, c.Detector.Threshold)
	}
	if c.Detector.Refractory <= 0 {
		return fmt.Errorf("%w: detector.refractory must be positive, got %v", ErrInvalidConfig, c.Detector.Refractory)
	}
	if c.Detector.ManualInterval <= 0 {
		return fmt.Errorf("%w: detector.manual_interval must be positive, got %v", ErrInvalidConfig, c.Detector.ManualInterval)
	}

	if len(c.Sources) == 0 {
		return fmt.Errorf("%w: at least one source is required", ErrInvalidConfig)
	}
	for i, s := range c.Sources {
		switch s.Kind {
		case KindSerial, KindReplay:
		default:
			return fmt.Errorf("%w: sources[%d]: unknown kind %q", ErrInvalidConfig, i, s.Kind)
		}
		if s.Path == "" {
			return fmt.Errorf("%w: sources[%d]: path is required", ErrInvalidConfig, i)
		}
	}

	if c.Button.Enabled && c.Button.Pin < 0 {
		return fmt.Errorf("%w: button.pin must not be negative, got %d", ErrInvalidConfig, c.Button.Pin)
	}
	if c.MQTT.Broker != "" && c.MQTT.BufferSize <= 0 {
		return fmt.Errorf("%w: mqtt.buffer_size must be positive, got %d", ErrInvalidConfig, c.MQTT.BufferSize)
	}

	switch c.Feedback {
	case "", "bell", "none":
	default:
		return fmt.Errorf("%w: unknown feedback %q", ErrInvalidConfig, c.Feedback)
	}

	switch strings.ToLower(c.Autostart) {
	case "", "free":
	default:
		if _, err := workout.PlanByName(c.Autostart); err != nil {
			return fmt.Errorf("%w: autostart: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}
