package motion

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"go.bug.st/serial"

	"github.com/sweeney/skiptrack/internal/logic"
)

// maxMalformed is the number of consecutive unparseable lines tolerated
// before the stream is considered broken.
const maxMalformed = 10

// Port is the subset of serial.Port the serial source needs.
type Port interface {
	io.ReadCloser
	SetReadTimeout(t time.Duration) error
}

// PortOpener opens a serial port. Tests replace it to avoid real hardware.
type PortOpener func(path string, mode *serial.Mode) (Port, error)

// OpenSerialPort opens a real serial port.
func OpenSerialPort(path string, mode *serial.Mode) (Port, error) {
	return serial.Open(path, mode)
}

// PortOptions describes the serial connection parameters.
type PortOptions struct {
	BaudRate int
	DataBits int
	StopBits int
	Parity   string
}

// Normalize validates the options and applies defaults for any unset values.
func (o PortOptions) Normalize() (PortOptions, error) {
	opts := o

	if opts.BaudRate <= 0 {
		opts.BaudRate = 115200
	}

	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("invalid data bits %d: must be between 5 and 8", opts.DataBits)
	}

	if opts.StopBits == 0 {
		opts.StopBits = 1
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", opts.StopBits)
	}

	switch strings.TrimSpace(strings.ToUpper(opts.Parity)) {
	case "", "N", "NONE":
		opts.Parity = "N"
	case "E", "EVEN":
		opts.Parity = "E"
	case "O", "ODD":
		opts.Parity = "O"
	default:
		return opts, fmt.Errorf("unsupported parity %q: expected N, E, or O", opts.Parity)
	}

	return opts, nil
}

// SerialMode converts the options into the go.bug.st/serial mode.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	if opts.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}
	switch opts.Parity {
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	}
	return mode, nil
}

// SerialSource reads one sample per line from an IMU on a serial port.
type SerialSource struct {
	name        string
	path        string
	opts        PortOptions
	readTimeout time.Duration
	open        PortOpener

	port    Port
	reader  *bufio.Reader
	partial string // line fragment received before a read timeout
}

// SerialOption configures a SerialSource.
type SerialOption func(*SerialSource)

// WithPortOpener replaces the function used to open the port.
func WithPortOpener(open PortOpener) SerialOption {
	return func(s *SerialSource) {
		if open != nil {
			s.open = open
		}
	}
}

// WithReadTimeout sets how long Read waits for a line before failing.
func WithReadTimeout(d time.Duration) SerialOption {
	return func(s *SerialSource) {
		if d > 0 {
			s.readTimeout = d
		}
	}
}

// NewSerialSource creates a source for the device at path. The port is
// opened lazily by Available.
func NewSerialSource(name, path string, opts PortOptions, options ...SerialOption) *SerialSource {
	s := &SerialSource{
		name:        name,
		path:        path,
		opts:        opts,
		readTimeout: time.Second,
		open:        OpenSerialPort,
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// Name returns the configured source name.
func (s *SerialSource) Name() string {
	return s.name
}

// Available opens the port if it is not open yet.
func (s *SerialSource) Available() error {
	if s.port != nil {
		return nil
	}

	mode, err := s.opts.SerialMode()
	if err != nil {
		return fmt.Errorf("serial %s: %w", s.path, err)
	}

	port, err := s.open(s.path, mode)
	if err != nil {
		return fmt.Errorf("open serial %s: %w", s.path, err)
	}
	if err := port.SetReadTimeout(s.readTimeout); err != nil {
		port.Close()
		return fmt.Errorf("set read timeout on %s: %w", s.path, err)
	}

	s.port = port
	s.reader = bufio.NewReader(timeoutReader{port})
	s.partial = ""
	return nil
}

// Read returns the newest sample received. It waits for one parseable line,
// then consumes every complete line already buffered and keeps the last, so a
// device streaming faster than the caller polls does not build a backlog.
// Blank and comment lines are skipped; a run of malformed lines breaks the
// stream.
func (s *SerialSource) Read() (logic.Sample, error) {
	if s.port == nil {
		return logic.Sample{}, fmt.Errorf("serial %s: not open", s.path)
	}

	sample, err := s.next()
	if err != nil {
		return logic.Sample{}, err
	}
	for s.lineBuffered() {
		line, err := s.readLine()
		if err != nil {
			break
		}
		if skipLine(line) {
			continue
		}
		if newer, err := ParseLine(line); err == nil {
			sample = newer
		}
	}
	return sample, nil
}

// next blocks until a parseable line arrives.
func (s *SerialSource) next() (logic.Sample, error) {
	malformed := 0
	for {
		line, err := s.readLine()
		if err != nil {
			return logic.Sample{}, fmt.Errorf("serial %s: %w", s.path, err)
		}
		if skipLine(line) {
			continue
		}
		sample, err := ParseLine(line)
		if err == nil {
			return sample, nil
		}
		malformed++
		if malformed >= maxMalformed {
			return logic.Sample{}, fmt.Errorf("serial %s: %d consecutive bad lines: %w", s.path, malformed, err)
		}
	}
}

func (s *SerialSource) readLine() (string, error) {
	chunk, err := s.reader.ReadString('\n')
	s.partial += chunk
	if err != nil {
		return "", err
	}
	line := s.partial
	s.partial = ""
	return strings.TrimRight(line, "\r\n"), nil
}

// lineBuffered reports whether a complete line can be read without touching
// the port.
func (s *SerialSource) lineBuffered() bool {
	buffered, _ := s.reader.Peek(s.reader.Buffered())
	return bytes.IndexByte(buffered, '\n') >= 0
}

// Close releases the port.
func (s *SerialSource) Close() error {
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	s.reader = nil
	s.partial = ""
	if err != nil {
		return fmt.Errorf("close serial %s: %w", s.path, err)
	}
	return nil
}

// timeoutReader turns the (0, nil) a serial port returns on read timeout
// into ErrTimeout so the reader stops instead of spinning.
type timeoutReader struct {
	r io.Reader
}

func (t timeoutReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n == 0 && err == nil {
		return 0, ErrTimeout
	}
	return n, err
}
