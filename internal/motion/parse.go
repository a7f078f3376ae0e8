package motion

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/sweeney/skiptrack/internal/logic"
)

// sampleJSON is the object form some IMU firmwares emit.
type sampleJSON struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z"`
}

// skipLine reports whether a line carries no sample (blank or # comment).
func skipLine(line string) bool {
	line = strings.TrimSpace(line)
	return line == "" || strings.HasPrefix(line, "#")
}

// ParseLine parses one sample from either "x,y,z" or {"x":..,"y":..,"z":..}.
func ParseLine(line string) (logic.Sample, error) {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "{") {
		return parseJSON(line)
	}
	return parseCSV(line)
}

func parseJSON(line string) (logic.Sample, error) {
	var sj sampleJSON
	if err := json.Unmarshal([]byte(line), &sj); err != nil {
		return logic.Sample{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if sj.X == nil || sj.Y == nil || sj.Z == nil {
		return logic.Sample{}, fmt.Errorf("%w: missing axis in %q", ErrMalformed, line)
	}
	return logic.Sample{X: *sj.X, Y: *sj.Y, Z: *sj.Z}, nil
}

func parseCSV(line string) (logic.Sample, error) {
	fields := strings.Split(line, ",")
	if len(fields) != 3 {
		return logic.Sample{}, fmt.Errorf("%w: want 3 fields, got %d in %q", ErrMalformed, len(fields), line)
	}

	var v [3]float64
	for i, f := range fields {
		x, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return logic.Sample{}, fmt.Errorf("%w: field %d: %v", ErrMalformed, i+1, err)
		}
		v[i] = x
	}
	return logic.Sample{X: v[0], Y: v[1], Z: v[2]}, nil
}
