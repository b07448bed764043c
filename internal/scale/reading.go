package scale

import (
	"fmt"
	"strconv"
	"strings"
)

// Reading is a single bench-scale weight sample suitable for JSON and MQTT.
type Reading struct {
	Grams       float64 `json:"grams"`
	Stable      bool    `json:"stable"` // scale's own stability flag, when reported
	TimestampMS int64   `json:"ts_ms"`
}

// ParseLine parses one line of bench-scale serial output. The scale emits
// comma-separated frames in the common A&D format, e.g.
//
//	ST,+00123.45  g
//	US,+00098.20  g
//
// where ST marks a stable reading and US an unstable one. A bare numeric
// line is accepted too and treated as stable.
func ParseLine(line string) (Reading, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Reading{}, fmt.Errorf("empty scale line")
	}

	stable := true
	payload := line
	if i := strings.Index(line, ","); i >= 0 {
		header := line[:i]
		payload = line[i+1:]
		switch header {
		case "ST":
			stable = true
		case "US":
			stable = false
		default:
			return Reading{}, fmt.Errorf("unknown scale frame header %q", header)
		}
	}

	payload = strings.TrimSuffix(strings.TrimSpace(payload), "g")
	payload = strings.TrimSpace(payload)

	grams, err := strconv.ParseFloat(payload, 64)
	if err != nil {
		return Reading{}, fmt.Errorf("bad scale value %q: %w", payload, err)
	}

	return Reading{Grams: grams, Stable: stable}, nil
}
