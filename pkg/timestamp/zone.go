package timestamp

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const maxOffsetSeconds = 18 * 3600

// ParseOffsetID resolves a java.time ZoneId string into a location. Accepted forms:
// "Z", "UTC", "GMT", "UT", "+8", "+08", "+0800", "+08:00", "+08:00:00",
// prefixed offsets such as "UTC+8" or "GMT+08:00", and IANA region ids.
func ParseOffsetID(id string) (*time.Location, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("empty offset id")
	}

	switch id {
	case "Z", "UTC", "GMT", "UT":
		return time.UTC, nil
	}

	for _, prefix := range []string{"UTC", "GMT", "UT"} {
		rest, ok := strings.CutPrefix(id, prefix)
		if ok && (strings.HasPrefix(rest, "+") || strings.HasPrefix(rest, "-")) {
			secs, err := parseOffset(rest)
			if err != nil {
				return nil, fmt.Errorf("offset id %q: %w", id, err)
			}
			return time.FixedZone(id, secs), nil
		}
	}

	if strings.HasPrefix(id, "+") || strings.HasPrefix(id, "-") {
		secs, err := parseOffset(id)
		if err != nil {
			return nil, fmt.Errorf("offset id %q: %w", id, err)
		}
		return time.FixedZone(id, secs), nil
	}

	loc, err := time.LoadLocation(id)
	if err != nil {
		return nil, fmt.Errorf("offset id %q: %w", id, err)
	}
	return loc, nil
}

// parseOffset parses "+h", "+hh", "+hhmm", "+hh:mm", "+hhmmss" and "+hh:mm:ss".
func parseOffset(s string) (int, error) {
	sign := 1
	if s[0] == '-' {
		sign = -1
	}
	body := s[1:]

	var parts []string
	switch {
	case strings.Contains(body, ":"):
		parts = strings.Split(body, ":")
		if len(parts) > 3 {
			return 0, fmt.Errorf("malformed offset")
		}
		for _, p := range parts[1:] {
			if len(p) != 2 {
				return 0, fmt.Errorf("malformed offset")
			}
		}
	case len(body) == 1 || len(body) == 2:
		parts = []string{body}
	case len(body) == 4:
		parts = []string{body[:2], body[2:]}
	case len(body) == 6:
		parts = []string{body[:2], body[2:4], body[4:]}
	default:
		return 0, fmt.Errorf("malformed offset")
	}

	limits := []int{18, 59, 59}
	units := []int{3600, 60, 1}
	total := 0
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || v > limits[i] {
			return 0, fmt.Errorf("malformed offset")
		}
		total += v * units[i]
	}
	if total > maxOffsetSeconds {
		return 0, fmt.Errorf("offset out of range")
	}
	return sign * total, nil
}
