// Package timestamp provides epoch-millisecond helpers and the translation of
// java.time style date patterns and zone offset ids into Go layouts and locations.
//
// int64 milliseconds since the Unix epoch is the canonical timestamp format
// for records flowing through kska. A value of 0 means "not set".
//
// Usage:
//
//	layout, err := timestamp.Layout("yyyy-MM-dd'T'HH:mm:ss")
//	loc, err := timestamp.ParseOffsetID("+08:00")
//	t, err := time.ParseInLocation(layout, "2023-11-01T00:00:00", loc)
//	ms := timestamp.ToUnixMs(t)
package timestamp

import "time"

// ToUnixMs converts a time.Time to Unix milliseconds.
// Returns 0 for the zero time.
func ToUnixMs(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// Format converts Unix milliseconds to an RFC3339 string for display.
// Returns empty string if timestamp is 0.
func Format(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339Nano)
}
