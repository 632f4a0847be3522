package timestamp

import (
	"testing"
	"time"
)

var (
	testTime   = time.Date(2023, 1, 15, 12, 30, 45, 123000000, time.UTC)
	testTimeMs = int64(1673785845123)
)

func TestToUnixMs(t *testing.T) {
	tests := []struct {
		name     string
		input    time.Time
		expected int64
	}{
		{"normal time", testTime, testTimeMs},
		{"zero time", time.Time{}, 0},
		{"unix epoch", time.Unix(0, 0), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := ToUnixMs(tt.input); result != tt.expected {
				t.Errorf("ToUnixMs(%v) = %d, expected %d", tt.input, result, tt.expected)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	if Format(0) != "" {
		t.Error("Format(0) should be empty")
	}
	if got := Format(testTimeMs); got != "2023-01-15T12:30:45.123Z" {
		t.Errorf("Format(%d) = %q", testTimeMs, got)
	}
}
