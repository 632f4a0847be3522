package timestamp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func offsetOf(t *testing.T, loc *time.Location) int {
	t.Helper()
	_, secs := time.Date(2023, 11, 1, 0, 0, 0, 0, loc).Zone()
	return secs
}

func TestParseOffsetID(t *testing.T) {
	tests := []struct {
		id     string
		offset int
	}{
		{"Z", 0},
		{"UTC", 0},
		{"GMT", 0},
		{"+08:00", 8 * 3600},
		{"+8", 8 * 3600},
		{"+08", 8 * 3600},
		{"+0800", 8 * 3600},
		{"-05:30", -(5*3600 + 30*60)},
		{"+08:00:30", 8*3600 + 30},
		{"+083015", 8*3600 + 30*60 + 15},
		{"UTC+8", 8 * 3600},
		{"GMT-03:00", -3 * 3600},
		{"UT+01", 3600},
		{" +08:00 ", 8 * 3600},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			loc, err := ParseOffsetID(tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.offset, offsetOf(t, loc))
		})
	}
}

func TestParseOffsetID_Region(t *testing.T) {
	loc, err := ParseOffsetID("UTC")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	if _, err := time.LoadLocation("Asia/Shanghai"); err != nil {
		t.Skip("tzdata not available")
	}
	loc, err = ParseOffsetID("Asia/Shanghai")
	require.NoError(t, err)
	assert.Equal(t, 8*3600, offsetOf(t, loc))
}

func TestParseOffsetID_Invalid(t *testing.T) {
	ids := []string{"", "+", "+19", "+08:60", "+08:0", "+123", "UTC+", "Not/AZone", "+08:00:00:00"}

	for _, id := range ids {
		t.Run(id, func(t *testing.T) {
			_, err := ParseOffsetID(id)
			assert.Error(t, err)
		})
	}
}
