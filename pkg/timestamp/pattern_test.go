package timestamp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayout(t *testing.T) {
	tests := []struct {
		pattern string
		layout  string
	}{
		{"yyyy-MM-dd'T'HH:mm:ss", "2006-01-02T15:04:05"},
		{"yyyy-MM-dd HH:mm:ss.SSS", "2006-01-02 15:04:05.000"},
		{"yyyy-MM-dd'T'HH:mm:ss.SSSXXX", "2006-01-02T15:04:05.000Z07:00"},
		{"uuuu/M/d H:m:s", "2006/1/2 15:4:5"},
		{"dd/MMM/yyyy:HH:mm:ss Z", "02/Jan/2006:15:04:05 -0700"},
		{"EEE, dd MMM yyyy HH:mm:ss z", "Mon, 02 Jan 2006 15:04:05 MST"},
		{"hh:mm a", "03:04 PM"},
		{"yyyyMMddHHmmss", "20060102150405"},
		{"yy.MM.dd", "06.01.02"},
		{"yyyy-DDD", "2006-002"},
		{"HH 'o''clock'", "15 o'clock"},
		{"yyyy-MM-dd''HH", "2006-01-02'15"},
		{"yyyy-MM-dd'T'HH:mm:ssxx", "2006-01-02T15:04:05-0700"},
		{"yyyy_MM_dd", "2006_01_02"},
		{"dd_MM_yyyy", "02_01_2006"},
		{"d_M_yyyy", "2_1_2006"},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			layout, err := Layout(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.layout, layout)
		})
	}
}

func TestLayout_Unsupported(t *testing.T) {
	patterns := []string{
		"",
		"   ",
		"yyyy-MM-dd GGGG",
		"yyyy-MM-dd'T",
		"HH:mm:ss SSS",
		"yyyy'2'MM",
		"yyyy'Mon'",
		"kk:mm",
		"ZZZZ",
		"yyyy_M_d",
		"yyyy'_'d",
		"MM__d",
		"MM__yyyy",
		"MMM'uary' yyyy",
		"EEE'day'",
	}

	for _, p := range patterns {
		t.Run(p, func(t *testing.T) {
			_, err := Layout(p)
			assert.Error(t, err)
		})
	}
}

func TestTranslate_Textual(t *testing.T) {
	p, err := Translate("dd MMM yyyy")
	require.NoError(t, err)
	assert.True(t, p.Textual)

	p, err = Translate("yyyy-MM-dd")
	require.NoError(t, err)
	assert.False(t, p.Textual)

	p, err = Translate("hh:mm a")
	require.NoError(t, err)
	assert.True(t, p.Textual)
}

func TestLayout_ParsesValues(t *testing.T) {
	tests := []struct {
		pattern string
		value   string
		want    time.Time
	}{
		{
			"yyyy-MM-dd'T'HH:mm:ss",
			"2023-11-01T00:00:00",
			time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			"yyyy-MM-dd HH:mm:ss.SSS",
			"2023-11-01 08:15:30.250",
			time.Date(2023, 11, 1, 8, 15, 30, 250000000, time.UTC),
		},
		{
			"dd/MMM/yyyy:HH:mm:ss",
			"05/Mar/2024:10:00:00",
			time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC),
		},
		{
			"yyyy_MM_dd",
			"2023_11_05",
			time.Date(2023, 11, 5, 0, 0, 0, 0, time.UTC),
		},
		{
			"d_M_yyyy",
			"5_11_2023",
			time.Date(2023, 11, 5, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			layout, err := Layout(tt.pattern)
			require.NoError(t, err)
			got, err := time.ParseInLocation(layout, tt.value, time.UTC)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v want %v", got, tt.want)
		})
	}
}
