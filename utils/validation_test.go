package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePhone(t *testing.T) {
	tests := []struct {
		phone string
		valid bool
	}{
		{"+15550100", true},
		{"+1 (555) 010-0000", true},
		{"919876543210", true},
		{"+0123456", false},
		{"+1", false},
		{"+1234567890123456", false},
		{"call me", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidatePhone(tt.phone))
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "+15550100000", NormalizePhone(" +1 (555) 010-0000 "))
}

func TestParseShiftStart(t *testing.T) {
	got, err := ParseShiftStart("2026-10-18T19:30:00+05:30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 18, 14, 0, 0, 0, time.UTC), got)
	assert.Equal(t, time.UTC, got.Location())

	for _, bad := range []string{"", "2026-10-18 14:00", "2026-10-18T14:00:00", "tomorrow"} {
		_, err := ParseShiftStart(bad)
		assert.Error(t, err, bad)
	}
}

func TestDayRange(t *testing.T) {
	start, end, err := DayRange("2026-10-18")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), end)

	_, _, err = DayRange("18/10/2026")
	assert.Error(t, err)
}
