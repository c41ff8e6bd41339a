package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeRoundTripKeepsSubSecondPrecision(t *testing.T) {
	stamped := time.Date(2026, 3, 2, 9, 0, 0, 123456789, time.UTC)

	raw := formatTime(stamped)
	assert.True(t, parseTime(raw).Equal(stamped))
}

func TestTimeCodecNullAndLegacyValues(t *testing.T) {
	assert.Equal(t, "", formatTime(time.Time{}))
	assert.True(t, parseTime("").IsZero())
	assert.Nil(t, parseTimePtr(""))

	// Rows written before fractional seconds were kept parse unchanged.
	legacy := parseTime("2026-03-02T09:00:00Z")
	assert.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), legacy.UTC())

	stamped := time.Date(2026, 3, 2, 9, 0, 0, 5000, time.UTC)
	ptr := parseTimePtr(formatTimePtr(&stamped))
	if assert.NotNil(t, ptr) {
		assert.True(t, ptr.Equal(stamped))
	}
}
