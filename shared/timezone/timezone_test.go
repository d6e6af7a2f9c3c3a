package timezone_test

import (
	"stayhub/shared/timezone"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNowAndLocation(t *testing.T) {
	assert.False(t, timezone.Now().IsZero())
	assert.NotNil(t, timezone.Location())
}

func TestFormat(t *testing.T) {
	testTime := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

	assert.NotEmpty(t, timezone.Format(testTime, time.RFC3339))
}

func TestParseDay(t *testing.T) {
	day, err := timezone.ParseDay("2024-06-10")
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), day)

	_, err = timezone.ParseDay("10/06/2024")
	assert.Error(t, err)
}

func TestToday(t *testing.T) {
	today := timezone.Today()

	assert.Equal(t, time.UTC, today.Location())
	assert.Zero(t, today.Hour())
	assert.Zero(t, today.Minute())
}
