package timewindow

import (
	"errors"
	"testing"
	"time"

	"github.com/de-tools/umami-digest/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute_ShanghaiCrossesUTCDateBoundary(t *testing.T) {
	w, err := Compute("Asia/Shanghai", "2025-03-10", time.Now())
	require.NoError(t, err)

	assert.Equal(t, "2025-03-10", w.Day)
	assert.Equal(t, "Asia/Shanghai", w.Timezone)
	// Local midnight at UTC+8 is 16:00 UTC of the previous day.
	assert.Equal(t, "2025-03-09T16:00:00.000Z", w.StartISO())
	assert.Equal(t, "2025-03-10T16:00:00.000Z", w.EndISO())
	assert.Equal(t, int64(1741536000000), w.StartMillis())
	assert.Equal(t, int64(1741622400000), w.EndMillis())
	assert.Equal(t, 24*time.Hour, w.LocalEnd.Sub(w.LocalStart))
	assert.NotEqual(t, w.StartUTC().Day(), w.EndUTC().Day())
}

func TestCompute_UTC(t *testing.T) {
	w, err := Compute("UTC", "2024-12-31", time.Now())
	require.NoError(t, err)

	assert.Equal(t, "2024-12-31T00:00:00.000Z", w.StartISO())
	assert.Equal(t, "2025-01-01T00:00:00.000Z", w.EndISO())
	assert.Equal(t, w.StartMillis()+24*60*60*1000, w.EndMillis())
}

func TestCompute_EmptyTimezoneIsUTC(t *testing.T) {
	w, err := Compute("", "2024-06-01", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "UTC", w.Timezone)
	assert.Equal(t, "2024-06-01T00:00:00.000Z", w.StartISO())
}

func TestCompute_DSTDayIsShort(t *testing.T) {
	// US spring-forward day has 23 wall-clock hours.
	w, err := Compute("America/New_York", "2024-03-10", time.Now())
	require.NoError(t, err)

	assert.Equal(t, 23*time.Hour, w.LocalEnd.Sub(w.LocalStart))
	assert.Equal(t, 0, w.LocalEnd.Hour())
	assert.Equal(t, 11, w.LocalEnd.Day())
	assert.Equal(t, "2024-03-10T05:00:00.000Z", w.StartISO())
	assert.Equal(t, "2024-03-11T04:00:00.000Z", w.EndISO())
}

func TestCompute_DefaultsToYesterdayInTimezone(t *testing.T) {
	// 2025-01-01 18:00 UTC is already 2025-01-02 02:00 in Shanghai.
	now := time.Date(2025, 1, 1, 18, 0, 0, 0, time.UTC)

	w, err := Compute("Asia/Shanghai", "", now)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01", w.Day)

	w, err = Compute("UTC", Yesterday, now)
	require.NoError(t, err)
	assert.Equal(t, "2024-12-31", w.Day)

	w, err = Compute("UTC", Today, now)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01", w.Day)
}

func TestCompute_MonthRollover(t *testing.T) {
	now := time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC)
	w, err := Compute("UTC", "", now)
	require.NoError(t, err)
	assert.Equal(t, "2025-02-28", w.Day)
	assert.Equal(t, "2025-03-01T00:00:00.000Z", w.EndISO())
}

func TestCompute_UnknownTimezone(t *testing.T) {
	_, err := Compute("Mars/Olympus_Mons", "2025-01-01", time.Now())

	var cfgErr *domain.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "timezone", cfgErr.Field)
}

func TestCompute_InvalidDate(t *testing.T) {
	_, err := Compute("UTC", "01/02/2025", time.Now())

	var cfgErr *domain.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "date", cfgErr.Field)
}
