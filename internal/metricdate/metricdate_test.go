package metricdate

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-sql/civil"
	"github.com/smallbiznis/pulse/internal/errkind"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYesterdayRespectsLocation(t *testing.T) {
	now := time.Date(2024, 1, 16, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-01-15", Yesterday(now, nil).String())

	jakarta := time.FixedZone("WIB", 7*3600)
	// 03:00 on the 17th in UTC+7
	assert.Equal(t, "2024-01-16", Yesterday(now, jakarta).String())
}

func TestBounds(t *testing.T) {
	d := civil.Date{Year: 2024, Month: time.January, Day: 15}
	start, end := Bounds(d, nil)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC), end)

	start, _ = Bounds(d, time.FixedZone("WIB", 7*3600))
	assert.Equal(t, time.Date(2024, 1, 14, 17, 0, 0, 0, time.UTC), start)
}

func TestRequireCompleted(t *testing.T) {
	now := time.Date(2024, 1, 16, 0, 0, 1, 0, time.UTC)
	require.NoError(t, RequireCompleted(civil.Date{Year: 2024, Month: 1, Day: 15}, now, nil))

	err := RequireCompleted(civil.Date{Year: 2024, Month: 1, Day: 16}, now, nil)
	require.True(t, errors.Is(err, errkind.ErrInvalidInput))
	err = RequireCompleted(civil.Date{Year: 2025, Month: 1, Day: 1}, now, nil)
	require.True(t, errors.Is(err, errkind.ErrInvalidInput))
}

func TestParseAndRange(t *testing.T) {
	d, err := Parse(" 2024-02-29 ")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", d.String())

	_, err = Parse("2024-13-01")
	require.True(t, errors.Is(err, errkind.ErrInvalidInput))

	from := civil.Date{Year: 2024, Month: 1, Day: 1}
	require.NoError(t, RequireRange(from, from.AddDays(365)))
	require.Error(t, RequireRange(from, from.AddDays(366)))
	require.Error(t, RequireRange(from.AddDays(1), from))
}
