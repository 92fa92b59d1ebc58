package svi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPlanWindowsDayClampsToMax(t *testing.T) {
	bounds := Bounds{Lower: date(2015, 1, 1), Upper: date(2024, 1, 1)}
	windows, err := planWindows(bounds, Day)
	require.NoError(t, err)
	require.NotEmpty(t, windows)

	for _, w := range windows {
		days := w.Upper.Sub(w.Lower).Hours() / 24
		assert.LessOrEqual(t, days, float64(granularitySpans[Day].maxDays)+1)
	}
	// chronological order
	for i := 1; i < len(windows); i++ {
		assert.True(t, windows[i].Lower.After(windows[i-1].Lower))
	}
	assert.True(t, windows[0].Lower.Before(bounds.Upper))
	assert.True(t, !windows[len(windows)-1].Upper.Before(bounds.Upper.Add(-24*time.Hour)))
}

func TestPlanWindowsMonthAlwaysSingleWindow(t *testing.T) {
	bounds := Bounds{Lower: date(2010, 1, 1), Upper: date(2024, 1, 1)}
	windows, err := planWindows(bounds, Month)
	require.NoError(t, err)
	assert.Len(t, windows, 1)
	assert.Equal(t, bounds.Upper, windows[0].Upper)
}

func TestPlanWindowsMonthClampsShortRangeUpToMinimum(t *testing.T) {
	bounds := Bounds{Lower: date(2023, 1, 1), Upper: date(2024, 1, 1)}
	windows, err := planWindows(bounds, Month)
	require.NoError(t, err)
	require.Len(t, windows, 1)
	days := windows[0].Upper.Sub(windows[0].Lower).Hours() / 24
	assert.GreaterOrEqual(t, days, float64(granularitySpans[Month].minDays))
}

func TestPlanWindowsRejectsInvertedBounds(t *testing.T) {
	bounds := Bounds{Lower: date(2024, 1, 1), Upper: date(2020, 1, 1)}
	_, err := planWindows(bounds, Day)
	require.Error(t, err)
	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, ValidationError, svcErr.Kind)
}

func TestPlanWindowsRejectsUnknownGranularity(t *testing.T) {
	bounds := Bounds{Lower: date(2020, 1, 1), Upper: date(2021, 1, 1)}
	_, err := planWindows(bounds, Granularity("WEEK"))
	require.Error(t, err)
}
