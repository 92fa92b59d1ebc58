package svi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildFragmentsIsQueryMajorWindowMinor(t *testing.T) {
	queries := []Query{{Keyword: "apple"}, {Keyword: "pear"}}
	windows := []Window{
		{Lower: date(2020, 1, 1), Upper: date(2020, 2, 1)},
		{Lower: date(2020, 2, 1), Upper: date(2020, 3, 1)},
	}

	fragments := buildFragments(queries, windows)
	assert.Len(t, fragments, 4)
	assert.Equal(t, "apple", fragments[0].Query.Keyword)
	assert.Equal(t, "apple", fragments[1].Query.Keyword)
	assert.Equal(t, "pear", fragments[2].Query.Keyword)
	assert.Equal(t, "pear", fragments[3].Query.Keyword)
	assert.Equal(t, windows[0], fragments[0].Window)
	assert.Equal(t, windows[1], fragments[1].Window)
}

func TestQueryKeyIncludesGeoWhenPresent(t *testing.T) {
	assert.Equal(t, "apple", queryKey(Query{Keyword: "apple"}))
	assert.Equal(t, "apple/US", queryKey(Query{Keyword: "apple", Geo: "US"}))
}

func TestStitchConcatenatesAndSortsPerQuery(t *testing.T) {
	queries := []Query{{Keyword: "apple"}}
	windows := []Window{
		{Lower: date(2020, 1, 1), Upper: date(2020, 2, 1)},
		{Lower: date(2020, 2, 1), Upper: date(2020, 3, 1)},
	}
	fragmentSeries := []Series{
		{Points: []Point{{At: date(2020, 1, 15), Value: 10}}},
		{Points: []Point{{At: date(2020, 2, 15), Value: 20}}},
	}

	table := stitch(queries, windows, fragmentSeries)
	series, ok := table["apple"]
	assert.True(t, ok)
	assert.Len(t, series.Points, 2)
	assert.True(t, series.Points[0].At.Before(series.Points[1].At))
}

func TestFinalizeWarnsWithoutTruncatingWhenMaxIsBelowLower(t *testing.T) {
	bounds := Bounds{Lower: date(2020, 6, 1), Upper: date(2020, 12, 1)}
	table := Table{"apple": Series{Points: []Point{
		{At: date(2020, 1, 1), Value: 100},
		{At: date(2020, 7, 1), Value: 10},
	}}}

	result, warning := finalize(table, bounds, false)
	assert.NotNil(t, warning)
	assert.Equal(t, date(2020, 1, 1), warning.MaxAt)
	assert.Len(t, result["apple"].Points, 2)
}

func TestFinalizeTruncatesWhenForced(t *testing.T) {
	bounds := Bounds{Lower: date(2020, 6, 1), Upper: date(2020, 12, 1)}
	table := Table{"apple": Series{Points: []Point{
		{At: date(2020, 1, 1), Value: 100},
		{At: date(2020, 7, 1), Value: 10},
	}}}

	result, warning := finalize(table, bounds, true)
	assert.Nil(t, warning)
	assert.Len(t, result["apple"].Points, 1)
	assert.Equal(t, date(2020, 7, 1), result["apple"].Points[0].At)
}

func TestFinalizeTruncatesWhenMaxIsWithinBounds(t *testing.T) {
	bounds := Bounds{Lower: date(2020, 6, 1), Upper: date(2020, 12, 1)}
	table := Table{"apple": Series{Points: []Point{
		{At: date(2020, 5, 1), Value: 5},
		{At: date(2020, 7, 1), Value: 100},
	}}}

	result, warning := finalize(table, bounds, false)
	assert.Nil(t, warning)
	assert.Len(t, result["apple"].Points, 1)
}
