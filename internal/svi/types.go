// Package svi implements the hierarchical re-normalization algorithm
// that stitches a long, multi-keyword, globally normalized search-volume
// series out of a series of bounded, rate-limited upstream requests.
package svi

import (
	"fmt"
	"time"
)

// Granularity is the temporal resolution a Series is requested at.
type Granularity string

const (
	Day   Granularity = "DAY"
	Hour  Granularity = "HOUR"
	Month Granularity = "MONTH"
)

func (g Granularity) valid() bool {
	switch g {
	case Day, Hour, Month:
		return true
	default:
		return false
	}
}

// Query identifies one keyword/region/category combination the caller
// wants a normalized series for. Immutable once constructed.
type Query struct {
	Keyword  string
	Geo      string // 2-letter region code, or "" for worldwide
	Category int
}

// Window is a closed wall-clock interval [Lower, Upper].
type Window struct {
	Lower time.Time
	Upper time.Time
}

func (w Window) valid() bool {
	return !w.Lower.After(w.Upper)
}

// Fragment is the smallest unit the upstream can score: one Query over
// one Window.
type Fragment struct {
	Query  Query
	Window Window
}

func (f Fragment) String() string {
	return fmt.Sprintf("%s[%s](%s..%s)", f.Query.Keyword, f.Query.Geo,
		f.Window.Lower.Format("2006-01-02"), f.Window.Upper.Format("2006-01-02"))
}

// MaxComparisonSize is the hard upstream limit on fragments per request.
const MaxComparisonSize = 5

// ComparisonRequest is 1..MaxComparisonSize Fragments that travel
// together in one explore+timeseries round trip.
type ComparisonRequest struct {
	Fragments []Fragment
	Category  int
	Gran      Granularity
}

// Point is one (instant, value) observation of a Series.
type Point struct {
	At    time.Time
	Value float64
	// Missing marks a point the upstream returned no value for, as
	// distinct from a legitimate zero.
	Missing bool
}

// Series is a chronologically ordered, instant-unique mapping of time
// to normalized value. Values lie in [0, 100] unless Missing is set.
type Series struct {
	Name   string
	Points []Point
}

// Max returns the largest non-missing value in the series and the
// instant it occurs at. ok is false for an empty or all-missing series.
func (s Series) Max() (value float64, at time.Time, ok bool) {
	for _, p := range s.Points {
		if p.Missing {
			continue
		}
		if !ok || p.Value > value {
			value, at, ok = p.Value, p.At, true
		}
	}
	return
}

// Table is the multi-keyword result of GetData: one Series per Query,
// all sharing an identical, strictly increasing instant index.
type Table map[string]Series

// Max returns the largest value across every series in the table.
func (t Table) Max() (value float64, at time.Time, ok bool) {
	for _, s := range t {
		v, a, sOk := s.Max()
		if sOk && (!ok || v > value) {
			value, at, ok = v, a, true
		}
	}
	return
}
