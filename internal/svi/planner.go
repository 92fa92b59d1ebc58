package svi

import "time"

// boundsFloor is the earliest calendar date the upstream has any data
// for; gsvi's bounds setter rejects anything earlier.
var boundsFloor = time.Date(2004, 1, 1, 0, 0, 0, 0, time.UTC)

// granularitySpan is the [min, max] window length, in days, that
// upstream accepts comfortably at a given Granularity, plus the
// stride used to slide the window back through Bounds. MONTH has no
// upper clamp: a single window always spans the whole requested range.
type granularitySpan struct {
	minDays int
	maxDays int // 0 means "unbounded, always exactly one window"
	offset  time.Duration
}

var granularitySpans = map[Granularity]granularitySpan{
	Day:   {minDays: 1, maxDays: 269, offset: 24 * time.Hour},
	Hour:  {minDays: 3, maxDays: 7, offset: time.Hour},
	Month: {minDays: 1890, maxDays: 0, offset: 24 * time.Hour},
}

// Bounds is the overall [Lower, Upper] range the caller wants data
// for; Windows tiles it back-to-front in granularity-sized chunks.
// Unlike Fragment.Window (an internal sub-window with no calendar
// floor of its own), Bounds carries the calendar/recency preconditions
// spec.md §3 places on a Container's requested range, so it is its
// own type rather than an alias of Window.
type Bounds struct {
	Lower time.Time
	Upper time.Time
}

// valid enforces gsvi's bounds setter: the lower edge may not precede
// the upstream's earliest indexed date, both edges must be strictly
// in the past, and the range may not be empty or inverted.
func (b Bounds) valid() bool {
	now := time.Now()
	return !b.Lower.Before(boundsFloor) && b.Lower.Before(now) && b.Upper.Before(now) && b.Lower.Before(b.Upper)
}

// planWindows decomposes bounds into the ordered (oldest-first, after
// a final reverse) sequence of sub-windows a Granularity can request
// in one shot, following gsvi's _build_intervals pointer arithmetic:
// walk backward from bounds.Upper in fixed-length strides separated by
// a one-unit offset, until the pointer reaches bounds.Lower.
func planWindows(bounds Bounds, gran Granularity) ([]Window, error) {
	if !bounds.valid() {
		return nil, validationErr("PLANNER.planWindows", "bounds %s..%s violate the [2004-01-01, now) range or are not strictly ordered", bounds.Lower, bounds.Upper)
	}
	span, ok := granularitySpans[gran]
	if !ok {
		return nil, validationErr("PLANNER.planWindows", "unknown granularity %q", gran)
	}

	if span.maxDays == 0 {
		// MONTH: a single window, clamped up to the minimum span but
		// never cut down - the whole requested range is one request.
		lower := bounds.Lower
		if days := int(bounds.Upper.Sub(bounds.Lower).Hours() / 24); days < span.minDays {
			lower = bounds.Upper.AddDate(0, 0, -span.minDays)
		}
		return []Window{{Lower: lower, Upper: bounds.Upper}}, nil
	}

	days := int(bounds.Upper.Sub(bounds.Lower).Hours() / 24)
	days = clamp(days, span.minDays, span.maxDays)
	length := time.Duration(days) * 24 * time.Hour

	var windows []Window
	pointer := bounds.Upper
	for pointer.After(bounds.Lower) {
		upper := pointer
		pointer = pointer.Add(-length)
		windows = append(windows, Window{Lower: pointer, Upper: upper})
		pointer = pointer.Add(-span.offset)
	}

	// Reverse into chronological order; gsvi builds newest-first then
	// never reorders, but the tournament and normalizer in this
	// package are simplest to reason about over an oldest-first slice.
	for i, j := 0, len(windows)-1; i < j; i, j = i+1, j-1 {
		windows[i], windows[j] = windows[j], windows[i]
	}
	return windows, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
