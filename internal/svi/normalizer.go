package svi

import (
	"context"
	"sort"
)

// normalizationStride is the number of non-winner fragments bundled
// into each normalization-phase comparison request; the fifth slot in
// every MaxComparisonSize-sized request is reserved for the tournament
// winner, against which every other fragment gets rescaled.
const normalizationStride = MaxComparisonSize - 1

// buildFragments lays out every (query, window) pair query-major,
// window-minor: all of query[0]'s windows, then all of query[1]'s,
// and so on. stitch relies on that ordering to re-group a flat
// []Series back into one Series per query.
func buildFragments(queries []Query, windows []Window) []Fragment {
	fragments := make([]Fragment, 0, len(queries)*len(windows))
	for _, q := range queries {
		for _, w := range windows {
			fragments = append(fragments, Fragment{Query: q, Window: w})
		}
	}
	return fragments
}

// queryKey is the Table key identifying one Query; geo is included so
// the same keyword in two regions doesn't collide.
func queryKey(q Query) string {
	if q.Geo == "" {
		return q.Keyword
	}
	return q.Keyword + "/" + q.Geo
}

// normalize rescales every fragment's series against the tournament
// winner: each group of normalizationStride fragments is compared
// alongside the winner in one request, and the winner's own series
// (always the last in the response) is dropped before returning.
func normalize(ctx context.Context, client *Client, category int, gran Granularity, fragments []Fragment, winner Fragment) ([]Series, error) {
	out := make([]Series, 0, len(fragments))
	for i := 0; i < len(fragments); i += normalizationStride {
		end := i + normalizationStride
		if end > len(fragments) {
			end = len(fragments)
		}
		group := append(append([]Fragment{}, fragments[i:end]...), winner)

		series, err := client.Compare(ctx, ComparisonRequest{Fragments: group, Category: category, Gran: gran})
		if err != nil {
			return nil, err
		}
		out = append(out, series[:len(series)-1]...)
	}
	return out, nil
}

// stitch re-groups the flat, window-minor []Series produced by
// normalize back into one chronologically sorted Series per query.
func stitch(queries []Query, windows []Window, fragmentSeries []Series) Table {
	table := make(Table, len(queries))
	perQuery := len(windows)
	for qi, q := range queries {
		var points []Point
		for wi := 0; wi < perQuery; wi++ {
			idx := qi*perQuery + wi
			if idx >= len(fragmentSeries) {
				continue
			}
			points = append(points, fragmentSeries[idx].Points...)
		}
		sort.Slice(points, func(i, j int) bool { return points[i].At.Before(points[j].At) })
		table[queryKey(q)] = Series{Name: queryKey(q), Points: points}
	}
	return table
}

// finalize applies the truncation policy from spec.md: if the global
// maximum falls inside the extension region below bounds.Lower and
// forceTruncation was not requested, the caller is warned but the
// series is left untruncated; otherwise every point before
// bounds.Lower is dropped.
func finalize(table Table, bounds Bounds, forceTruncation bool) (Table, *TruncationWarning) {
	_, maxAt, ok := table.Max()
	if !ok {
		return table, nil
	}
	if !forceTruncation && maxAt.Before(bounds.Lower) {
		return table, &TruncationWarning{MaxAt: maxAt}
	}

	truncated := make(Table, len(table))
	for key, s := range table {
		var points []Point
		for _, p := range s.Points {
			if !p.At.Before(bounds.Lower) {
				points = append(points, p)
			}
		}
		truncated[key] = Series{Name: s.Name, Points: points}
	}
	return truncated, nil
}
