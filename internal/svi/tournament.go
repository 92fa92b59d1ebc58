package svi

import (
	"context"
	"fmt"
	"math"

	"github.com/svidx/svi-fetch/pkg/log"
)

// tournamentDepth computes how many reduction layers findWinner needs
// to collapse n fragments down to a single global-maximum winner,
// mirroring gsvi's `ceil(log5(ceil(n/5))) + 1`.
func tournamentDepth(n int) int {
	if n <= 0 {
		return 0
	}
	groups := int(math.Ceil(float64(n) / float64(MaxComparisonSize)))
	if groups <= 1 {
		return 1
	}
	return int(math.Ceil(math.Log(float64(groups))/math.Log(float64(MaxComparisonSize)))) + 1
}

// partitionFragments splits fragments into groups of at most size,
// preserving order.
func partitionFragments(fragments []Fragment, size int) [][]Fragment {
	if size <= 0 {
		return nil
	}
	var groups [][]Fragment
	for i := 0; i < len(fragments); i += size {
		end := i + size
		if end > len(fragments) {
			end = len(fragments)
		}
		groups = append(groups, fragments[i:end])
	}
	return groups
}

// maxRequest probes one group of at most MaxComparisonSize fragments
// and returns the fragment whose series peaks at exactly 100 within
// that group - the group's locally normalized maximum.
func maxRequest(ctx context.Context, client *Client, category int, gran Granularity, group []Fragment) (Fragment, error) {
	series, err := client.Compare(ctx, ComparisonRequest{Fragments: group, Category: category, Gran: gran})
	if err != nil {
		return Fragment{}, err
	}
	for i, s := range series {
		if v, _, ok := s.Max(); ok && v == 100 {
			return group[i], nil
		}
	}
	return Fragment{}, algorithmErr("TOURNAMENT.maxRequest", fmt.Errorf("no fragment in group of %d peaked at 100", len(group)))
}

// findWinner runs the 5-ary global-maximum tournament over fragments,
// returning the single fragment whose window contains the globally
// largest observed value across the whole decomposition, along with
// the ordered reduction layers that produced it (layer 0 is fragments
// itself, the last layer is always length 1). The pacer is consulted
// between every probe request; it is not used anywhere else in the
// package.
func findWinner(ctx context.Context, client *Client, fragments []Fragment, category int, gran Granularity, pacer *Pacer) (Fragment, [][]Fragment, error) {
	if len(fragments) == 0 {
		return Fragment{}, nil, validationErr("TOURNAMENT.findWinner", "no fragments to run a tournament over")
	}
	layers := [][]Fragment{append([]Fragment{}, fragments...)}
	if len(fragments) == 1 {
		return fragments[0], layers, nil
	}

	depth := tournamentDepth(len(fragments))
	current := fragments
	log.Debugf("SVI/TOURNAMENT > reducing %d fragments over %d layers", len(fragments), depth)

	for layer := 0; layer < depth && len(current) > 1; layer++ {
		groups := partitionFragments(current, MaxComparisonSize)
		next := make([]Fragment, 0, len(groups))
		for _, group := range groups {
			winner, err := maxRequest(ctx, client, category, gran, group)
			if err != nil {
				return Fragment{}, nil, err
			}
			next = append(next, winner)
			if pacer != nil {
				pacer.Wait(ctx)
			}
		}
		current = next
		layers = append(layers, current)
	}

	if len(current) != 1 {
		return Fragment{}, nil, algorithmErr("TOURNAMENT.findWinner", fmt.Errorf("did not converge to a single winner: %d fragments remained after reducing from %d", len(current), len(fragments)))
	}
	return current[0], layers, nil
}

// fragmentAtMax returns the fragment paired (by index) with the series
// that holds the global maximum among seriesList, used to build the
// final single-fragment RequestStructure layer when no tournament ran
// (the |fragments| <= MaxComparisonSize shortcut path).
func fragmentAtMax(fragments []Fragment, seriesList []Series) (Fragment, bool) {
	best := -1
	var bestValue float64
	for i, s := range seriesList {
		if v, _, ok := s.Max(); ok && (best == -1 || v > bestValue) {
			best, bestValue = i, v
		}
	}
	if best == -1 {
		return Fragment{}, false
	}
	return fragments[best], true
}
