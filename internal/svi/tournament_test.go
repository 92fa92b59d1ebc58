package svi

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeFragments(n int) []Fragment {
	fragments := make([]Fragment, n)
	for i := range fragments {
		lower := date(2015, 1, 1).AddDate(0, 0, i)
		fragments[i] = Fragment{
			Query:  Query{Keyword: "kw", Geo: "US"},
			Window: Window{Lower: lower, Upper: lower.AddDate(0, 0, 30)},
		}
	}
	return fragments
}

func TestTournamentDepthMatchesFormula(t *testing.T) {
	assert.Equal(t, 1, tournamentDepth(1))
	assert.Equal(t, 1, tournamentDepth(5))
	assert.Equal(t, 2, tournamentDepth(6))
	assert.Equal(t, 2, tournamentDepth(25))
	assert.Equal(t, 3, tournamentDepth(26))
}

func TestPartitionFragmentsPreservesOrder(t *testing.T) {
	fragments := makeFragments(12)
	groups := partitionFragments(fragments, 5)
	require.Len(t, groups, 3)
	assert.Len(t, groups[0], 5)
	assert.Len(t, groups[1], 5)
	assert.Len(t, groups[2], 2)
	assert.Equal(t, fragments[0], groups[0][0])
	assert.Equal(t, fragments[11], groups[2][1])
}

func TestFindWinnerSingleFragmentShortcut(t *testing.T) {
	fragments := makeFragments(1)
	winner, layers, err := findWinner(context.Background(), nil, fragments, 0, Day, nil)
	require.NoError(t, err)
	assert.Equal(t, fragments[0], winner)
	require.Len(t, layers, 1)
	assert.Equal(t, fragments, layers[0])
}

func TestFindWinnerConvergesToFirstFragment(t *testing.T) {
	client := tournamentFixture(t)
	fragments := makeFragments(23)
	pacer := NewPacer(0)

	winner, layers, err := findWinner(context.Background(), client, fragments, 0, Day, pacer)
	require.NoError(t, err)
	assert.Equal(t, fragments[0], winner)
	require.NotEmpty(t, layers)
	assert.Equal(t, fragments, layers[0])
	final := layers[len(layers)-1]
	require.Len(t, final, 1)
	assert.Equal(t, fragments[0], final[0])
}

func TestPacerWaitRespectsContextCancellation(t *testing.T) {
	pacer := NewPacer(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		pacer.Wait(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return promptly after context cancellation")
	}
}
