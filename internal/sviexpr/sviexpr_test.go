package sviexpr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svidx/svi-fetch/internal/svi"
)

func sampleTable() svi.Table {
	return svi.Table{
		"apple": svi.Series{Name: "apple", Points: []svi.Point{
			{At: time.Unix(1, 0), Value: 10},
			{At: time.Unix(2, 0), Value: 90},
			{At: time.Unix(3, 0), Value: 40},
		}},
	}
}

func TestCompileRejectsNonBooleanExpression(t *testing.T) {
	_, err := Compile(`Max("apple")`)
	require.Error(t, err)
}

func TestEvalMaxThreshold(t *testing.T) {
	rule, err := Compile(`Max("apple") > 80`)
	require.NoError(t, err)

	matched, err := rule.Eval(sampleTable())
	require.NoError(t, err)
	assert.True(t, matched)
}

func TestEvalFalseWhenBelowThreshold(t *testing.T) {
	rule, err := Compile(`Max("apple") > 95`)
	require.NoError(t, err)

	matched, err := rule.Eval(sampleTable())
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestEvalMissingSeriesDefaultsToZero(t *testing.T) {
	rule, err := Compile(`Has("pear") == false && Max("pear") == 0`)
	require.NoError(t, err)

	matched, err := rule.Eval(sampleTable())
	require.NoError(t, err)
	assert.True(t, matched)
}

func TestEvalAvgAndLast(t *testing.T) {
	rule, err := Compile(`Avg("apple") > 30 && Last("apple") == 40`)
	require.NoError(t, err)

	matched, err := rule.Eval(sampleTable())
	require.NoError(t, err)
	assert.True(t, matched)
}
