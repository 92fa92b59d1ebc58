// Package sviexpr evaluates user-supplied boolean expressions against
// a fetched svi.Table, the way cc-backend's internal/tagger compiles
// and runs expr-lang rules against a job's metrics.
package sviexpr

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/svidx/svi-fetch/internal/svi"
)

// Rule is a compiled boolean expression that can be evaluated
// repeatedly against different Tables without recompiling.
type Rule struct {
	source  string
	program *vm.Program
}

// Compile parses and type-checks source as a boolean expression. The
// environment exposes five functions taking a series key: Max(key),
// Min(key), Avg(key), Last(key) and Has(key). Series names are not
// bound as variables.
func Compile(source string) (*Rule, error) {
	program, err := expr.Compile(source, expr.AsBool(), expr.Env(env{}))
	if err != nil {
		return nil, fmt.Errorf("SVIEXPR/Compile > %w", err)
	}
	return &Rule{source: source, program: program}, nil
}

func (r *Rule) String() string { return r.source }

// env is the expression environment: one callable per aggregate, plus
// Has for checking whether a series key is present.
type env struct {
	Max  func(key string) float64
	Min  func(key string) float64
	Avg  func(key string) float64
	Last func(key string) float64
	Has  func(key string) bool
}

// Eval runs the compiled rule against table and returns whether it
// matched. A reference to a series key the table doesn't have
// evaluates its aggregate functions to 0, so rules should guard with
// Has(key) when a series may legitimately be absent.
func (r *Rule) Eval(table svi.Table) (bool, error) {
	e := env{
		Max: func(key string) float64 {
			v, _, _ := table[key].Max()
			return v
		},
		Min: func(key string) float64 {
			series, ok := table[key]
			if !ok {
				return 0
			}
			min, found := 0.0, false
			for _, p := range series.Points {
				if p.Missing {
					continue
				}
				if !found || p.Value < min {
					min, found = p.Value, true
				}
			}
			return min
		},
		Avg: func(key string) float64 {
			series, ok := table[key]
			if !ok {
				return 0
			}
			var sum float64
			var n int
			for _, p := range series.Points {
				if p.Missing {
					continue
				}
				sum += p.Value
				n++
			}
			if n == 0 {
				return 0
			}
			return sum / float64(n)
		},
		Last: func(key string) float64 {
			series, ok := table[key]
			if !ok || len(series.Points) == 0 {
				return 0
			}
			for i := len(series.Points) - 1; i >= 0; i-- {
				if !series.Points[i].Missing {
					return series.Points[i].Value
				}
			}
			return 0
		},
		Has: func(key string) bool {
			_, ok := table[key]
			return ok
		},
	}

	out, err := expr.Run(r.program, e)
	if err != nil {
		return false, fmt.Errorf("SVIEXPR/Eval > %w", err)
	}
	matched, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("SVIEXPR/Eval > rule %q did not evaluate to a bool", r.source)
	}
	return matched, nil
}
