package sample

import (
	"github.com/bookdata/bdk"
)

// Policy selects which grouping keys are kept, given ranked counts. An empty
// result is a valid outcome, not an error - a budget smaller than the largest
// single count keeps nobody.
type Policy interface {
	Select(ranked []KeyCount) bdk.KeepSet
}

// FractionPolicy keeps the top floor(Fraction * distinct keys) keys by
// descending count.
type FractionPolicy struct {
	Fraction float64
}

// Select implements Policy.
func (p FractionPolicy) Select(ranked []KeyCount) bdk.KeepSet {
	n := int(float64(len(ranked)) * p.Fraction)
	if n > len(ranked) {
		n = len(ranked)
	}
	if n < 0 {
		n = 0
	}
	keep := make(bdk.KeepSet, n)
	for _, kc := range ranked[:n] {
		keep.Add(kc.Key)
	}
	return keep
}

// BudgetPolicy keeps the maximal ranked prefix whose cumulative count does
// not exceed Budget.
type BudgetPolicy struct {
	Budget int64
}

// Select implements Policy.
func (p BudgetPolicy) Select(ranked []KeyCount) bdk.KeepSet {
	keep := make(bdk.KeepSet)
	var cum int64
	for _, kc := range ranked {
		if cum+kc.Count > p.Budget {
			break
		}
		cum += kc.Count
		keep.Add(kc.Key)
	}
	return keep
}
