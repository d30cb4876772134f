// Package sample implements anchor selection for the extraction cascade: a
// single-pass frequency ranker over a grouping key, and policies which pick
// the set of keys to keep from the ranked counts.
package sample

import (
	"io"
	"sort"

	"github.com/bookdata/bdk"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

// KeyCount pairs a grouping key with its observed count.
type KeyCount struct {
	Key   string
	Count int64
}

// Ranker counts occurrences of a grouping key in one forward pass. Memory is
// proportional to the number of distinct keys. Ranker is not threadsafe - a
// counting pass has a single writer.
type Ranker struct {
	counts map[string]int64
	seen   map[string]int
}

// NewRanker returns an empty Ranker.
func NewRanker() *Ranker {
	return &Ranker{
		counts: make(map[string]int64),
		seen:   make(map[string]int),
	}
}

// Add counts one occurrence of key. The empty key is ignored - records with
// no grouping value contribute nothing.
func (r *Ranker) Add(key string) {
	r.AddN(key, 1)
}

// AddN counts n occurrences of key.
func (r *Ranker) AddN(key string, n int64) {
	if key == "" {
		return
	}
	if _, ok := r.seen[key]; !ok {
		r.seen[key] = len(r.seen)
	}
	r.counts[key] += n
}

// Distinct returns the number of distinct keys observed.
func (r *Ranker) Distinct() int {
	return len(r.counts)
}

// Count returns the count for key, or 0 if it was never observed.
func (r *Ranker) Count(key string) int64 {
	return r.counts[key]
}

// Ranked returns all keys ordered by descending count. Ties are broken by
// first-seen position, so the ordering is reproducible for a given input
// ordering.
func (r *Ranker) Ranked() []KeyCount {
	ranked := make([]KeyCount, 0, len(r.counts))
	for key, count := range r.counts {
		ranked = append(ranked, KeyCount{Key: key, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return r.seen[ranked[i].Key] < r.seen[ranked[j].Key]
	})
	return ranked
}

// CountSource runs src to completion, counting the value of field for every
// parseable record which accept allows (a nil accept allows everything). It
// returns the ranker and the number of records skipped for parse errors.
func CountSource(src bdk.Source, field string, accept func(map[string]interface{}) bool) (*Ranker, int64, error) {
	r := NewRanker()
	var skipped int64
	for {
		rec, err := src.Record()
		if err == io.EOF {
			return r, skipped, nil
		}
		if bdk.IsBadRecord(err) {
			skipped++
			continue
		}
		if err != nil {
			return nil, skipped, errors.Wrap(err, "reading record")
		}
		m, ok := rec.(map[string]interface{})
		if !ok {
			skipped++
			continue
		}
		if accept != nil && !accept(m) {
			continue
		}
		r.Add(cast.ToString(m[field]))
	}
}
