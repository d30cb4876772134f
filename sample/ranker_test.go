package sample

import (
	"strings"
	"testing"

	bdkjson "github.com/bookdata/bdk/json"
)

func TestRankerOrdering(t *testing.T) {
	r := NewRanker()
	for _, k := range []string{"u2", "u1", "u3", "u1", "u3", "u1", "u2", ""} {
		r.Add(k)
	}
	if r.Distinct() != 3 {
		t.Fatalf("expected 3 distinct keys, got %d", r.Distinct())
	}
	ranked := r.Ranked()
	want := []KeyCount{{"u1", 3}, {"u2", 2}, {"u3", 2}}
	for i := range want {
		if ranked[i] != want[i] {
			t.Fatalf("rank %d: got %v, want %v (full: %v)", i, ranked[i], want[i], ranked)
		}
	}
}

func TestRankerTieBreakFirstSeen(t *testing.T) {
	r := NewRanker()
	r.Add("b")
	r.Add("a")
	ranked := r.Ranked()
	if ranked[0].Key != "b" || ranked[1].Key != "a" {
		t.Fatalf("ties must preserve first-seen order, got %v", ranked)
	}
}

func TestCountSource(t *testing.T) {
	in := `{"user_id": "u1", "rating": 5}
{"user_id": "u1", "rating": 4}
not json at all
{"user_id": "u2", "rating": 0}
{"user_id": "u2", "rating": 3}
{"rating": 2}
`
	src := bdkjson.NewSource(strings.NewReader(in))
	r, skipped, err := CountSource(src, "user_id", func(m map[string]interface{}) bool {
		return m["rating"] != float64(0)
	})
	if err != nil {
		t.Fatalf("counting: %v", err)
	}
	if skipped != 1 {
		t.Fatalf("expected 1 skipped record, got %d", skipped)
	}
	if r.Count("u1") != 2 {
		t.Fatalf("u1 count: %d", r.Count("u1"))
	}
	if r.Count("u2") != 1 {
		t.Fatalf("u2 count should exclude rating 0: %d", r.Count("u2"))
	}
	if r.Distinct() != 2 {
		t.Fatalf("record without user_id must not count: %d distinct", r.Distinct())
	}
}

func TestFractionPolicy(t *testing.T) {
	ranked := []KeyCount{{"u1", 2}, {"u2", 1}}
	keep := FractionPolicy{Fraction: 0.5}.Select(ranked)
	if keep.Len() != 1 || !keep.Has("u1") {
		t.Fatalf("expected only u1 kept, got %v", keep)
	}

	keep = FractionPolicy{Fraction: 1.0}.Select(ranked)
	if keep.Len() != 2 {
		t.Fatalf("expected both kept, got %v", keep)
	}

	keep = FractionPolicy{Fraction: 0.0}.Select(ranked)
	if keep.Len() != 0 {
		t.Fatalf("expected empty keep set, got %v", keep)
	}
}

func TestBudgetPolicy(t *testing.T) {
	ranked := []KeyCount{{"u1", 5}, {"u2", 3}, {"u3", 2}, {"u4", 1}}

	keep := BudgetPolicy{Budget: 8}.Select(ranked)
	if keep.Len() != 2 || !keep.Has("u1") || !keep.Has("u2") {
		t.Fatalf("budget 8 should keep u1,u2: %v", keep)
	}

	// u3 does not fit, and the prefix stops there even though u4 would.
	keep = BudgetPolicy{Budget: 9}.Select(ranked)
	if keep.Len() != 2 {
		t.Fatalf("budget 9 should still keep only u1,u2: %v", keep)
	}

	keep = BudgetPolicy{Budget: 4}.Select(ranked)
	if keep.Len() != 0 {
		t.Fatalf("budget below the largest count keeps nobody: %v", keep)
	}
}
