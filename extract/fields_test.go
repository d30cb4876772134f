package extract

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	if got := truncate("hello", 10); got != "hello" {
		t.Fatalf("short strings pass through, got %q", got)
	}
	if got := truncate("hello world", 5); got != "hello..." {
		t.Fatalf("expected marker after cut, got %q", got)
	}
	if got := truncate("hello world", 0); got != "hello world" {
		t.Fatalf("zero max disables truncation, got %q", got)
	}
	// runes, not bytes
	if got := truncate("héllo wörld", 5); got != "héllo..." {
		t.Fatalf("expected rune-wise cut, got %q", got)
	}
}

func TestJoinField(t *testing.T) {
	if got := joinField(nil); got != "" {
		t.Fatalf("nil joins to empty, got %q", got)
	}
	if got := joinField([]interface{}{"a", "b", "c"}); got != "a;b;c" {
		t.Fatalf("list join: %q", got)
	}
	got := joinField(map[string]interface{}{"romance": 1.0, "fiction": 3.0})
	if got != "fiction:3;romance:1" {
		t.Fatalf("map join must be sorted: %q", got)
	}
	got = joinField([]interface{}{
		map[string]interface{}{"name": "x", "count": 2.0},
		"plain",
	})
	if got != "count:2,name:x;plain" {
		t.Fatalf("mixed list join: %q", got)
	}
}

func TestAuthorsSummary(t *testing.T) {
	got := authorsSummary([]interface{}{
		map[string]interface{}{"author_id": "a1", "name": "Ann"},
		map[string]interface{}{"author_id": "a2"},
	})
	if got != "a1:Ann;a2:" {
		t.Fatalf("author summary: %q", got)
	}
	if got := authorsSummary(nil); got != "" {
		t.Fatalf("nil summary: %q", got)
	}
}

func TestAuthorMerger(t *testing.T) {
	m := newAuthorMerger()
	m.Add("a1", "Ann", "author", []uint64{1})
	m.Add("a2", "Bob", "", nil)
	m.Add("a1", "Ann Other", "editor", []uint64{2, 1})
	m.Add("", "nameless", "", []uint64{3})

	if m.Dupes() != 1 {
		t.Fatalf("expected 1 folded duplicate, got %d", m.Dupes())
	}

	var order []string
	err := m.Each(func(origID string, ma *mergedAuthor) error {
		order = append(order, origID)
		if origID == "a1" {
			if ma.name != "Ann" || ma.role != "author" {
				t.Fatalf("first record should win scalars: %q %q", ma.name, ma.role)
			}
			if ma.booksString() != "1;2" {
				t.Fatalf("book union should preserve first-seen order: %q", ma.booksString())
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("iterating merger: %v", err)
	}
	// a2 has no kept books and the empty id was rejected outright.
	if len(order) != 1 || order[0] != "a1" {
		t.Fatalf("unexpected emission order: %v", order)
	}
}
