package extract

import (
	"strconv"
	"strings"
)

// authorMerger collapses duplicate author records. The dump contains the same
// contributor many times with slightly different attributes; the first record
// seen wins for the scalar fields, and the book lists of all duplicates are
// unioned. Emission order is first-seen order so repeated runs over the same
// input produce identical output.
type authorMerger struct {
	order   []string
	merged  map[string]*mergedAuthor
	dupes   int64
	badRows int64
}

type mergedAuthor struct {
	name  string
	role  string
	books []uint64
	seen  map[uint64]struct{}
}

func newAuthorMerger() *authorMerger {
	return &authorMerger{merged: make(map[string]*mergedAuthor)}
}

// Add merges one author record, keyed by the original author id. Books are
// the remapped ids of this record's kept books.
func (m *authorMerger) Add(origID, name, role string, books []uint64) {
	if origID == "" {
		m.badRows++
		return
	}
	ma, ok := m.merged[origID]
	if !ok {
		ma = &mergedAuthor{name: name, role: role, seen: make(map[uint64]struct{})}
		m.merged[origID] = ma
		m.order = append(m.order, origID)
	} else {
		m.dupes++
	}
	for _, b := range books {
		if _, ok := ma.seen[b]; ok {
			continue
		}
		ma.seen[b] = struct{}{}
		ma.books = append(ma.books, b)
	}
}

// Each calls fn once per distinct author in first-seen order. Authors whose
// merged book list ended up empty are skipped - every emitted author
// references at least one kept book.
func (m *authorMerger) Each(fn func(origID string, ma *mergedAuthor) error) error {
	for _, id := range m.order {
		ma := m.merged[id]
		if len(ma.books) == 0 {
			continue
		}
		if err := fn(id, ma); err != nil {
			return err
		}
	}
	return nil
}

// Dupes returns how many duplicate author records were folded in.
func (m *authorMerger) Dupes() int64 { return m.dupes }

func (ma *mergedAuthor) booksString() string {
	parts := make([]string, len(ma.books))
	for i, b := range ma.books {
		parts[i] = strconv.FormatUint(b, 10)
	}
	return strings.Join(parts, ";")
}
