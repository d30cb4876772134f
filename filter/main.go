// Package filter re-establishes referential closure over an existing set of
// CSV extracts. After trimming reviews.csv by hand (or with another tool),
// running the filter drops every dependent row which no longer resolves:
// interactions and ratings of dropped users or books, unreferenced books and
// genre rows, authors left without books, and unmapped users.
package filter

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/bookdata/bdk"
	csvsrc "github.com/bookdata/bdk/csv"
	"github.com/bookdata/bdk/extract"
	"github.com/bookdata/bdk/file"
	"github.com/pkg/errors"
)

// Main holds the options for the filter command.
type Main struct {
	DataDir   string `help:"Directory holding an existing set of extracts."`
	OutputDir string `help:"Directory to write the re-filtered extracts to."`
}

// NewMain returns a new Main.
func NewMain() *Main {
	return &Main{
		DataDir:   "out",
		OutputDir: "filtered",
	}
}

// Run reads reviews.csv to learn which users and books still exist, then
// filters every other extract against those sets. reviews.csv itself passes
// through unchanged - it is the source of truth.
func (m *Main) Run() error {
	if m.DataDir == m.OutputDir {
		return errors.New("data and output directories must differ")
	}
	keptUsers := bdk.NewKeepSet()
	keptBooks := bdk.NewKeepSet()

	res, err := m.filterFile("reviews.csv", func(row map[string]string) (map[string]string, bool) {
		keptUsers.Add(row["user_id"])
		keptBooks.Add(row["book_id"])
		return row, true
	})
	if errors.Cause(err) == errMissing {
		return errors.New("reviews.csv is required")
	}
	if err != nil {
		return err
	}
	results := []stageResult{res}
	log.Printf("closure anchored on %d users and %d books", keptUsers.Len(), keptBooks.Len())

	filters := []struct {
		name string
		fn   func(row map[string]string) (map[string]string, bool)
	}{
		{"interactions.csv", func(row map[string]string) (map[string]string, bool) {
			return row, keptUsers.Has(row["user_id"]) && keptBooks.Has(row["book_id"])
		}},
		{"ratings.csv", func(row map[string]string) (map[string]string, bool) {
			return row, keptUsers.Has(row["user_id"]) && keptBooks.Has(row["book_id"])
		}},
		{"books.csv", func(row map[string]string) (map[string]string, bool) {
			return row, keptBooks.Has(row["book_id"])
		}},
		{"genres.csv", func(row map[string]string) (map[string]string, bool) {
			return row, keptBooks.Has(row["book_id"])
		}},
		{"users.csv", func(row map[string]string) (map[string]string, bool) {
			return row, keptUsers.Has(row["user_id"])
		}},
		{"authors.csv", func(row map[string]string) (map[string]string, bool) {
			pruned := pruneBooks(row["books"], keptBooks)
			if pruned == "" {
				return nil, false
			}
			row["books"] = pruned
			return row, true
		}},
	}
	for _, f := range filters {
		res, err := m.filterFile(f.name, f.fn)
		if err != nil {
			if errors.Cause(err) == errMissing {
				log.Printf("%s not present, skipping", f.name)
				continue
			}
			return err
		}
		results = append(results, res)
	}

	for _, r := range results {
		log.Printf("%-17s read=%d kept=%d skipped=%d", r.name, r.read, r.kept, r.skipped)
	}
	return nil
}

var errMissing = errors.New("extract not present")

type stageResult struct {
	name    string
	read    int64
	kept    int64
	skipped int64
}

// filterFile streams one extract through fn, mirroring its header. fn returns
// the (possibly rewritten) row and whether to keep it.
func (m *Main) filterFile(name string, fn func(row map[string]string) (map[string]string, bool)) (stageResult, error) {
	res := stageResult{name: name}
	rs, err := file.NewRawSource(filepath.Join(m.DataDir, name))
	if err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			return res, errors.Wrap(errMissing, name)
		}
		return res, errors.Wrapf(err, "opening %s", name)
	}
	src := csvsrc.NewSourceFromRawSource(rs)

	var sink *extract.Sink
	closeSink := func() error {
		if sink == nil {
			return nil
		}
		res.kept = sink.Rows()
		return sink.Close()
	}
	for {
		rec, err := src.Record()
		if err == io.EOF {
			return res, closeSink()
		}
		if bdk.IsBadRecord(err) {
			res.skipped++
			continue
		}
		if err != nil {
			closeSink()
			return res, errors.Wrapf(err, "reading %s", name)
		}
		if sink == nil {
			if sink, err = extract.NewSink(m.OutputDir, name, src.Header()); err != nil {
				return res, err
			}
		}
		res.read++
		row, ok := rec.(map[string]string)
		if !ok {
			res.skipped++
			continue
		}
		out, keep := fn(row)
		if !keep {
			continue
		}
		cols := make([]string, len(src.Header()))
		for i, h := range src.Header() {
			cols[i] = out[h]
		}
		if err := sink.Write(cols); err != nil {
			closeSink()
			return res, err
		}
	}
}

// pruneBooks drops the book references which are no longer kept from a
// ";"-joined list.
func pruneBooks(books string, kept bdk.KeepSet) string {
	if books == "" {
		return ""
	}
	parts := strings.Split(books, ";")
	out := parts[:0]
	for _, p := range parts {
		if kept.Has(p) {
			out = append(out, p)
		}
	}
	return strings.Join(out, ";")
}
