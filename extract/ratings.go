package extract

import (
	"io"
	"math/rand"
	"path/filepath"
	"strconv"

	"github.com/bookdata/bdk"
	csvsrc "github.com/bookdata/bdk/csv"
	"github.com/bookdata/bdk/file"
	"github.com/pkg/errors"
)

// ratings merges the review and interaction extracts into a single ratings
// table. Every review becomes a rating with is_reviewed=1; rated interactions
// whose user/book pair was never reviewed follow with is_reviewed=0. Interactions missing a date get one imputed from the distribution of
// review dates, so downstream consumers always see a date column. The
// imputation is seeded, so a run is reproducible.
func (ext *extraction) ratings() (stageResult, error) {
	res := stageResult{name: "ratings"}
	sink, err := NewSink(ext.m.OutputDir, "ratings.csv", ratingColumns)
	if err != nil {
		return res, err
	}

	rng := rand.New(rand.NewSource(ext.m.RatingsSeed))
	pool := &datePool{rng: rng, max: 4096}
	reviewed := make(map[string]struct{})

	err = ext.eachOutputRow("reviews.csv", &res, func(row map[string]string) error {
		key := row["user_id"] + "\x00" + row["book_id"]
		reviewed[key] = struct{}{}
		pool.Add(row["date_added"])
		return sink.Write([]string{
			row["user_id"], row["book_id"], row["rating"], "1", row["date_added"],
		})
	})
	if err != nil {
		sink.Close()
		return res, errors.Wrap(err, "merging reviews")
	}

	err = ext.eachOutputRow("interactions.csv", &res, func(row map[string]string) error {
		key := row["user_id"] + "\x00" + row["book_id"]
		if _, ok := reviewed[key]; ok {
			return nil
		}
		rating, err := strconv.ParseInt(row["rating"], 10, 64)
		if err != nil || rating == 0 {
			return nil
		}
		date := row["date_added"]
		if date == "" {
			date = pool.Pick()
		}
		return sink.Write([]string{
			row["user_id"], row["book_id"], row["rating"], "0", date,
		})
	})
	if err != nil {
		sink.Close()
		return res, errors.Wrap(err, "merging interactions")
	}
	res.kept = sink.Rows()
	ext.stats.Count("ratings.kept", res.kept, 1)
	return res, sink.Close()
}

// eachOutputRow reads back one of this run's own extracts and calls fn per
// row.
func (ext *extraction) eachOutputRow(name string, res *stageResult, fn func(row map[string]string) error) error {
	rs, err := file.NewRawSource(filepath.Join(ext.m.OutputDir, name))
	if err != nil {
		return errors.Wrapf(err, "opening %s", name)
	}
	src := csvsrc.NewSourceFromRawSource(rs)
	for {
		rec, err := src.Record()
		if err == io.EOF {
			return nil
		}
		if bdk.IsBadRecord(err) {
			res.skipped++
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "reading %s", name)
		}
		res.read++
		row, ok := rec.(map[string]string)
		if !ok {
			res.skipped++
			continue
		}
		if err := fn(row); err != nil {
			return err
		}
	}
}

// datePool keeps a bounded uniform sample of the dates it has seen.
type datePool struct {
	rng   *rand.Rand
	max   int
	n     int64
	dates []string
}

func (p *datePool) Add(d string) {
	if d == "" {
		return
	}
	p.n++
	if len(p.dates) < p.max {
		p.dates = append(p.dates, d)
		return
	}
	if j := p.rng.Int63n(p.n); j < int64(p.max) {
		p.dates[j] = d
	}
}

func (p *datePool) Pick() string {
	if len(p.dates) == 0 {
		return ""
	}
	return p.dates[p.rng.Intn(len(p.dates))]
}
