// Package extract implements the extraction cascade: select anchor users
// from the review stream, keep their reviews, discover the referenced books,
// and derive the dependent book, author, genre, interaction and user extracts
// so that every identifier in the output resolves within the output.
package extract

import (
	"encoding/csv"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/bookdata/bdk"
	"github.com/bookdata/bdk/boltdb"
	csvsrc "github.com/bookdata/bdk/csv"
	"github.com/bookdata/bdk/file"
	"github.com/bookdata/bdk/json"
	"github.com/bookdata/bdk/leveldb"
	"github.com/bookdata/bdk/s3"
	"github.com/bookdata/bdk/sample"
	"github.com/bookdata/bdk/termstat"
	"github.com/pkg/errors"
)

// Main holds all the configuration for the extract command.
type Main struct {
	DataDir   string `help:"Directory holding the raw dumps. May be an s3://bucket/prefix URL."`
	OutputDir string `help:"Directory to write the CSV extracts to."`
	AWSRegion string `help:"AWS region, when reading from S3."`

	ReviewsFile      string `help:"Name of the review dump under the data dir."`
	InteractionsFile string `help:"Name of the interaction dump under the data dir."`
	BooksFile        string `help:"Name of the book dump under the data dir."`
	AuthorsFile      string `help:"Name of the author dump under the data dir."`
	GenresFile       string `help:"Name of the genre dump under the data dir."`
	UsersFile        string `help:"Name of the user id mapping CSV under the data dir."`

	UserFraction float64 `help:"Fraction of users to keep, most active first."`
	UserBudget   int64   `help:"Keep the most active users whose review counts sum to at most this. Overrides fraction when non-zero."`
	CountsFile   string  `help:"Pre-computed key,count CSV to select users from, instead of counting the review dump."`

	MaxTextLen      int   `help:"Truncate review texts and book descriptions to this many characters (0 disables)."`
	MaxReviews      int64 `help:"Stop the review pass after keeping this many reviews (0 means no cap)."`
	MaxBooks        int64 `help:"Stop the book pass after keeping this many books (0 means no cap)."`
	MaxAuthors      int64 `help:"Stop the author pass after emitting this many authors (0 means no cap)."`
	MaxInteractions int64 `help:"Stop the interaction pass after keeping this many interactions (0 means no cap)."`

	InteractionBudget int64 `help:"Keep interactions only for the most active users whose valid interaction counts sum to at most this (0 disables)."`

	MapBackend string `help:"Identifier map backend - memory, leveldb or bolt."`
	MapDir     string `help:"Directory for persistent identifier maps."`

	Concurrency  int   `help:"Number of dependent passes to run at once."`
	WriteRatings bool  `help:"Also merge reviews and interactions into ratings.csv."`
	RatingsSeed  int64 `help:"Seed for imputing dates on unreviewed ratings."`
	Progress     bool  `help:"Print running stats to stderr during extraction."`
}

// NewMain returns a Main with the defaults matching the public Goodreads
// dump layout.
func NewMain() *Main {
	return &Main{
		DataDir:   "data",
		OutputDir: "out",
		AWSRegion: "us-east-1",

		ReviewsFile:      "goodreads_reviews_dedup.json.gz",
		InteractionsFile: "goodreads_interactions_dedup.json.gz",
		BooksFile:        "goodreads_books.json.gz",
		AuthorsFile:      "goodreads_book_authors.json.gz",
		GenresFile:       "goodreads_book_genres_initial.json.gz",
		UsersFile:        "user_id_map.csv",

		UserFraction: 0.1,
		MaxTextLen:   1500,

		MapBackend:  "memory",
		MapDir:      "idmaps",
		Concurrency: 1,
		RatingsSeed: 1,
	}
}

// errMissingSource marks a dump which is not present. It is fatal for the
// review dump and a warning (the pass emits only a header) for every other
// one.
var errMissingSource = errors.New("source not found")

// errStop is returned by a record callback to end a pass early, once a row
// cap has been reached.
var errStop = errors.New("stop")

type stageResult struct {
	name    string
	read    int64
	kept    int64
	skipped int64
}

// Run performs the extraction.
func (m *Main) Run() error {
	stats := m.statter()
	trans, closeTrans, err := m.translator()
	if err != nil {
		return errors.Wrap(err, "setting up identifier maps")
	}
	defer closeTrans()

	keptUsers, err := m.selectUsers(stats, trans)
	if err != nil {
		return err
	}
	log.Printf("selected %d users", keptUsers.Len())
	stats.Gauge("users.selected", float64(keptUsers.Len()), 1)

	ext := &extraction{
		m:         m,
		trans:     trans,
		stats:     stats,
		keptUsers: keptUsers,
		keptBooks: bdk.NewKeepSet(),
	}

	// The review pass anchors everything else: it writes reviews.csv and
	// discovers the set of kept books as it goes.
	res, err := ext.reviews()
	if err != nil {
		return err
	}
	results := []stageResult{res}
	log.Printf("kept %d books via reviews", ext.keptBooks.Len())

	// Genres run before the book pass so book rows can carry their genre
	// summary.
	res, err = ext.genres()
	if err != nil {
		return err
	}
	results = append(results, res)

	depres, err := ext.dependents()
	if err != nil {
		return err
	}
	results = append(results, depres...)

	if m.WriteRatings {
		res, err = ext.ratings()
		if err != nil {
			return err
		}
		results = append(results, res)
	}

	for _, r := range results {
		log.Printf("%-13s read=%d kept=%d skipped=%d", r.name, r.read, r.kept, r.skipped)
	}
	return nil
}

// dependents runs the passes which only depend on the kept sets. With
// Concurrency > 1 they run at once - user and book ids are all allocated
// before these passes start (selection and the root pass respectively) and
// the author pass is the only allocator in its class, so the output is the
// same either way.
func (ext *extraction) dependents() ([]stageResult, error) {
	stages := []func() (stageResult, error){
		ext.books,
		ext.authors,
		ext.interactions,
		ext.users,
	}
	if ext.m.Concurrency <= 1 {
		results := make([]stageResult, 0, len(stages))
		for _, stage := range stages {
			res, err := stage()
			if err != nil {
				return nil, err
			}
			results = append(results, res)
		}
		return results, nil
	}

	sem := make(chan struct{}, ext.m.Concurrency)
	var wg sync.WaitGroup
	results := make([]stageResult, len(stages))
	errs := make([]error, len(stages))
	for i, stage := range stages {
		wg.Add(1)
		go func(i int, stage func() (stageResult, error)) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i], errs[i] = stage()
		}(i, stage)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// extraction carries the shared state of one run. The kept sets are written
// by the selection and review passes and read-only for the dependent passes.
type extraction struct {
	m     *Main
	trans bdk.Translator
	stats bdk.Statter

	keptUsers bdk.KeepSet
	keptBooks bdk.KeepSet

	// genreByBook maps original book ids to their serialized genre summary.
	// Written by the genre pass, read by the book pass.
	genreByBook map[string]string
}

func (m *Main) statter() bdk.Statter {
	if m.Progress {
		return termstat.NewCollector(os.Stderr)
	}
	return bdk.NopStatter{}
}

func (m *Main) translator() (bdk.Translator, func() error, error) {
	switch m.MapBackend {
	case "", "memory":
		return bdk.NewMapTranslator(), func() error { return nil }, nil
	case "leveldb":
		lt, err := leveldb.NewTranslator(m.MapDir, classUser, classBook, classAuthor)
		if err != nil {
			return nil, nil, errors.Wrap(err, "opening leveldb translator")
		}
		return lt, lt.Close, nil
	case "bolt":
		if err := os.MkdirAll(m.MapDir, 0755); err != nil {
			return nil, nil, errors.Wrap(err, "creating map directory")
		}
		bt, err := boltdb.NewTranslator(filepath.Join(m.MapDir, "ids.bolt"), classUser, classBook, classAuthor)
		if err != nil {
			return nil, nil, errors.Wrap(err, "opening bolt translator")
		}
		return bt, bt.Close, nil
	}
	return nil, nil, errors.Errorf("unknown map backend %q", m.MapBackend)
}

// rawSource opens the named dump under the data dir. A missing dump yields an
// error caused by errMissingSource.
func (m *Main) rawSource(name string) (bdk.RawSource, error) {
	if strings.HasPrefix(m.DataDir, "s3://") {
		trimmed := strings.TrimPrefix(m.DataDir, "s3://")
		parts := strings.SplitN(trimmed, "/", 2)
		bucket := parts[0]
		prefix := name
		if len(parts) == 2 && parts[1] != "" {
			prefix = path.Join(parts[1], name)
		}
		rs, err := s3.NewRawSource(m.AWSRegion, bucket, prefix)
		if err != nil {
			return nil, errors.Wrap(err, "listing s3 objects")
		}
		if rs.Len() == 0 {
			return nil, errors.Wrapf(errMissingSource, "s3://%s/%s", bucket, prefix)
		}
		return rs, nil
	}
	pathname := filepath.Join(m.DataDir, name)
	rs, err := file.NewRawSource(pathname)
	if err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			return nil, errors.Wrap(errMissingSource, pathname)
		}
		return nil, err
	}
	return rs, nil
}

func (m *Main) jsonSource(name string) (bdk.Source, error) {
	rs, err := m.rawSource(name)
	if err != nil {
		return nil, err
	}
	return json.NewSourceFromRawSource(rs), nil
}

func (m *Main) csvSource(name string) (*csvsrc.Source, error) {
	rs, err := m.rawSource(name)
	if err != nil {
		return nil, err
	}
	return csvsrc.NewSourceFromRawSource(rs), nil
}

// selectUsers produces the kept user set, either from a pre-computed counts
// file or by counting reviews per user over the review dump. Kept users are
// mapped to their dense ids here, in rank order, so the id a user gets never
// depends on which extraction pass happens to see them first.
func (m *Main) selectUsers(stats bdk.Statter, trans bdk.Translator) (bdk.KeepSet, error) {
	var ranked []sample.KeyCount
	if m.CountsFile != "" {
		var err error
		ranked, err = readCounts(m.CountsFile)
		if err != nil {
			return nil, errors.Wrapf(err, "reading counts from %s", m.CountsFile)
		}
	} else {
		src, err := m.jsonSource(m.ReviewsFile)
		if err != nil {
			return nil, errors.Wrap(err, "opening review dump for counting")
		}
		ranker, skipped, err := sample.CountSource(src, "user_id", func(rec map[string]interface{}) bool {
			return reviewFromRecord(rec).rating != 0
		})
		if err != nil {
			return nil, errors.Wrap(err, "counting reviews per user")
		}
		if skipped > 0 {
			log.Printf("counting pass skipped %d unparseable records", skipped)
		}
		stats.Gauge("users.distinct", float64(ranker.Distinct()), 1)
		ranked = ranker.Ranked()
	}

	var policy sample.Policy
	if m.UserBudget > 0 {
		policy = sample.BudgetPolicy{Budget: m.UserBudget}
	} else {
		policy = sample.FractionPolicy{Fraction: m.UserFraction}
	}
	keep := policy.Select(ranked)
	for _, kc := range ranked {
		if !keep.Has(kc.Key) {
			continue
		}
		if _, err := trans.GetID(classUser, kc.Key); err != nil {
			return nil, errors.Wrap(err, "mapping user id")
		}
	}
	return keep, nil
}

// readCounts loads a ranked key,count file as written by the kafka counting
// command. Rows keep their file order - the file is already ranked.
func readCounts(pathname string) ([]sample.KeyCount, error) {
	f, err := os.Open(pathname)
	if err != nil {
		return nil, errors.Wrap(err, "opening counts file")
	}
	defer f.Close()
	rdr := csv.NewReader(f)
	var ranked []sample.KeyCount
	for {
		row, err := rdr.Read()
		if err == io.EOF {
			return ranked, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading counts row")
		}
		if len(row) != 2 {
			return nil, errors.Errorf("counts row has %d fields, want 2", len(row))
		}
		if row[0] == "key" && row[1] == "count" {
			continue
		}
		count, err := strconv.ParseInt(row[1], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing count for key %q", row[0])
		}
		ranked = append(ranked, sample.KeyCount{Key: row[0], Count: count})
	}
}

// eachRecord drives src to completion, calling fn for every parseable object.
// Unparseable records are counted and skipped. fn may return errStop to end
// the pass early.
func eachRecord(src bdk.Source, stats bdk.Statter, stat string, fn func(rec map[string]interface{}) error) (read, skipped int64, err error) {
	for {
		rec, err := src.Record()
		if err == io.EOF {
			return read, skipped, nil
		}
		if bdk.IsBadRecord(err) {
			skipped++
			stats.Count(stat+".skipped", 1, 1)
			continue
		}
		if err != nil {
			return read, skipped, errors.Wrap(err, "reading record")
		}
		read++
		stats.Count(stat+".read", 1, 1)
		obj, ok := rec.(map[string]interface{})
		if !ok {
			skipped++
			stats.Count(stat+".skipped", 1, 1)
			continue
		}
		if err := fn(obj); err == errStop {
			return read, skipped, nil
		} else if err != nil {
			return read, skipped, err
		}
	}
}
