package extract

import (
	"io"
	"log"

	"github.com/bookdata/bdk"
	"github.com/bookdata/bdk/sample"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

// reviews is the root pass. It keeps every rated review written by a kept
// user, rewrites its user and book ids, and grows the kept book set with
// every book it encounters.
func (ext *extraction) reviews() (stageResult, error) {
	res := stageResult{name: "reviews"}
	sink, err := NewSink(ext.m.OutputDir, "reviews.csv", reviewColumns)
	if err != nil {
		return res, err
	}

	src, err := ext.m.jsonSource(ext.m.ReviewsFile)
	if err != nil {
		sink.Close()
		return res, errors.Wrap(err, "opening review dump")
	}

	res.read, res.skipped, err = eachRecord(src, ext.stats, "reviews", func(rec map[string]interface{}) error {
		rev := reviewFromRecord(rec)
		if rev.rating == 0 {
			return nil
		}
		if !ext.keptUsers.Has(rev.userID) || rev.bookID == "" {
			return nil
		}
		uid, err := ext.trans.GetID(classUser, rev.userID)
		if err != nil {
			return errors.Wrap(err, "mapping user id")
		}
		bid, err := ext.trans.GetID(classBook, rev.bookID)
		if err != nil {
			return errors.Wrap(err, "mapping book id")
		}
		ext.keptBooks.Add(rev.bookID)
		if err := sink.Write(rev.row(uid, bid, ext.m.MaxTextLen)); err != nil {
			return err
		}
		ext.stats.Count("reviews.kept", 1, 1)
		if ext.m.MaxReviews > 0 && sink.Rows() >= ext.m.MaxReviews {
			return errStop
		}
		return nil
	})
	res.kept = sink.Rows()
	if err != nil {
		sink.Close()
		return res, err
	}
	return res, sink.Close()
}

// genres writes one row per kept book with its serialized genre summary, and
// retains the summaries for the book pass.
func (ext *extraction) genres() (stageResult, error) {
	res := stageResult{name: "genres"}
	ext.genreByBook = make(map[string]string)
	sink, err := NewSink(ext.m.OutputDir, "genres.csv", genreColumns)
	if err != nil {
		return res, err
	}

	src, err := ext.m.jsonSource(ext.m.GenresFile)
	if err != nil {
		return res, ext.missingOK(err, "genre dump", sink)
	}

	res.read, res.skipped, err = eachRecord(src, ext.stats, "genres", func(rec map[string]interface{}) error {
		orig := cast.ToString(rec["book_id"])
		if !ext.keptBooks.Has(orig) {
			return nil
		}
		bid, err := ext.trans.GetID(classBook, orig)
		if err != nil {
			return errors.Wrap(err, "mapping book id")
		}
		joined := joinField(rec["genres"])
		ext.genreByBook[orig] = joined
		if err := sink.Write([]string{formatID(bid), joined}); err != nil {
			return err
		}
		ext.stats.Count("genres.kept", 1, 1)
		return nil
	})
	res.kept = sink.Rows()
	if err != nil {
		sink.Close()
		return res, err
	}
	return res, sink.Close()
}

// books keeps the rows of books discovered by the review pass, rewriting ids
// and merging in the genre summaries.
func (ext *extraction) books() (stageResult, error) {
	res := stageResult{name: "books"}
	sink, err := NewSink(ext.m.OutputDir, "books.csv", bookColumns)
	if err != nil {
		return res, err
	}

	src, err := ext.m.jsonSource(ext.m.BooksFile)
	if err != nil {
		return res, ext.missingOK(err, "book dump", sink)
	}

	res.read, res.skipped, err = eachRecord(src, ext.stats, "books", func(rec map[string]interface{}) error {
		orig := cast.ToString(rec["book_id"])
		if !ext.keptBooks.Has(orig) {
			return nil
		}
		bid, err := ext.trans.GetID(classBook, orig)
		if err != nil {
			return errors.Wrap(err, "mapping book id")
		}
		if err := sink.Write(bookRow(rec, bid, ext.m.MaxTextLen, ext.genreByBook[orig])); err != nil {
			return err
		}
		ext.stats.Count("books.kept", 1, 1)
		if ext.m.MaxBooks > 0 && sink.Rows() >= ext.m.MaxBooks {
			return errStop
		}
		return nil
	})
	res.kept = sink.Rows()
	if err != nil {
		sink.Close()
		return res, err
	}
	return res, sink.Close()
}

// authors streams the author dump through the merger, then emits one row per
// distinct author with at least one kept book. Author ids are allocated at
// emission time so dropped authors never enter the identifier map.
func (ext *extraction) authors() (stageResult, error) {
	res := stageResult{name: "authors"}
	sink, err := NewSink(ext.m.OutputDir, "authors.csv", authorColumns)
	if err != nil {
		return res, err
	}

	src, err := ext.m.jsonSource(ext.m.AuthorsFile)
	if err != nil {
		return res, ext.missingOK(err, "author dump", sink)
	}

	merger := newAuthorMerger()
	res.read, res.skipped, err = eachRecord(src, ext.stats, "authors", func(rec map[string]interface{}) error {
		var books []uint64
		for _, ref := range authorBookRefs(rec) {
			if !ext.keptBooks.Has(ref) {
				continue
			}
			bid, err := ext.trans.GetID(classBook, ref)
			if err != nil {
				return errors.Wrap(err, "mapping book id")
			}
			books = append(books, bid)
		}
		merger.Add(cast.ToString(rec["author_id"]), cast.ToString(rec["name"]), cast.ToString(rec["role"]), books)
		return nil
	})
	if err != nil {
		sink.Close()
		return res, err
	}
	if merger.Dupes() > 0 {
		ext.stats.Count("authors.merged", merger.Dupes(), 1)
	}

	err = merger.Each(func(origID string, ma *mergedAuthor) error {
		aid, err := ext.trans.GetID(classAuthor, origID)
		if err != nil {
			return errors.Wrap(err, "mapping author id")
		}
		if err := sink.Write([]string{formatID(aid), ma.name, ma.role, ma.booksString()}); err != nil {
			return err
		}
		ext.stats.Count("authors.kept", 1, 1)
		if ext.m.MaxAuthors > 0 && sink.Rows() >= ext.m.MaxAuthors {
			return errStop
		}
		return nil
	})
	if err == errStop {
		err = nil
	}
	res.kept = sink.Rows()
	if err != nil {
		sink.Close()
		return res, err
	}
	return res, sink.Close()
}

// interactions keeps rated shelf events between kept users and kept books.
// Unlike the review pass it never grows the kept sets - an interaction with an
// unknown book is simply dropped.
func (ext *extraction) interactions() (stageResult, error) {
	res := stageResult{name: "interactions"}
	sink, err := NewSink(ext.m.OutputDir, "interactions.csv", interactionColumns)
	if err != nil {
		return res, err
	}

	src, err := ext.m.jsonSource(ext.m.InteractionsFile)
	if err != nil {
		return res, ext.missingOK(err, "interaction dump", sink)
	}

	allowed := ext.keptUsers
	if ext.m.InteractionBudget > 0 {
		allowed, err = ext.budgetUsers()
		if err != nil {
			sink.Close()
			return res, err
		}
		log.Printf("interaction budget keeps %d of %d users", allowed.Len(), ext.keptUsers.Len())
		src, err = ext.m.jsonSource(ext.m.InteractionsFile)
		if err != nil {
			sink.Close()
			return res, errors.Wrap(err, "reopening interaction dump")
		}
	}

	res.read, res.skipped, err = eachRecord(src, ext.stats, "interactions", func(rec map[string]interface{}) error {
		in := interactionFromRecord(rec)
		if in.rating == 0 {
			return nil
		}
		if !allowed.Has(in.userID) || !ext.keptBooks.Has(in.bookID) {
			return nil
		}
		uid, err := ext.trans.GetID(classUser, in.userID)
		if err != nil {
			return errors.Wrap(err, "mapping user id")
		}
		bid, err := ext.trans.GetID(classBook, in.bookID)
		if err != nil {
			return errors.Wrap(err, "mapping book id")
		}
		if err := sink.Write(in.row(uid, bid)); err != nil {
			return err
		}
		ext.stats.Count("interactions.kept", 1, 1)
		if ext.m.MaxInteractions > 0 && sink.Rows() >= ext.m.MaxInteractions {
			return errStop
		}
		return nil
	})
	res.kept = sink.Rows()
	if err != nil {
		sink.Close()
		return res, err
	}
	return res, sink.Close()
}

// users filters the user id mapping file down to kept users, rewriting the
// user_id column and passing every other column through unchanged. The output
// header mirrors the input header.
func (ext *extraction) users() (stageResult, error) {
	res := stageResult{name: "users"}

	src, err := ext.m.csvSource(ext.m.UsersFile)
	if err != nil {
		if errors.Cause(err) == errMissingSource {
			// No header to mirror, so no file at all.
			log.Printf("user mapping missing, skipping users.csv: %v", err)
			return res, nil
		}
		return res, errors.Wrap(err, "opening user mapping")
	}

	var sink *Sink
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
			// A mapping file with no data rows still yields a
			// header-only extract, like every other empty dependent.
			if sink == nil && len(src.Header()) > 0 {
				if sink, err = NewSink(ext.m.OutputDir, "users.csv", src.Header()); err != nil {
					return res, err
				}
			}
			return res, closeSink()
		}
		if bdk.IsBadRecord(err) {
			res.skipped++
			ext.stats.Count("users.skipped", 1, 1)
			continue
		}
		if err != nil {
			closeSink()
			return res, errors.Wrap(err, "reading user mapping")
		}
		if sink == nil {
			if sink, err = NewSink(ext.m.OutputDir, "users.csv", src.Header()); err != nil {
				return res, err
			}
		}
		res.read++
		ext.stats.Count("users.read", 1, 1)
		row, ok := rec.(map[string]string)
		if !ok {
			res.skipped++
			continue
		}
		orig := row["user_id"]
		if !ext.keptUsers.Has(orig) {
			continue
		}
		uid, err := ext.trans.GetID(classUser, orig)
		if err != nil {
			closeSink()
			return res, errors.Wrap(err, "mapping user id")
		}
		out := make([]string, len(src.Header()))
		for i, h := range src.Header() {
			if h == "user_id" {
				out[i] = formatID(uid)
				continue
			}
			out[i] = row[h]
		}
		if err := sink.Write(out); err != nil {
			closeSink()
			return res, err
		}
		ext.stats.Count("users.kept", 1, 1)
	}
}

// budgetUsers ranks kept users by their number of valid interactions and
// keeps the most active prefix whose cumulative interaction counts fit the
// configured budget.
func (ext *extraction) budgetUsers() (bdk.KeepSet, error) {
	src, err := ext.m.jsonSource(ext.m.InteractionsFile)
	if err != nil {
		return nil, errors.Wrap(err, "opening interaction dump for counting")
	}
	ranker, _, err := sample.CountSource(src, "user_id", func(rec map[string]interface{}) bool {
		in := interactionFromRecord(rec)
		return in.rating != 0 && ext.keptUsers.Has(in.userID) && ext.keptBooks.Has(in.bookID)
	})
	if err != nil {
		return nil, errors.Wrap(err, "counting interactions per user")
	}
	return sample.BudgetPolicy{Budget: ext.m.InteractionBudget}.Select(ranker.Ranked()), nil
}

// missingOK downgrades a missing dependent dump to a warning and closes the
// sink so the output still carries the header. Any other error stays fatal.
func (ext *extraction) missingOK(err error, what string, sink *Sink) error {
	if errors.Cause(err) == errMissingSource {
		log.Printf("%s missing, writing empty extract: %v", what, err)
		return sink.Close()
	}
	sink.Close()
	return errors.Wrapf(err, "opening %s", what)
}

// authorBookRefs pulls the original book references off an author record. The
// dump carries either a single book_id per record or a books list, depending
// on vintage.
func authorBookRefs(rec map[string]interface{}) []string {
	if list, ok := rec["books"].([]interface{}); ok {
		refs := make([]string, 0, len(list))
		for _, item := range list {
			if id := cast.ToString(item); id != "" {
				refs = append(refs, id)
			}
		}
		return refs
	}
	if id := cast.ToString(rec["book_id"]); id != "" {
		return []string{id}
	}
	return nil
}
