package extract

import (
	"strconv"

	"github.com/spf13/cast"
)

// Identifier classes. Each class gets its own dense id space in the
// translator.
const (
	classUser   = "user"
	classBook   = "book"
	classAuthor = "author"
)

var (
	reviewColumns = []string{
		"review_id", "user_id", "book_id", "rating", "review_text",
		"date_added", "date_updated", "read_at", "started_at",
		"n_votes", "n_comments",
	}
	interactionColumns = []string{
		"user_id", "book_id", "rating", "is_read", "is_reviewed",
		"date_added", "date_updated", "read_at", "started_at",
	}
	bookColumns = []string{
		"book_id", "title", "title_without_series", "authors", "description",
		"publisher", "publication_year", "publication_month", "publication_day",
		"edition_information", "isbn", "isbn13", "asin", "kindle_asin",
		"num_pages", "text_reviews_count", "average_rating", "ratings_count",
		"series", "country_code", "language_code", "popular_shelves",
		"similar_books", "format", "link", "url", "image_url", "work_id",
		"genre",
	}
	authorColumns = []string{"author_id", "name", "role", "books"}
	genreColumns  = []string{"book_id", "genre"}
	ratingColumns = []string{"user_id", "book_id", "rating", "is_reviewed", "date_added"}
)

func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

// review is the subset of a review record the extract keeps. Identifiers stay
// in their original form until row() rewrites them.
type review struct {
	reviewID string
	userID   string
	bookID   string
	rating   int64
	text     string

	dateAdded   string
	dateUpdated string
	readAt      string
	startedAt   string
	votes       string
	comments    string
}

func reviewFromRecord(rec map[string]interface{}) review {
	return review{
		reviewID:    cast.ToString(rec["review_id"]),
		userID:      cast.ToString(rec["user_id"]),
		bookID:      cast.ToString(rec["book_id"]),
		rating:      cast.ToInt64(rec["rating"]),
		text:        cast.ToString(rec["review_text"]),
		dateAdded:   cast.ToString(rec["date_added"]),
		dateUpdated: cast.ToString(rec["date_updated"]),
		readAt:      cast.ToString(rec["read_at"]),
		startedAt:   cast.ToString(rec["started_at"]),
		votes:       cast.ToString(rec["n_votes"]),
		comments:    cast.ToString(rec["n_comments"]),
	}
}

func (r review) row(userID, bookID uint64, maxText int) []string {
	return []string{
		r.reviewID,
		strconv.FormatUint(userID, 10),
		strconv.FormatUint(bookID, 10),
		strconv.FormatInt(r.rating, 10),
		truncate(r.text, maxText),
		r.dateAdded,
		r.dateUpdated,
		r.readAt,
		r.startedAt,
		r.votes,
		r.comments,
	}
}

type interaction struct {
	userID string
	bookID string
	isRead string
	rating int64

	isReviewed  string
	dateAdded   string
	dateUpdated string
	readAt      string
	startedAt   string
}

func interactionFromRecord(rec map[string]interface{}) interaction {
	return interaction{
		userID:      cast.ToString(rec["user_id"]),
		bookID:      cast.ToString(rec["book_id"]),
		isRead:      cast.ToString(rec["is_read"]),
		rating:      cast.ToInt64(rec["rating"]),
		isReviewed:  cast.ToString(rec["is_reviewed"]),
		dateAdded:   cast.ToString(rec["date_added"]),
		dateUpdated: cast.ToString(rec["date_updated"]),
		readAt:      cast.ToString(rec["read_at"]),
		startedAt:   cast.ToString(rec["started_at"]),
	}
}

func (i interaction) row(userID, bookID uint64) []string {
	return []string{
		strconv.FormatUint(userID, 10),
		strconv.FormatUint(bookID, 10),
		strconv.FormatInt(i.rating, 10),
		i.isRead,
		i.isReviewed,
		i.dateAdded,
		i.dateUpdated,
		i.readAt,
		i.startedAt,
	}
}

// bookRow serializes a raw book record against bookColumns. The genre summary
// comes from the genre pass, not from the book dump, and is passed in by the
// caller.
func bookRow(rec map[string]interface{}, bookID uint64, maxDesc int, genre string) []string {
	return []string{
		formatID(bookID),
		cast.ToString(rec["title"]),
		cast.ToString(rec["title_without_series"]),
		authorsSummary(rec["authors"]),
		truncate(cast.ToString(rec["description"]), maxDesc),
		cast.ToString(rec["publisher"]),
		cast.ToString(rec["publication_year"]),
		cast.ToString(rec["publication_month"]),
		cast.ToString(rec["publication_day"]),
		cast.ToString(rec["edition_information"]),
		cast.ToString(rec["isbn"]),
		cast.ToString(rec["isbn13"]),
		cast.ToString(rec["asin"]),
		cast.ToString(rec["kindle_asin"]),
		cast.ToString(rec["num_pages"]),
		cast.ToString(rec["text_reviews_count"]),
		cast.ToString(rec["average_rating"]),
		cast.ToString(rec["ratings_count"]),
		joinField(rec["series"]),
		cast.ToString(rec["country_code"]),
		cast.ToString(rec["language_code"]),
		joinField(rec["popular_shelves"]),
		joinField(rec["similar_books"]),
		cast.ToString(rec["format"]),
		cast.ToString(rec["link"]),
		cast.ToString(rec["url"]),
		cast.ToString(rec["image_url"]),
		cast.ToString(rec["work_id"]),
		genre,
	}
}
