package bdk

import (
	"io"

	"github.com/pkg/errors"
)

// Source is the interface for getting raw data one record at a time.
// Implementations of Source should be thread safe. Record returns io.EOF once
// the underlying data is exhausted.
type Source interface {
	Record() (interface{}, error)
}

// NamedReadCloser is an io.ReadCloser which knows the name of the file or
// object it reads from.
type NamedReadCloser interface {
	io.ReadCloser
	Name() string
}

// RawSource hands out one reader per underlying file or object and returns
// io.EOF when none remain. It decouples locating and opening data (local
// directory, S3 prefix) from decoding it.
type RawSource interface {
	NextReader() (NamedReadCloser, error)
}

// ErrBadRecord is the cause of errors returned by Sources for a single record
// which cannot be parsed. Such errors do not invalidate the Source - callers
// are expected to count the skip and keep reading.
var ErrBadRecord = errors.New("bad record")

// IsBadRecord reports whether err concerns a single unparseable record rather
// than the source as a whole.
func IsBadRecord(err error) bool {
	return errors.Cause(err) == ErrBadRecord
}
