// Package json provides a bdk.Source for line-delimited JSON data, the
// format the raw review, book, author and genre dumps come in.
package json

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"

	"github.com/bookdata/bdk"
	"github.com/pkg/errors"
)

// lines in the book dump can run to several megabytes of description text.
const maxLineSize = 16 * 1024 * 1024

// Source is a bdk.Source which reads one JSON object per line.
type Source struct {
	scan *bufio.Scanner
	line int
}

// NewSource gets a new json source which will decode line-delimited objects
// from the given reader.
func NewSource(r io.Reader) *Source {
	scan := bufio.NewScanner(r)
	scan.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Source{scan: scan}
}

// Record implements bdk.Source. It returns the next object as a
// map[string]interface{}. A line which fails to parse yields an error caused
// by bdk.ErrBadRecord; the source remains usable afterwards. Blank lines are
// skipped silently.
func (s *Source) Record() (rec interface{}, err error) {
	for s.scan.Scan() {
		s.line++
		data := bytes.TrimSpace(s.scan.Bytes())
		if len(data) == 0 {
			continue
		}
		res := make(map[string]interface{})
		if err := json.Unmarshal(data, &res); err != nil {
			return nil, errors.Wrapf(bdk.ErrBadRecord, "line %d: %v", s.line, err)
		}
		return res, nil
	}
	if err := s.scan.Err(); err != nil {
		return nil, errors.Wrap(err, "scanning")
	}
	return nil, io.EOF
}

type rawSourceSource struct {
	rs bdk.RawSource

	cur bdk.NamedReadCloser
	s   *Source
}

// NewSourceFromRawSource returns a bdk.Source which decodes line-delimited
// JSON from each reader the RawSource produces in turn.
func NewSourceFromRawSource(rs bdk.RawSource) bdk.Source {
	return &rawSourceSource{rs: rs}
}

func (r *rawSourceSource) Record() (rec interface{}, err error) {
	if r.s == nil {
		reader, err := r.rs.NextReader()
		if err == io.EOF {
			return nil, err
		} else if err != nil {
			return nil, errors.Wrap(err, "getting next reader")
		}
		r.cur = reader
		r.s = NewSource(reader)
	}
	rec, err = r.s.Record()
	if err == io.EOF {
		r.s = nil
		if cerr := r.cur.Close(); cerr != nil {
			return nil, errors.Wrapf(cerr, "closing %s", r.cur.Name())
		}
		return r.Record()
	}
	return rec, err
}
