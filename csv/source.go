// Package csv provides a bdk.Source for flat tabular files with a header
// row, such as the user id mapping file and the interactions dump.
package csv

import (
	"encoding/csv"
	"io"

	"github.com/bookdata/bdk"
	"github.com/pkg/errors"
)

// Source reads records from the files of a bdk.RawSource. The first row of
// each file is taken as the header, and each following row is returned as a
// map from header name to value. Empty values are omitted from the map.
type Source struct {
	rs bdk.RawSource

	cur    bdk.NamedReadCloser
	rdr    *csv.Reader
	header []string
	line   int
}

// NewSourceFromRawSource returns a Source reading from rs.
func NewSourceFromRawSource(rs bdk.RawSource) *Source {
	return &Source{rs: rs}
}

// Header returns the header of the file currently being read. It is only
// valid after the first call to Record.
func (s *Source) Header() []string {
	return s.header
}

// Record implements bdk.Source, returning a map[string]string per row. Rows
// which cannot be parsed or which disagree with the header length yield an
// error caused by bdk.ErrBadRecord.
func (s *Source) Record() (record interface{}, err error) {
	if s.cur == nil {
		s.cur, err = s.rs.NextReader()
		if err != nil {
			return nil, err
		}
		s.rdr = csv.NewReader(s.cur)
		s.rdr.FieldsPerRecord = -1
		s.line = 0
		header, err := s.rdr.Read()
		if err != nil {
			return nil, errors.Wrapf(err, "reading header of %s", s.cur.Name())
		}
		if err := validateHeader(header); err != nil {
			return nil, errors.Wrapf(err, "validating header of %s", s.cur.Name())
		}
		s.header = header
	}
	for {
		row, err := s.rdr.Read()
		if err == io.EOF {
			name := s.cur.Name()
			if cerr := s.cur.Close(); cerr != nil {
				return nil, errors.Wrapf(cerr, "closing %s", name)
			}
			s.cur = nil
			return s.Record()
		}
		s.line++
		if err != nil {
			return nil, errors.Wrapf(bdk.ErrBadRecord, "row %d: %v", s.line, err)
		}
		if len(row) != len(s.header) {
			return nil, errors.Wrapf(bdk.ErrBadRecord, "row %d: %d fields, header has %d", s.line, len(row), len(s.header))
		}
		ret := make(map[string]string, len(s.header))
		for i, h := range s.header {
			if row[i] == "" {
				continue
			}
			ret[h] = row[i]
		}
		return ret, nil
	}
}

func validateHeader(header []string) error {
	fields := make(map[string]int)
	for i, h := range header {
		if h == "" {
			return errors.Errorf("header contains empty string at %d: %v", i, header)
		}
		if pos, exists := fields[h]; exists {
			return errors.Errorf("%s appeared at both %d and %d in header", h, pos, i)
		}
		fields[h] = i
	}
	return nil
}
