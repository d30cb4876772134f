package extract

import (
	"encoding/csv"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Sink writes rows with a fixed column set to a CSV file. The header is
// written on creation, so a sink with zero rows still produces a parseable
// file.
type Sink struct {
	path    string
	columns []string
	file    *os.File
	w       *csv.Writer
	rows    int64
}

// NewSink creates the file at dir/name, writes the header, and returns the
// sink. Parent directories are created as needed.
func NewSink(dir, name string, columns []string) (*Sink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "creating output directory")
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "creating %s", path)
	}
	s := &Sink{
		path:    path,
		columns: columns,
		file:    f,
		w:       csv.NewWriter(f),
	}
	if err := s.w.Write(columns); err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "writing header to %s", path)
	}
	return s, nil
}

// Write appends one row. The row length must match the column set.
func (s *Sink) Write(row []string) error {
	if len(row) != len(s.columns) {
		return errors.Errorf("row has %d fields, want %d in %s", len(row), len(s.columns), s.path)
	}
	if err := s.w.Write(row); err != nil {
		return errors.Wrapf(err, "writing row to %s", s.path)
	}
	s.rows++
	return nil
}

// Rows returns the number of data rows written so far.
func (s *Sink) Rows() int64 { return s.rows }

// Close flushes buffered rows and closes the file.
func (s *Sink) Close() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		s.file.Close()
		return errors.Wrapf(err, "flushing %s", s.path)
	}
	return errors.Wrapf(s.file.Close(), "closing %s", s.path)
}
