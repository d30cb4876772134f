// Package file provides a bdk.RawSource over local files. A path may name a
// single file or a directory, and files ending in .gz are decompressed
// transparently - the raw dumps are almost all gzipped line-delimited JSON.
package file

import (
	"compress/gzip"
	"io"
	"io/ioutil"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/bookdata/bdk"
	"github.com/pkg/errors"
)

// RawSource is a bdk.RawSource which reads files from disk.
type RawSource struct {
	files   []string
	fileIdx *uint64
}

// NewRawSource returns a RawSource for the file or directory at pathname. A
// missing path is an error - callers decide whether that is fatal for the
// pass in question.
func NewRawSource(pathname string) (*RawSource, error) {
	fileIdx := uint64(0)
	s := &RawSource{
		fileIdx: &fileIdx,
	}
	info, err := os.Stat(pathname)
	if err != nil {
		return nil, errors.Wrap(err, "statting path")
	}
	if info.IsDir() {
		infos, err := ioutil.ReadDir(pathname)
		if err != nil {
			return nil, errors.Wrap(err, "reading directory")
		}
		s.files = make([]string, 0, len(infos))
		for _, info = range infos {
			if info.IsDir() {
				continue
			}
			s.files = append(s.files, path.Join(pathname, info.Name()))
		}
	} else {
		s.files = []string{pathname}
	}
	return s, nil
}

// NextReader implements bdk.RawSource. Gzipped files are wrapped in a gzip
// reader; Name always reports the underlying file name.
func (s *RawSource) NextReader() (bdk.NamedReadCloser, error) {
	idx := atomic.AddUint64(s.fileIdx, 1) - 1
	if int(idx) >= len(s.files) {
		return nil, io.EOF
	}

	f, err := os.Open(s.files[idx])
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", s.files[idx])
	}

	if strings.HasSuffix(f.Name(), ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "gunzipping %s", f.Name())
		}
		return &gzipFile{file: f, gz: gz}, nil
	}
	return &metaFile{f}, nil
}

type metaFile struct {
	*os.File
}

func (m *metaFile) Name() string {
	return filepath.Base(m.File.Name())
}

type gzipFile struct {
	file *os.File
	gz   *gzip.Reader
}

func (g *gzipFile) Read(p []byte) (int, error) {
	return g.gz.Read(p)
}

func (g *gzipFile) Close() error {
	if err := g.gz.Close(); err != nil {
		g.file.Close()
		return errors.Wrap(err, "closing gzip reader")
	}
	return g.file.Close()
}

func (g *gzipFile) Name() string {
	return filepath.Base(g.file.Name())
}
