package file

import (
	"compress/gzip"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	bdkjson "github.com/bookdata/bdk/json"
)

func writeGz(t *testing.T, dir, name, content string) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("creating %s: %v", name, err)
	}
	gz := gzip.NewWriter(f)
	if _, err := gz.Write([]byte(content)); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("closing gzip %s: %v", name, err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("closing %s: %v", name, err)
	}
}

func TestRawSourceGzip(t *testing.T) {
	dir, err := ioutil.TempDir("", "filesource")
	if err != nil {
		t.Fatalf("tempdir: %v", err)
	}
	defer os.RemoveAll(dir)

	writeGz(t, dir, "books.json.gz", `{"book_id": "b1"}`+"\n")

	rs, err := NewRawSource(filepath.Join(dir, "books.json.gz"))
	if err != nil {
		t.Fatalf("getting raw source: %v", err)
	}
	rdr, err := rs.NextReader()
	if err != nil {
		t.Fatalf("getting reader: %v", err)
	}
	if rdr.Name() != "books.json.gz" {
		t.Fatalf("unexpected name: %v", rdr.Name())
	}
	data, err := ioutil.ReadAll(rdr)
	if err != nil {
		t.Fatalf("reading: %v", err)
	}
	if string(data) != `{"book_id": "b1"}`+"\n" {
		t.Fatalf("unexpected content: %q", data)
	}
	if err := rdr.Close(); err != nil {
		t.Fatalf("closing: %v", err)
	}
	if _, err := rs.NextReader(); err != io.EOF {
		t.Fatalf("expected EOF, got: %v", err)
	}
}

func TestRawSourceDirWithJSONSource(t *testing.T) {
	dir, err := ioutil.TempDir("", "filesourcedir")
	if err != nil {
		t.Fatalf("tempdir: %v", err)
	}
	defer os.RemoveAll(dir)

	writeGz(t, dir, "a.json.gz", `{"n": 1}`+"\n")
	writeGz(t, dir, "b.json.gz", `{"n": 2}`+"\n"+`{"n": 3}`+"\n")

	rs, err := NewRawSource(dir)
	if err != nil {
		t.Fatalf("getting raw source: %v", err)
	}
	src := bdkjson.NewSourceFromRawSource(rs)
	n := 0
	for {
		_, err := src.Record()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("record %d: %v", n, err)
		}
		n++
	}
	if n != 3 {
		t.Fatalf("expected 3 records across files, got %d", n)
	}
}

func TestNewRawSourceMissing(t *testing.T) {
	if _, err := NewRawSource("/no/such/path"); err == nil {
		t.Fatal("expected error for missing path")
	}
}
