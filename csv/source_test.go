package csv

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/bookdata/bdk"
	"github.com/bookdata/bdk/file"
)

func TestSource(t *testing.T) {
	dir, err := ioutil.TempDir("", "csvsource")
	if err != nil {
		t.Fatalf("tempdir: %v", err)
	}
	defer os.RemoveAll(dir)
	pathname := filepath.Join(dir, "rows.csv")
	content := "user_id_csv,user_id\n10,u1\n11,\nbadrow\n12,u2\n"
	if err := ioutil.WriteFile(pathname, []byte(content), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	rs, err := file.NewRawSource(pathname)
	if err != nil {
		t.Fatalf("raw source: %v", err)
	}
	src := NewSourceFromRawSource(rs)

	rec, err := src.Record()
	if err != nil {
		t.Fatalf("first record: %v", err)
	}
	row := rec.(map[string]string)
	if row["user_id_csv"] != "10" || row["user_id"] != "u1" {
		t.Fatalf("unexpected first row: %v", row)
	}
	if got := src.Header(); len(got) != 2 || got[0] != "user_id_csv" {
		t.Fatalf("unexpected header: %v", got)
	}

	rec, err = src.Record()
	if err != nil {
		t.Fatalf("second record: %v", err)
	}
	row = rec.(map[string]string)
	if _, ok := row["user_id"]; ok {
		t.Fatalf("empty values should be omitted: %v", row)
	}

	if _, err = src.Record(); !bdk.IsBadRecord(err) {
		t.Fatalf("short row should be a bad record, got %v", err)
	}

	rec, err = src.Record()
	if err != nil {
		t.Fatalf("record after bad row: %v", err)
	}
	if rec.(map[string]string)["user_id"] != "u2" {
		t.Fatalf("unexpected row after bad row: %v", rec)
	}
}
