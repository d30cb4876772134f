package filter

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func writeCSV(t *testing.T, pathname, content string) {
	t.Helper()
	if err := ioutil.WriteFile(pathname, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", pathname, err)
	}
}

func readLines(t *testing.T, pathname string) []string {
	t.Helper()
	data, err := ioutil.ReadFile(pathname)
	if err != nil {
		t.Fatalf("reading %s: %v", pathname, err)
	}
	var lines []string
	for _, l := range splitLines(string(data)) {
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

func TestFilter(t *testing.T) {
	dir, err := ioutil.TempDir("", "filter")
	if err != nil {
		t.Fatalf("tempdir: %v", err)
	}
	defer os.RemoveAll(dir)
	in := filepath.Join(dir, "in")
	if err := os.Mkdir(in, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	// reviews.csv anchors the closure on users {1,2} and books {1,2}.
	writeCSV(t, filepath.Join(in, "reviews.csv"),
		"review_id,user_id,book_id,rating\nr1,1,1,5\nr2,2,2,4\n")
	writeCSV(t, filepath.Join(in, "interactions.csv"),
		"user_id,book_id,rating\n1,1,4\n1,3,2\n3,1,5\n")
	writeCSV(t, filepath.Join(in, "books.csv"),
		"book_id,title\n1,A\n2,B\n3,C\n")
	writeCSV(t, filepath.Join(in, "authors.csv"),
		"author_id,name,role,books\n1,Ann,,1;3\n2,Zed,,3\n")
	writeCSV(t, filepath.Join(in, "genres.csv"),
		"book_id,genres\n1,fiction:3\n3,history:1\n")
	writeCSV(t, filepath.Join(in, "users.csv"),
		"user_id_csv,user_id\n10,1\n11,3\n")

	m := NewMain()
	m.DataDir = in
	m.OutputDir = filepath.Join(dir, "out")
	if err := m.Run(); err != nil {
		t.Fatalf("running filter: %v", err)
	}

	if got := readLines(t, filepath.Join(m.OutputDir, "reviews.csv")); len(got) != 3 {
		t.Fatalf("reviews pass through unchanged, got %v", got)
	}
	got := readLines(t, filepath.Join(m.OutputDir, "interactions.csv"))
	if len(got) != 2 || got[1] != "1,1,4" {
		t.Fatalf("unexpected interactions: %v", got)
	}
	got = readLines(t, filepath.Join(m.OutputDir, "books.csv"))
	if len(got) != 3 || got[1] != "1,A" || got[2] != "2,B" {
		t.Fatalf("unexpected books: %v", got)
	}
	got = readLines(t, filepath.Join(m.OutputDir, "authors.csv"))
	if len(got) != 2 || got[1] != "1,Ann,,1" {
		t.Fatalf("authors should prune dropped books and drop empty authors: %v", got)
	}
	got = readLines(t, filepath.Join(m.OutputDir, "genres.csv"))
	if len(got) != 2 || got[1] != "1,fiction:3" {
		t.Fatalf("unexpected genres: %v", got)
	}
	got = readLines(t, filepath.Join(m.OutputDir, "users.csv"))
	if len(got) != 2 || got[1] != "10,1" {
		t.Fatalf("unexpected users: %v", got)
	}
	// ratings.csv was never written and should be skipped quietly.
	if _, err := os.Stat(filepath.Join(m.OutputDir, "ratings.csv")); !os.IsNotExist(err) {
		t.Fatalf("ratings.csv should not appear, stat err: %v", err)
	}
}

func TestFilterRequiresReviews(t *testing.T) {
	dir, err := ioutil.TempDir("", "filternoreviews")
	if err != nil {
		t.Fatalf("tempdir: %v", err)
	}
	defer os.RemoveAll(dir)

	m := NewMain()
	m.DataDir = dir
	m.OutputDir = filepath.Join(dir, "out")
	if err := m.Run(); err == nil {
		t.Fatal("expected an error without reviews.csv")
	}
}

func TestFilterSameDir(t *testing.T) {
	m := NewMain()
	m.DataDir = "x"
	m.OutputDir = "x"
	if err := m.Run(); err == nil {
		t.Fatal("expected an error for identical directories")
	}
}
