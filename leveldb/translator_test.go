package leveldb

import (
	"io/ioutil"
	"os"
	"testing"
)

func TestLevelTranslator(t *testing.T) {
	dir, err := ioutil.TempDir("", "leveltrans")
	if err != nil {
		t.Fatalf("tempdir: %v", err)
	}
	defer os.RemoveAll(dir)

	lt, err := NewTranslator(dir, "user")
	if err != nil {
		t.Fatalf("getting translator: %v", err)
	}
	defer lt.Close()

	id, err := lt.GetID("user", "u-abc")
	if err != nil {
		t.Fatalf("getting id: %v", err)
	}
	if id != 1 {
		t.Fatalf("first id should be 1, got %d", id)
	}

	id2, err := lt.GetID("user", "u-abc")
	if err != nil {
		t.Fatalf("getting id again: %v", err)
	}
	if id2 != id {
		t.Fatalf("repeat lookup changed id: %d then %d", id, id2)
	}

	id3, err := lt.GetID("user", "u-def")
	if err != nil {
		t.Fatalf("getting second id: %v", err)
	}
	if id3 != 2 {
		t.Fatalf("second id should be 2, got %d", id3)
	}

	// lazily created class gets its own id space
	bid, err := lt.GetID("book", "b-1")
	if err != nil {
		t.Fatalf("getting book id: %v", err)
	}
	if bid != 1 {
		t.Fatalf("book ids should start at 1, got %d", bid)
	}

	orig, err := lt.Get("user", 2)
	if err != nil {
		t.Fatalf("reverse lookup: %v", err)
	}
	if orig != "u-def" {
		t.Fatalf("reverse lookup returned %q", orig)
	}
}
