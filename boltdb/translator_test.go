package boltdb

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func TestBoltTranslator(t *testing.T) {
	dir, err := ioutil.TempDir("", "bolttrans")
	if err != nil {
		t.Fatalf("tempdir: %v", err)
	}
	defer os.RemoveAll(dir)

	bt, err := NewTranslator(filepath.Join(dir, "ids.bolt"), "user", "book")
	if err != nil {
		t.Fatalf("couldn't get bolt db: %v", err)
	}
	defer bt.Close()

	id1, err := bt.GetID("user", "u-x")
	if err != nil {
		t.Fatalf("getting id for u-x: %v", err)
	}
	if id1 != 1 {
		t.Fatalf("first user id should be 1, got %d", id1)
	}

	id2, err := bt.GetID("book", "u-x")
	if err != nil {
		t.Fatalf("getting id for u-x in book: %v", err)
	}
	if id2 != 1 {
		t.Fatalf("classes have separate id spaces, got %d", id2)
	}

	again, err := bt.GetID("user", "u-x")
	if err != nil {
		t.Fatalf("repeat lookup: %v", err)
	}
	if again != id1 {
		t.Fatalf("repeat lookup changed id: %d then %d", id1, again)
	}

	// lazily created class
	gid, err := bt.GetID("genre", "fiction")
	if err != nil {
		t.Fatalf("lazy class: %v", err)
	}
	if gid != 1 {
		t.Fatalf("lazy class ids start at 1, got %d", gid)
	}

	orig, err := bt.Get("user", id1)
	if err != nil {
		t.Fatalf("reverse lookup: %v", err)
	}
	if orig != "u-x" {
		t.Fatalf("reverse lookup returned %q", orig)
	}

	if _, err := bt.Get("user", 99); err == nil {
		t.Fatal("expected error for unknown id")
	}
}
