package json

import (
	"io"
	"strings"
	"testing"

	"github.com/bookdata/bdk"
)

func TestSource(t *testing.T) {
	in := `{"user_id": "u1", "rating": 5}

{"user_id": "u2"}
this line is not json
{"user_id": "u3"}
`
	src := NewSource(strings.NewReader(in))

	rec, err := src.Record()
	if err != nil {
		t.Fatalf("first record: %v", err)
	}
	if rec.(map[string]interface{})["user_id"] != "u1" {
		t.Fatalf("unexpected first record: %v", rec)
	}

	if _, err := src.Record(); err != nil {
		t.Fatalf("second record (after blank line): %v", err)
	}

	_, err = src.Record()
	if !bdk.IsBadRecord(err) {
		t.Fatalf("expected bad record error, got: %v", err)
	}

	rec, err = src.Record()
	if err != nil {
		t.Fatalf("source should survive a bad record: %v", err)
	}
	if rec.(map[string]interface{})["user_id"] != "u3" {
		t.Fatalf("unexpected record after bad line: %v", rec)
	}

	if _, err := src.Record(); err != io.EOF {
		t.Fatalf("expected EOF, got: %v", err)
	}
}
