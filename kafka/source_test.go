package kafka

import (
	"testing"
)

func TestDecodeAvroValueRejectsBadMagic(t *testing.T) {
	src := NewConfluentSource()
	if _, err := src.decodeAvroValueWithSchemaRegistry([]byte{1, 0, 0, 0, 1, 2, 3, 4}); err == nil {
		t.Fatal("expected an error for a non-zero magic byte")
	}
	if _, err := src.decodeAvroValueWithSchemaRegistry([]byte{0, 0}); err == nil {
		t.Fatal("expected an error for a truncated value")
	}
}
