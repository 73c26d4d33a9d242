package storage

import "testing"

func TestNewMinIORejectsEmptyEndpoint(t *testing.T) {
	if _, err := NewMinIO("", "key", "secret", false); err == nil {
		t.Error("expected error for empty endpoint")
	}
}

func TestNewMinIOAcceptsValidEndpoint(t *testing.T) {
	if _, err := NewMinIO("localhost:9000", "key", "secret", false); err != nil {
		t.Fatalf("NewMinIO: %v", err)
	}
}
