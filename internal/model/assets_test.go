package model

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestAssetBytesRoundTrip(t *testing.T) {
	original := AssetBytes("hello, judge engine\x00\x01binary")
	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got AssetBytes
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !bytes.Equal(got, original) {
		t.Errorf("round trip mismatch: got %q, want %q", got, original)
	}
}

func TestDecodeAssetEmpty(t *testing.T) {
	got, err := DecodeAsset("")
	if err != nil {
		t.Fatalf("DecodeAsset: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for empty input, got %v", got)
	}
}

func TestDecodeAssetInvalidBase64(t *testing.T) {
	if _, err := DecodeAsset("not base64!!"); err == nil {
		t.Error("expected error for invalid base64")
	}
}
