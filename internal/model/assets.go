package model

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// AssetBytes carries binary test/output data over the wire as
// base64(gzip(bytes)), decoded back to raw bytes in memory.
type AssetBytes []byte

// MarshalJSON gzip-compresses then base64-encodes the raw bytes.
func (a AssetBytes) MarshalJSON() ([]byte, error) {
	encoded, err := EncodeAsset([]byte(a))
	if err != nil {
		return nil, err
	}
	return json.Marshal(encoded)
}

// UnmarshalJSON base64-decodes then gzip-decompresses into raw bytes.
func (a *AssetBytes) UnmarshalJSON(data []byte) error {
	var encoded string
	if err := json.Unmarshal(data, &encoded); err != nil {
		return err
	}
	decoded, err := DecodeAsset(encoded)
	if err != nil {
		return err
	}
	*a = decoded
	return nil
}

// EncodeAsset gzip-compresses raw bytes and returns the base64 form used on the wire.
func EncodeAsset(raw []byte) (string, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(raw); err != nil {
		return "", fmt.Errorf("model: gzip asset: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("model: gzip asset close: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeAsset reverses EncodeAsset.
func DecodeAsset(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, nil
	}
	compressed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("model: base64 decode asset: %w", err)
	}
	r, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("model: gzip reader asset: %w", err)
	}
	defer r.Close()
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("model: gzip read asset: %w", err)
	}
	return raw, nil
}
