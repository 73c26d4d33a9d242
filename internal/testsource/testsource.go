// Package testsource resolves a SubmissionRequest's opaque problem
// reference to a bundle of test cases. Grounded on original_source/
// models.py's SyncRequest (bucket/key/encryption_key triple) and
// coderunners/services.py's problem-fetch step: gzip-decompress +
// decrypt a blob fetched from object storage, then unmarshal a JSON
// array of test cases.
package testsource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/klauspost/compress/gzip"

	"judgeengine/internal/cache"
	"judgeengine/internal/model"
	"judgeengine/internal/storage"
)

const (
	// cacheTTL bounds how long a decrypted bundle stays in the cache:
	// long enough to absorb a burst of resubmissions against the same
	// problem, short enough that a problem re-sync is picked up promptly.
	cacheTTL = 10 * time.Minute
	bucket   = "judge-problem-bundles"
)

// Resolver maps a problem reference to its storage key and decryption key.
// Grounded on the original's {bucket, key, encryption_key} triple — in this
// engine the bucket is fixed and only the object key and per-problem key
// vary, so resolution only needs to produce those two.
type Resolver interface {
	Resolve(ctx context.Context, problem string) (model.ProblemMeta, error)
}

// Source implements pipeline.TestSource: it resolves, fetches, decrypts,
// decompresses, and parses a problem's test bundle, consulting a cache
// first and caching the decrypted, parsed result for subsequent lookups.
type Source struct {
	resolver Resolver
	objects  storage.ObjectStorage
	cache    cache.Cache
}

func New(resolver Resolver, objects storage.ObjectStorage, c cache.Cache) *Source {
	return &Source{resolver: resolver, objects: objects, cache: c}
}

// FetchTests resolves problem, fetches its bundle (from cache when
// present), and returns its test cases. The encryptionKey argument lets a
// request override the resolver's own key lookup, matching
// SubmissionRequest.EncryptionKey's "caller-supplied key wins" precedent
// elsewhere in the request.
func (s *Source) FetchTests(ctx context.Context, problem, encryptionKey string) ([]model.TestCase, error) {
	if problem == "" {
		return nil, nil
	}

	cacheKey := "testsource:bundle:" + problem
	if raw, err := s.cache.Get(ctx, cacheKey); err == nil {
		var tests []model.TestCase
		if jsonErr := json.Unmarshal([]byte(raw), &tests); jsonErr == nil {
			return tests, nil
		}
		// Corrupt cache entry: fall through and refetch from storage.
	}

	meta, err := s.resolver.Resolve(ctx, problem)
	if err != nil {
		return nil, fmt.Errorf("testsource: resolve %q: %w", problem, err)
	}

	key := meta.EncryptionKey
	if encryptionKey != "" {
		key = []byte(encryptionKey)
	}

	obj, err := s.objects.GetObject(ctx, bucket, meta.Key)
	if err != nil {
		return nil, fmt.Errorf("testsource: fetch %q: %w", meta.Key, err)
	}
	defer obj.Close()

	blob, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("testsource: read %q: %w", meta.Key, err)
	}

	tests, err := decodeBundle(blob, key)
	if err != nil {
		return nil, fmt.Errorf("testsource: decode %q: %w", meta.Key, err)
	}

	if raw, err := json.Marshal(tests); err == nil {
		_ = s.cache.Set(ctx, cacheKey, string(raw), cacheTTL)
	}

	return tests, nil
}

// decodeBundle reverses the sync side's compress-then-encrypt pipeline:
// decrypt, gzip-decompress, JSON-unmarshal a []model.TestCase.
func decodeBundle(blob, key []byte) ([]model.TestCase, error) {
	plain, err := decrypt(blob, key)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}

	gz, err := gzip.NewReader(bytes.NewReader(plain))
	if err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	defer gz.Close()

	raw, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("gunzip: %w", err)
	}

	var tests []model.TestCase
	if err := json.Unmarshal(raw, &tests); err != nil {
		return nil, fmt.Errorf("unmarshal test cases: %w", err)
	}
	return tests, nil
}

const nonceSize = 24

// decrypt opens a nacl/secretbox-sealed blob: a 24-byte nonce prefix
// followed by the sealed box. The key must be exactly 32 bytes.
func decrypt(blob, key []byte) ([]byte, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}
	if len(blob) < nonceSize {
		return nil, fmt.Errorf("blob too short to contain a nonce")
	}

	var nonce [nonceSize]byte
	copy(nonce[:], blob[:nonceSize])
	var secretKey [32]byte
	copy(secretKey[:], key)

	plain, ok := secretbox.Open(nil, blob[nonceSize:], &nonce, &secretKey)
	if !ok {
		return nil, fmt.Errorf("secretbox: authentication failed")
	}
	return plain, nil
}

// Encrypt seals plaintext with the caller-supplied nonce (prepended to the
// returned blob), for tests and for
// tooling that needs to produce bundles this Source can read.
func Encrypt(plain, key []byte, nonce [nonceSize]byte) ([]byte, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}
	var secretKey [32]byte
	copy(secretKey[:], key)
	sealed := secretbox.Seal(nonce[:], plain, &nonce, &secretKey)
	return sealed, nil
}

// EncodeBundle reverses decodeBundle: JSON-marshal, gzip-compress,
// secretbox-encrypt. Exported for tests and offline bundle-authoring
// tooling.
func EncodeBundle(tests []model.TestCase, key []byte, nonce [nonceSize]byte) ([]byte, error) {
	raw, err := json.Marshal(tests)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(raw); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}

	return Encrypt(buf.Bytes(), key, nonce)
}
