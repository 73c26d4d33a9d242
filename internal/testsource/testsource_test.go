package testsource

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"judgeengine/internal/cache"
	"judgeengine/internal/model"
	"judgeengine/internal/storage"
)

type fakeResolver struct {
	meta model.ProblemMeta
	err  error
}

func (f fakeResolver) Resolve(ctx context.Context, problem string) (model.ProblemMeta, error) {
	return f.meta, f.err
}

type fakeObjectStorage struct {
	objects map[string][]byte
}

func (f fakeObjectStorage) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	data, ok := f.objects[bucket+"/"+key]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

func (f fakeObjectStorage) StatObject(ctx context.Context, bucket, key string) (storage.ObjectInfo, error) {
	data, ok := f.objects[bucket+"/"+key]
	if !ok {
		return storage.ObjectInfo{}, errors.New("not found")
	}
	return storage.ObjectInfo{Size: int64(len(data))}, nil
}

type fakeCache struct {
	values map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[string]string)}
}

func (c *fakeCache) Get(ctx context.Context, key string) (string, error) {
	v, ok := c.values[key]
	if !ok {
		return "", cache.ErrNotFound
	}
	return v, nil
}

func (c *fakeCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.values[key] = value
	return nil
}

func (c *fakeCache) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.values, k)
	}
	return nil
}

func (c *fakeCache) Exists(ctx context.Context, keys ...string) (int64, error) {
	var n int64
	for _, k := range keys {
		if _, ok := c.values[k]; ok {
			n++
		}
	}
	return n, nil
}

func (c *fakeCache) Ping(ctx context.Context) error { return nil }
func (c *fakeCache) Close() error                   { return nil }

func key32() []byte {
	return []byte("a-32-byte-problem-encryption-key")[:32]
}

func TestFetchTestsDecryptsAndDecompresses(t *testing.T) {
	k := key32()
	var nonce [nonceSize]byte
	copy(nonce[:], "unit-test-nonce-bytes!!")

	tests := []model.TestCase{{Input: "1\n", Target: "1\n"}}
	blob, err := EncodeBundle(tests, k, nonce)
	if err != nil {
		t.Fatalf("EncodeBundle: %v", err)
	}

	objects := fakeObjectStorage{objects: map[string][]byte{
		bucket + "/problems/p1.bin": blob,
	}}
	resolver := fakeResolver{meta: model.ProblemMeta{Key: "problems/p1.bin", EncryptionKey: k}}

	src := New(resolver, objects, newFakeCache())
	got, err := src.FetchTests(context.Background(), "p1", "")
	if err != nil {
		t.Fatalf("FetchTests: %v", err)
	}
	if len(got) != 1 || got[0].Target != "1\n" {
		t.Errorf("got %+v", got)
	}
}

func TestFetchTestsEmptyProblemIsNoop(t *testing.T) {
	src := New(fakeResolver{}, fakeObjectStorage{}, newFakeCache())
	got, err := src.FetchTests(context.Background(), "", "")
	if err != nil || got != nil {
		t.Errorf("got (%v, %v), want (nil, nil)", got, err)
	}
}

func TestFetchTestsUsesCacheOnSecondCall(t *testing.T) {
	k := key32()
	var nonce [nonceSize]byte
	tests := []model.TestCase{{Input: "x", Target: "y"}}
	blob, _ := EncodeBundle(tests, k, nonce)

	objects := fakeObjectStorage{objects: map[string][]byte{bucket + "/p.bin": blob}}
	resolver := fakeResolver{meta: model.ProblemMeta{Key: "p.bin", EncryptionKey: k}}
	c := newFakeCache()
	src := New(resolver, objects, c)

	if _, err := src.FetchTests(context.Background(), "p1", ""); err != nil {
		t.Fatalf("first fetch: %v", err)
	}

	// Remove the backing object; a cache hit should still succeed.
	delete(objects.objects, bucket+"/p.bin")
	got, err := src.FetchTests(context.Background(), "p1", "")
	if err != nil {
		t.Fatalf("second fetch (expected cache hit): %v", err)
	}
	if len(got) != 1 || got[0].Input != "x" {
		t.Errorf("got %+v", got)
	}
}

func TestFetchTestsOverrideEncryptionKeyWins(t *testing.T) {
	resolverKey := key32()
	overrideKey := []byte("override-32-byte-encryption-key!")[:32]
	var nonce [nonceSize]byte
	tests := []model.TestCase{{Input: "a", Target: "b"}}
	blob, _ := EncodeBundle(tests, overrideKey, nonce)

	objects := fakeObjectStorage{objects: map[string][]byte{bucket + "/p.bin": blob}}
	resolver := fakeResolver{meta: model.ProblemMeta{Key: "p.bin", EncryptionKey: resolverKey}}
	src := New(resolver, objects, newFakeCache())

	got, err := src.FetchTests(context.Background(), "p1", string(overrideKey))
	if err != nil {
		t.Fatalf("FetchTests: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %+v", got)
	}
}

func TestFetchTestsWrongKeyFails(t *testing.T) {
	k := key32()
	wrong := []byte("wrong-wrong-wrong-wrong-wrong-32")[:32]
	var nonce [nonceSize]byte
	blob, _ := EncodeBundle([]model.TestCase{{Input: "a", Target: "b"}}, k, nonce)

	objects := fakeObjectStorage{objects: map[string][]byte{bucket + "/p.bin": blob}}
	resolver := fakeResolver{meta: model.ProblemMeta{Key: "p.bin", EncryptionKey: wrong}}
	src := New(resolver, objects, newFakeCache())

	if _, err := src.FetchTests(context.Background(), "p1", ""); err == nil {
		t.Error("expected decrypt failure with wrong key")
	}
}

func TestFetchTestsResolveErrorPropagates(t *testing.T) {
	resolver := fakeResolver{err: errors.New("no such problem")}
	src := New(resolver, fakeObjectStorage{}, newFakeCache())
	if _, err := src.FetchTests(context.Background(), "missing", ""); err == nil {
		t.Error("expected resolve error to propagate")
	}
}
