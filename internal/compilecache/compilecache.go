// Package compilecache remembers the compiled Program for a given
// (language, code) pair so a resubmission of identical code skips
// recompilation. Grounded on internal/common/db/provider.go's Provider
// indirection (callers depend on an interface, not *sql.DB directly) and
// internal/common/db/mysql.go's connection-pool construction.
package compilecache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sort"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"judgeengine/internal/compiler"
	"judgeengine/internal/model"
)

// ErrNotFound is returned by Get on a cache miss.
var ErrNotFound = errors.New("compilecache: entry not found")

// Entry is what gets cached: the compiled program plus any diagnostic
// output produced during compilation (so a cache hit can still surface
// warnings to the caller).
type Entry struct {
	Program compiler.Program
	Stdout  string
	Stderr  string
}

// Provider is the storage seam compilecache depends on, mirroring the
// teacher's db.Provider indirection so tests can swap in a fake without a
// real MySQL instance.
type Provider interface {
	Get(ctx context.Context, key string) (Entry, error)
	Put(ctx context.Context, key string, entry Entry) error
}

// Key derives the cache key for a submission's code under a language.
func Key(language string, code model.CodeTree) string {
	h := sha256.New()
	h.Write([]byte(language))
	h.Write([]byte{0})
	hashNode(h, code)
	return hex.EncodeToString(h.Sum(nil))
}

// hashNode walks a (possibly nested) CodeTree in sorted-per-level order so
// the digest is stable regardless of Go's randomized map iteration.
func hashNode(h interface{ Write([]byte) (int, error) }, node map[string]interface{}) {
	names := make([]string, 0, len(node))
	for name := range node {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		h.Write([]byte(name))
		h.Write([]byte{0})
		switch v := node[name].(type) {
		case string:
			h.Write([]byte(v))
		case map[string]interface{}:
			hashNode(h, v)
		case model.CodeTree:
			hashNode(h, v)
		}
		h.Write([]byte{0})
	}
}

// MySQLProvider is the MySQL-backed Provider. Grounded on
// internal/common/db/mysql.go's *sql.DB pool construction.
type MySQLProvider struct {
	db *sql.DB
}

// NewMySQLProvider opens a connection pool against dsn and ensures the
// backing table exists.
func NewMySQLProvider(ctx context.Context, dsn string) (*MySQLProvider, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	const schema = `CREATE TABLE IF NOT EXISTS compile_cache (
		cache_key VARCHAR(64) PRIMARY KEY,
		entry_json MEDIUMTEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, err
	}

	return &MySQLProvider{db: db}, nil
}

func (p *MySQLProvider) Get(ctx context.Context, key string) (Entry, error) {
	var raw string
	err := p.db.QueryRowContext(ctx, `SELECT entry_json FROM compile_cache WHERE cache_key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, err
	}
	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func (p *MySQLProvider) Put(ctx context.Context, key string, entry Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO compile_cache (cache_key, entry_json) VALUES (?, ?)
		 ON DUPLICATE KEY UPDATE entry_json = VALUES(entry_json)`,
		key, string(raw))
	return err
}

func (p *MySQLProvider) Close() error {
	return p.db.Close()
}

// Cache is the public entry point cmd/judge-worker wires into the
// pipeline's compile step.
type Cache struct {
	provider Provider
}

func New(provider Provider) *Cache {
	return &Cache{provider: provider}
}

func (c *Cache) Get(ctx context.Context, language string, code model.CodeTree) (Entry, bool, error) {
	entry, err := c.provider.Get(ctx, Key(language, code))
	if errors.Is(err, ErrNotFound) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	return entry, true, nil
}

func (c *Cache) Put(ctx context.Context, language string, code model.CodeTree, entry Entry) error {
	return c.provider.Put(ctx, Key(language, code), entry)
}
