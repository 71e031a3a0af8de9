// Package hashcache memoizes CRC32 digests of game binaries in a small
// SQLite database keyed by path, size, and modification time. The
// downgrader re-validates multi-gigabyte executables on every run, so
// unchanged files must not be re-read.
package hashcache

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/afero"

	"github.com/collective-modding/cm-toolkit/internal/fileutils"
	"github.com/collective-modding/cm-toolkit/internal/perf"
)

// FileName is the cache database, kept next to settings.json.
const FileName = "hashes.db"

// MemoryDSN opens a throwaway in-process cache.
const MemoryDSN = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS hashes (
	path TEXT NOT NULL,
	size INTEGER NOT NULL,
	mtime INTEGER NOT NULL,
	skip_header INTEGER NOT NULL,
	max_chunks INTEGER NOT NULL,
	crc32 TEXT NOT NULL,
	PRIMARY KEY (path, size, mtime, skip_header, max_chunks)
);
`

// Cache memoizes digests. A nil Cache is valid and computes directly, so
// callers may ignore an Open failure and lose only the memoization.
type Cache struct {
	db *sql.DB
}

// Open creates or opens the cache database at path.
func Open(path string) (*Cache, error) {
	region := perf.StartRegion("io.hashcache.open")
	defer region.End()

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open hash cache: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize hash cache: %w", err)
	}

	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// CRC32 returns the digest of the file at path, serving unchanged files
// from the cache.
func (c *Cache) CRC32(ctx context.Context, fs afero.Fs, path string) (string, error) {
	return c.CRC32WithOptions(ctx, fs, path, fileutils.HashOptions{})
}

// CRC32WithOptions is CRC32 with hashing options, which form part of the
// cache key since they change the digest.
func (c *Cache) CRC32WithOptions(ctx context.Context, fs afero.Fs, path string, options fileutils.HashOptions) (string, error) {
	if c == nil || c.db == nil {
		return fileutils.CRC32WithOptions(ctx, fs, path, options)
	}

	info, err := fs.Stat(path)
	if err != nil {
		return "", err
	}
	size := info.Size()
	mtime := info.ModTime().UnixNano()

	var cached string
	err = c.db.QueryRowContext(ctx,
		`SELECT crc32 FROM hashes WHERE path = ? AND size = ? AND mtime = ? AND skip_header = ? AND max_chunks = ?`,
		path, size, mtime, options.SkipHeader, options.MaxChunks,
	).Scan(&cached)
	if err == nil {
		return cached, nil
	}

	// Misses and cache read errors both fall through to computing; a
	// broken cache costs speed, never correctness.
	sum, err := fileutils.CRC32WithOptions(ctx, fs, path, options)
	if err != nil {
		return "", err
	}

	_, _ = c.db.ExecContext(ctx,
		`DELETE FROM hashes WHERE path = ? AND (size != ? OR mtime != ?)`,
		path, size, mtime)
	_, _ = c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO hashes (path, size, mtime, skip_header, max_chunks, crc32) VALUES (?, ?, ?, ?, ?, ?)`,
		path, size, mtime, options.SkipHeader, options.MaxChunks, sum)

	return sum, nil
}
