// Package sqlite persists the embedding matrix between runs, keyed by
// corpus fingerprint and model name. An unchanged corpus then skips
// re-embedding entirely on startup.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/warraq-labs/warraq/internal/adapters/driven/vectorcache/sqlite/migrations"
	"github.com/warraq-labs/warraq/internal/core/domain"
	"github.com/warraq-labs/warraq/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorCache = (*Store)(nil)

// Store is the SQLite-backed embedding cache. It holds at most one
// matrix; storing a new one replaces the old in a single transaction,
// so readers never observe meta and vectors from different corpora.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (and if needed creates) the cache database at path.
// An empty path defaults to ~/.warraq/embeddings.db.
func NewStore(path string) (*Store, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, ".warraq", "embeddings.db")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache database: %w", err)
	}

	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the cached matrix when fingerprint and model match the
// stored entry exactly. Every failure mode, including a corrupt or
// truncated cache, reports domain.ErrCacheMiss; the caller recomputes.
func (s *Store) Load(ctx context.Context, fingerprint, model string) ([][]float32, error) {
	var (
		storedFingerprint string
		storedModel       string
		dims              int
		rowCount          int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT fingerprint, model, dims, row_count FROM matrix_meta WHERE id = 1`,
	).Scan(&storedFingerprint, &storedModel, &dims, &rowCount)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, domain.ErrCacheMiss
	case err != nil:
		return nil, fmt.Errorf("%w: read meta: %v", domain.ErrCacheMiss, err)
	}

	if storedFingerprint != fingerprint || storedModel != model {
		return nil, domain.ErrCacheMiss
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT embedding FROM vectors ORDER BY ordinal`,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: read vectors: %v", domain.ErrCacheMiss, err)
	}
	defer rows.Close()

	vectors := make([][]float32, 0, rowCount)
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("%w: scan vector: %v", domain.ErrCacheMiss, err)
		}
		vec := decodeVector(blob)
		if len(vec) != dims {
			return nil, fmt.Errorf("%w: vector width %d, expected %d", domain.ErrCacheMiss, len(vec), dims)
		}
		vectors = append(vectors, vec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate vectors: %v", domain.ErrCacheMiss, err)
	}
	if len(vectors) != rowCount {
		return nil, fmt.Errorf("%w: %d vectors for recorded count %d", domain.ErrCacheMiss, len(vectors), rowCount)
	}

	return vectors, nil
}

// Store replaces the cached matrix in one transaction.
func (s *Store) Store(ctx context.Context, fingerprint, model string, vectors [][]float32) error {
	dims := 0
	if len(vectors) > 0 {
		dims = len(vectors[0])
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cache transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM vectors`); err != nil {
		return fmt.Errorf("clear vectors: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM matrix_meta`); err != nil {
		return fmt.Errorf("clear meta: %w", err)
	}

	insert, err := tx.PrepareContext(ctx,
		`INSERT INTO vectors (ordinal, embedding) VALUES (?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare vector insert: %w", err)
	}
	defer insert.Close()

	for i, vec := range vectors {
		if len(vec) != dims {
			return fmt.Errorf("vector %d width %d, expected %d", i, len(vec), dims)
		}
		if _, err := insert.ExecContext(ctx, i, encodeVector(vec)); err != nil {
			return fmt.Errorf("insert vector %d: %w", i, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO matrix_meta (id, fingerprint, model, dims, row_count) VALUES (1, ?, ?, ?, ?)`,
		fingerprint, model, dims, len(vectors),
	); err != nil {
		return fmt.Errorf("insert meta: %w", err)
	}

	return tx.Commit()
}

// migrate applies embedded .up.sql files newer than the recorded
// schema version, in file-name order.
func (s *Store) migrate(fsys embed.FS) error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	var current int
	row := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`)
	if err := row.Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("read migrations directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= current {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// encodeVector packs a vector as little-endian float32 bits.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector unpacks a little-endian float32 blob.
func decodeVector(data []byte) []float32 {
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec
}
