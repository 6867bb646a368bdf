package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Verify at compile time that BlobStore implements all interfaces.
var (
	_ ObjectReader = (*BlobStore)(nil)
	_ ObjectWriter = (*BlobStore)(nil)
	_ Linker       = (*BlobStore)(nil)
)

// BlobStore keeps artifacts in a local SQLite database. It is the default
// backend for development and single-node deployments; download links are
// signed URLs served by the API.
type BlobStore struct {
	db     *sql.DB
	signer *Signer
}

// New creates a new BlobStore and initialises the schema. signer may be nil,
// in which case PresignGet returns an error.
func New(db *sql.DB, signer *Signer) (*BlobStore, error) {
	s := &BlobStore{db: db, signer: signer}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// currentSchemaVersion is bumped whenever the schema changes.
// Add a new migration function in the migrations slice below.
const currentSchemaVersion = 3

func (s *BlobStore) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var version int
	err := s.db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := s.db.Exec(`INSERT INTO schema_version (version) VALUES (0)`); err != nil {
			return fmt.Errorf("init schema version: %w", err)
		}
		version = 0
	} else if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	// Index 0 = migration from v0 to v1, etc.
	migrations := []func() error{
		s.migrateV1, // v0 → v1: objects table
		s.migrateV2, // v1 → v2: updated_at index
		s.migrateV3, // v2 → v3: drop the unused updated_at index
	}

	for i := version; i < len(migrations); i++ {
		if err := migrations[i](); err != nil {
			return fmt.Errorf("migration v%d→v%d: %w", i, i+1, err)
		}
		if _, err := s.db.Exec(`UPDATE schema_version SET version = ?`, i+1); err != nil {
			return fmt.Errorf("update schema version to %d: %w", i+1, err)
		}
	}
	return nil
}

func (s *BlobStore) migrateV1() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS objects (
		key          TEXT PRIMARY KEY,
		content_type TEXT NOT NULL,
		data         BLOB NOT NULL,
		size         INTEGER NOT NULL,
		updated_at   TEXT NOT NULL
	);`)
	return err
}

func (s *BlobStore) migrateV2() error {
	_, err := s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_objects_updated ON objects(updated_at)`)
	return err
}

func (s *BlobStore) migrateV3() error {
	_, err := s.db.Exec(`DROP INDEX IF EXISTS idx_objects_updated`)
	return err
}

// ---------------------------------------------------------------------------
// Objects
// ---------------------------------------------------------------------------

// Put inserts or replaces the object stored under key in a single statement.
func (s *BlobStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return errors.New("store: empty key")
	}
	if data == nil {
		data = []byte{}
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO objects (key, content_type, data, size, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			content_type = excluded.content_type,
			data = excluded.data,
			size = excluded.size,
			updated_at = excluded.updated_at`,
		key, contentType, data, len(data), now,
	)
	return err
}

// Get returns the bytes stored under key, or ErrNotFound.
func (s *BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM objects WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// GetWithType returns the object bytes together with their content type.
func (s *BlobStore) GetWithType(ctx context.Context, key string) ([]byte, string, error) {
	var (
		data []byte
		ct   string
	)
	err := s.db.QueryRowContext(ctx, `SELECT data, content_type FROM objects WHERE key = ?`, key).Scan(&data, &ct)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}
	return data, ct, nil
}

// Exists reports whether an object is stored under key.
func (s *BlobStore) Exists(ctx context.Context, key string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM objects WHERE key = ?`, key).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// PresignGet returns a signed link to the API's artifact download route.
func (s *BlobStore) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	if s.signer == nil {
		return "", errors.New("store: no link signer configured")
	}
	return s.signer.Sign(key, ttl), nil
}
