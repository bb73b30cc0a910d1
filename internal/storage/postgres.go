package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps blobs in a single afs_blobs table. It backs
// deployments where the service has no durable local disk.
type PostgresStore struct {
	pool *pgxpool.Pool
}

const blobsSchema = `
CREATE TABLE IF NOT EXISTS afs_blobs (
    name        TEXT PRIMARY KEY,
    data        BYTEA NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// NewPostgresStore connects to Postgres and ensures the blobs table exists.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := pool.Exec(ctx, blobsSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure blobs table: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Upload inserts or replaces the object under name.
func (s *PostgresStore) Upload(ctx context.Context, name string, data []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO afs_blobs (name, data, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		name, data)
	return err
}

// Download reads the object under name.
func (s *PostgresStore) Download(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM afs_blobs WHERE name = $1`, name).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("object not found: %s", name)
		}
		return nil, err
	}
	return data, nil
}

// Exists reports whether an object is stored under name.
func (s *PostgresStore) Exists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM afs_blobs WHERE name = $1)`, name).Scan(&exists)
	return exists, err
}

// List returns all objects whose name starts with prefix.
func (s *PostgresStore) List(ctx context.Context, prefix string) ([]FileInfo, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT name, octet_length(data), updated_at FROM afs_blobs
		 WHERE name LIKE $1 || '%' ORDER BY name`, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []FileInfo
	for rows.Next() {
		var f FileInfo
		if err := rows.Scan(&f.Name, &f.Size, &f.LastModified); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// Delete removes the object under name. Deleting a missing object is not
// an error.
func (s *PostgresStore) Delete(ctx context.Context, name string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM afs_blobs WHERE name = $1`, name)
	return err
}
