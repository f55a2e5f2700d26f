package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps client state in the client_state table created by db.CreateSchema.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (p *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := p.pool.QueryRow(ctx, `
		SELECT value FROM client_state
		WHERE key = $1 AND (expires_at IS NULL OR expires_at > NOW())
	`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query client_state %s: %w", key, err)
	}
	return value, nil
}

func (p *PostgresStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt *time.Time
	if ttl > 0 {
		t := time.Now().Add(ttl).UTC()
		expiresAt = &t
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO client_state (key, value, updated_at, expires_at)
		VALUES ($1, $2, NOW(), $3)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at,
			expires_at = EXCLUDED.expires_at
	`, key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("upsert client_state %s: %w", key, err)
	}
	return nil
}

func (p *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM client_state WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete client_state %s: %w", key, err)
	}
	return nil
}

// PurgeExpired deletes rows whose expiry has passed.
func (p *PostgresStore) PurgeExpired(ctx context.Context) (int, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM client_state WHERE expires_at IS NOT NULL AND expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("purge client_state: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
