package idempotency

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eastbay-carpool/tokenbot/internal/ports/out/idempotency"
)

// Store is a Postgres implementation of idempotency.Store.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	if s.pool == nil {
		return idempotency.Record{}, false, errors.New("nil postgres pool")
	}
	var rec idempotency.Record
	err := s.pool.QueryRow(ctx, `
		SELECT status_code, content_type, body, created_at
		FROM carpool_idempotency
		WHERE team_id = $1 AND user_name = $2 AND trigger_id = $3 AND body_hash = $4
	`, string(fp.Org), string(fp.User), fp.TriggerID, fp.BodyHash).
		Scan(&rec.StatusCode, &rec.ContentType, &rec.Body, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return idempotency.Record{}, false, nil
		}
		return idempotency.Record{}, false, err
	}
	return rec, true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	if s.pool == nil {
		return errors.New("nil postgres pool")
	}
	// Concurrent retries may race the first Put; keep the earliest record.
	_, err := s.pool.Exec(ctx, `
		INSERT INTO carpool_idempotency (team_id, user_name, trigger_id, body_hash, status_code, content_type, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (team_id, user_name, trigger_id, body_hash) DO NOTHING
	`,
		string(fp.Org),
		string(fp.User),
		fp.TriggerID,
		fp.BodyHash,
		rec.StatusCode,
		rec.ContentType,
		rec.Body,
		rec.CreatedAt.UTC(),
	)
	return err
}
