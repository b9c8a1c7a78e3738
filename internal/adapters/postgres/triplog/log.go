package triplog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eastbay-carpool/tokenbot/internal/ports/out/triplog"
)

// Log is a Postgres implementation of triplog.Log.
type Log struct {
	pool *pgxpool.Pool
}

func NewLog(pool *pgxpool.Pool) *Log {
	return &Log{pool: pool}
}

func (l *Log) Append(ctx context.Context, e triplog.Entry) error {
	if l.pool == nil {
		return errors.New("nil postgres pool")
	}
	passengers := make([]string, 0, len(e.Passengers))
	for _, p := range e.Passengers {
		passengers = append(passengers, string(p))
	}
	deltas := make(map[string]string, len(e.Deltas))
	for name, d := range e.Deltas {
		deltas[string(name)] = d.String()
	}
	_, err := l.pool.Exec(ctx, `
		INSERT INTO carpool_trips (trip_id, team_id, reported_by, driver, passengers, deltas, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		e.TripID,
		string(e.Org),
		string(e.ReportedBy),
		string(e.Driver),
		passengers,
		deltas,
		e.CreatedAt.UTC(),
	)
	return err
}
