package memberrepo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	postgres "github.com/eastbay-carpool/tokenbot/internal/adapters/postgres"
	"github.com/eastbay-carpool/tokenbot/internal/domain"
	"github.com/eastbay-carpool/tokenbot/internal/ports/out/memberrepo"
)

// Repo is a Postgres implementation of memberrepo.Repository.
//
// Balance arithmetic runs inside SQL (`balance = balance + $n`) so
// concurrent adjustments to the same member never lose updates.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, m domain.Member) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO carpool_members (
			team_id,
			user_name,
			balance,
			aliases,
			created_at,
			updated_at
		) VALUES ($1, $2, $3::numeric, $4, $5, $6)
	`,
		string(m.Org),
		string(m.Name),
		m.Balance.String(),
		m.Aliases,
		m.CreatedAt.UTC(),
		m.UpdatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return memberrepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, org domain.OrgID, name domain.MemberName) (domain.Member, error) {
	if r.pool == nil {
		return domain.Member{}, errors.New("nil postgres pool")
	}
	row := r.pool.QueryRow(ctx, `
		SELECT team_id, user_name, balance::text, aliases, created_at, updated_at
		FROM carpool_members
		WHERE team_id = $1 AND user_name = $2
	`, string(org), string(name))
	return scanMember(row)
}

func (r *Repo) List(ctx context.Context, org domain.OrgID) ([]domain.Member, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT team_id, user_name, balance::text, aliases, created_at, updated_at
		FROM carpool_members
		WHERE team_id = $1
		ORDER BY user_name ASC
	`, string(org))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) AdjustBalance(ctx context.Context, org domain.OrgID, name domain.MemberName, delta decimal.Decimal) (decimal.Decimal, error) {
	if r.pool == nil {
		return decimal.Decimal{}, errors.New("nil postgres pool")
	}
	return adjustOne(ctx, r.pool, org, name, delta)
}

func (r *Repo) AdjustAll(ctx context.Context, org domain.OrgID, deltas []memberrepo.Delta) ([]memberrepo.BalanceChange, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	// Row locks are taken in name order so concurrent settlements with
	// overlapping participants cannot deadlock.
	ordered := append([]memberrepo.Delta(nil), deltas...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Name < ordered[j].Name })

	out := make([]memberrepo.BalanceChange, 0, len(ordered))
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, d := range ordered {
			nb, err := adjustOne(ctx, tx, org, d.Name, d.Amount)
			if err != nil {
				return err
			}
			out = append(out, memberrepo.BalanceChange{Name: d.Name, Delta: d.Amount, NewBalance: nb})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) AppendAlias(ctx context.Context, org domain.OrgID, name domain.MemberName, alias string) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE carpool_members
		SET aliases = array_append(aliases, $3),
		    updated_at = now()
		WHERE team_id = $1 AND user_name = $2
	`, string(org), string(name), alias)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return memberrepo.ErrNotFound
	}
	return nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func adjustOne(ctx context.Context, q querier, org domain.OrgID, name domain.MemberName, delta decimal.Decimal) (decimal.Decimal, error) {
	var raw string
	err := q.QueryRow(ctx, `
		UPDATE carpool_members
		SET balance = balance + $3::numeric,
		    updated_at = now()
		WHERE team_id = $1 AND user_name = $2
		RETURNING balance::text
	`, string(org), string(name), delta.String()).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Decimal{}, memberrepo.ErrNotFound
		}
		return decimal.Decimal{}, err
	}
	nb, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse balance %q: %w", raw, err)
	}
	return nb, nil
}

func scanMember(row pgx.Row) (domain.Member, error) {
	var (
		org       string
		name      string
		balance   string
		aliases   []string
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&org, &name, &balance, &aliases, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Member{}, memberrepo.ErrNotFound
		}
		return domain.Member{}, err
	}
	bal, err := decimal.NewFromString(balance)
	if err != nil {
		return domain.Member{}, fmt.Errorf("parse balance %q: %w", balance, err)
	}
	return domain.Member{
		Org:       domain.OrgID(org),
		Name:      domain.MemberName(name),
		Balance:   bal,
		Aliases:   aliases,
		CreatedAt: createdAt.UTC(),
		UpdatedAt: updatedAt.UTC(),
	}, nil
}
