package settingsrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/eastbay-carpool/tokenbot/internal/domain"
	"github.com/eastbay-carpool/tokenbot/internal/ports/out/settingsrepo"
)

// Repo is a Postgres implementation of settingsrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Get(ctx context.Context, org domain.OrgID) (domain.Settings, error) {
	if r.pool == nil {
		return domain.Settings{}, errors.New("nil postgres pool")
	}
	var (
		logChannel string
		tripCost   string
		newCredit  string
		botToken   string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT log_channel_name, trip_cost::text, new_user_credit::text, bot_api_token
		FROM carpool_settings
		WHERE team_id = $1
	`, string(org)).Scan(&logChannel, &tripCost, &newCredit, &botToken)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Settings{}, settingsrepo.ErrNotFound
		}
		return domain.Settings{}, err
	}
	tc, err := decimal.NewFromString(tripCost)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("parse trip_cost %q: %w", tripCost, err)
	}
	nc, err := decimal.NewFromString(newCredit)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("parse new_user_credit %q: %w", newCredit, err)
	}
	return domain.Settings{
		Org:            org,
		LogChannelName: logChannel,
		TripCost:       tc,
		NewUserCredit:  nc,
		BotAPIToken:    botToken,
	}, nil
}

func (r *Repo) Put(ctx context.Context, s domain.Settings) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO carpool_settings (team_id, log_channel_name, trip_cost, new_user_credit, bot_api_token)
		VALUES ($1, $2, $3::numeric, $4::numeric, $5)
		ON CONFLICT (team_id) DO UPDATE
		SET log_channel_name = EXCLUDED.log_channel_name,
		    trip_cost = EXCLUDED.trip_cost,
		    new_user_credit = EXCLUDED.new_user_credit,
		    bot_api_token = EXCLUDED.bot_api_token
	`,
		string(s.Org),
		s.LogChannelName,
		s.TripCost.String(),
		s.NewUserCredit.String(),
		s.BotAPIToken,
	)
	return err
}
