package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/omada-guest/backend/internal/model"
)

func (db *Postgres) EnsureAuditSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS guest_events (
			id BIGSERIAL PRIMARY KEY,
			event_type TEXT NOT NULL CHECK (event_type IN ('created', 'deleted', 'expired_deleted')),
			site_id TEXT NOT NULL,
			account_id TEXT NOT NULL DEFAULT '',
			user_name TEXT NOT NULL DEFAULT '',
			expiration_time_ms BIGINT NOT NULL DEFAULT 0,
			run_id TEXT NOT NULL DEFAULT '',
			actor TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`CREATE INDEX IF NOT EXISTS guest_events_created_at_idx ON guest_events(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS guest_events_site_idx ON guest_events(site_id, created_at DESC)`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

func (db *Postgres) InsertGuestEvent(ctx context.Context, event model.GuestEvent) (int64, error) {
	var id int64
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO guest_events (event_type, site_id, account_id, user_name, expiration_time_ms, run_id, actor)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`,
		event.EventType,
		event.SiteID,
		event.AccountID,
		event.UserName,
		event.ExpirationTimeMs,
		event.RunID,
		event.Actor,
	).Scan(&id)
	return id, err
}

func (db *Postgres) ListGuestEvents(ctx context.Context, limit int) ([]model.GuestEvent, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, event_type, site_id, account_id, user_name, expiration_time_ms, run_id, actor, created_at
		FROM guest_events
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.GuestEvent, error) {
		var e model.GuestEvent
		err := row.Scan(
			&e.ID,
			&e.EventType,
			&e.SiteID,
			&e.AccountID,
			&e.UserName,
			&e.ExpirationTimeMs,
			&e.RunID,
			&e.Actor,
			&e.CreatedAt,
		)
		return e, err
	})
}
