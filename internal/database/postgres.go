package database

import (
	"context"
	"fmt"
	"time"

	"dm-relay/internal/errs"
	"dm-relay/internal/models"
	"dm-relay/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id          BIGSERIAL PRIMARY KEY,
	sender      TEXT NOT NULL,
	recipient   TEXT NOT NULL,
	message     TEXT NOT NULL,
	"timestamp" TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

type PostgresDB struct {
	pool *pgxpool.Pool
}

// NewPostgresDB connects, pings and makes sure the messages table exists.
// Every failure is reported as errs.ErrStoreUnavailable.
func NewPostgresDB(ctx context.Context, databaseURL string) (*PostgresDB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrStoreUnavailable, err)
	}

	db := &PostgresDB{pool: pool}
	if err := db.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: failed to ping database: %w", errs.ErrStoreUnavailable, err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: failed to create schema: %w", errs.ErrStoreUnavailable, err)
	}

	l := logger.L()
	l.Info().Msg("connected to database")
	return db, nil
}

func (db *PostgresDB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

func (db *PostgresDB) Close() error {
	db.pool.Close()
	return nil
}

func (db *PostgresDB) AppendMessage(ctx context.Context, msg *models.ChatMessage) error {
	query := `
		INSERT INTO messages (sender, recipient, message, "timestamp")
		VALUES ($1, $2, $3, COALESCE($4, NOW()))
		RETURNING id, "timestamp"`

	var ts *time.Time
	if !msg.Timestamp.IsZero() {
		ts = &msg.Timestamp
	}

	err := db.pool.QueryRow(ctx, query, msg.Sender, msg.Recipient, msg.Message, ts).Scan(&msg.ID, &msg.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}
