// Package store records fills in Postgres for offline analysis. The store
// is optional: a nil *TradeStore is a valid no-op recorder, and insert
// failures are logged and swallowed so they never block the trading path.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"tokenagent/internal/execution"
)

const fillsSchema = `
CREATE TABLE IF NOT EXISTS fills (
	id         BIGSERIAL PRIMARY KEY,
	ts         TIMESTAMPTZ NOT NULL,
	chain      TEXT NOT NULL,
	token      TEXT NOT NULL,
	side       TEXT NOT NULL,
	qty        DOUBLE PRECISION NOT NULL,
	price_usd  DOUBLE PRECISION NOT NULL,
	usd        DOUBLE PRECISION NOT NULL,
	mode       TEXT NOT NULL,
	tx_hash    TEXT
)`

// TradeStore persists fills through a pgx pool.
type TradeStore struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// Open connects and ensures the fills table exists.
func Open(ctx context.Context, dsn string, log zerolog.Logger) (*TradeStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, fillsSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure fills table: %w", err)
	}
	return &TradeStore{pool: pool, log: log}, nil
}

// Record inserts one fill. Safe on a nil receiver.
func (s *TradeStore) Record(f execution.Fill) {
	if s == nil || s.pool == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO fills (ts, chain, token, side, qty, price_usd, usd, mode, tx_hash)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		f.Ts, string(f.Chain), f.Token, string(f.Side), f.Qty, f.PriceUSD, f.USD, string(f.Mode), f.TxHash,
	)
	if err != nil {
		s.log.Warn().Err(err).Msg("fill insert failed")
	}
}

// Close releases the pool. Safe on a nil receiver.
func (s *TradeStore) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}
