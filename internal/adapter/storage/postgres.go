package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"tradews/internal/domain/model"
)

type PostgresAdapter struct {
	db *sql.DB
}

func NewPostgresAdapter(connStr string) (*PostgresAdapter, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresAdapter{db: db}, nil
}

func (a *PostgresAdapter) InitSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS candles (
		id SERIAL PRIMARY KEY,
		symbol VARCHAR(20) NOT NULL,
		start_time TIMESTAMPTZ NOT NULL,
		end_time TIMESTAMPTZ NOT NULL,
		open_price NUMERIC(20,10) NOT NULL,
		close_price NUMERIC(20,10) NOT NULL,
		high_price NUMERIC(20,10) NOT NULL,
		low_price NUMERIC(20,10) NOT NULL,
		volume NUMERIC(20,10) NOT NULL,
		created_at TIMESTAMPTZ DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_candles_symbol_start_time ON candles(symbol, start_time);
	CREATE TABLE IF NOT EXISTS trades (
		id SERIAL PRIMARY KEY,
		symbol VARCHAR(20) NOT NULL,
		price NUMERIC(20,10) NOT NULL,
		quantity NUMERIC(20,10) NOT NULL,
		trade_time TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_trades_symbol_trade_time ON trades(symbol, trade_time);
	`
	_, err := a.db.ExecContext(ctx, query)
	return err
}

// SaveAggregate writes the candle and its synthetic trade in one transaction.
func (a *PostgresAdapter) SaveAggregate(ctx context.Context, candle model.Candle, trade model.SyntheticTrade) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO candles (symbol, start_time, end_time, open_price, close_price, high_price, low_price, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		candle.Symbol, candle.WindowStart, candle.WindowEnd,
		candle.Open, candle.Close, candle.High, candle.Low, candle.Volume,
	)
	if err != nil {
		return fmt.Errorf("failed to insert candle: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO trades (symbol, price, quantity, trade_time)
		VALUES ($1, $2, $3, $4)`,
		trade.Symbol, trade.Price, trade.Quantity, trade.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert synthetic trade: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit aggregate: %w", err)
	}
	return nil
}

func (a *PostgresAdapter) LatestCandle(ctx context.Context, symbol string) (*model.Candle, error) {
	row := a.db.QueryRowContext(ctx, `
		SELECT symbol, start_time, end_time, open_price, close_price, high_price, low_price, volume
		FROM candles
		WHERE symbol = $1
		ORDER BY id DESC
		LIMIT 1`, symbol)

	var c model.Candle
	err := row.Scan(&c.Symbol, &c.WindowStart, &c.WindowEnd, &c.Open, &c.Close, &c.High, &c.Low, &c.Volume)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNoCandle
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest candle for %s: %w", symbol, err)
	}
	return &c, nil
}

func (a *PostgresAdapter) CandlesInRange(ctx context.Context, symbol string, from, to time.Time) ([]model.Candle, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT symbol, start_time, end_time, open_price, close_price, high_price, low_price, volume
		FROM candles
		WHERE symbol = $1 AND start_time BETWEEN $2 AND $3
		ORDER BY start_time`, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query candles for %s: %w", symbol, err)
	}
	defer rows.Close()

	var out []model.Candle
	for rows.Next() {
		var c model.Candle
		if err := rows.Scan(&c.Symbol, &c.WindowStart, &c.WindowEnd, &c.Open, &c.Close, &c.High, &c.Low, &c.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan candle row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (a *PostgresAdapter) Ping(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *PostgresAdapter) Close() error {
	return a.db.Close()
}
