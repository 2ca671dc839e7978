package port

import (
	"context"
	"time"

	"tradews/internal/domain/model"
)

type StoragePort interface {
	// SaveAggregate persists a candle and its synthetic average-price trade
	// as one atomic unit: a reader sees both rows or neither.
	SaveAggregate(ctx context.Context, candle model.Candle, trade model.SyntheticTrade) error

	// LatestCandle returns the most recently persisted candle for the
	// instrument, or model.ErrNoCandle when none exists yet.
	LatestCandle(ctx context.Context, symbol string) (*model.Candle, error)

	// CandlesInRange returns candles whose window start falls within
	// [from, to], oldest first.
	CandlesInRange(ctx context.Context, symbol string, from, to time.Time) ([]model.Candle, error)

	Ping(ctx context.Context) error
	Close() error
}
