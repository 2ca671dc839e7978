package port

import (
	"context"

	"tradews/internal/domain/model"
)

// TradeBufferPort is the per-instrument staging area for raw trades awaiting
// aggregation. Append and Drain on the same instrument are mutually
// exclusive: a drained trade is never observed again.
type TradeBufferPort interface {
	// Append adds a trade to the tail of the instrument's sequence and trims
	// it to the configured retention cap, evicting the oldest entries first.
	Append(ctx context.Context, symbol string, trade model.RawTrade) error

	// Drain atomically returns the instrument's full sequence in arrival
	// order and clears it. An instrument with nothing buffered yields an
	// empty sequence.
	Drain(ctx context.Context, symbol string) ([]model.RawTrade, error)

	Ping(ctx context.Context) error
	Close() error
}
