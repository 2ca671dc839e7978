package buffer

import (
	"context"
	"sync"

	"tradews/internal/domain/model"
)

const defaultRetention = 1000

// MemoryBuffer keeps per-instrument trade sequences in process memory. Each
// instrument owns its own lock, so appends and drains on independent
// instruments never block each other.
type MemoryBuffer struct {
	retention int
	mu        sync.RWMutex
	sequences map[string]*sequence
}

type sequence struct {
	mu     sync.Mutex
	trades []model.RawTrade
}

func NewMemoryBuffer(retention int) *MemoryBuffer {
	if retention <= 0 {
		retention = defaultRetention
	}
	return &MemoryBuffer{
		retention: retention,
		sequences: make(map[string]*sequence),
	}
}

func (b *MemoryBuffer) seq(symbol string) *sequence {
	b.mu.RLock()
	s := b.sequences[symbol]
	b.mu.RUnlock()
	if s != nil {
		return s
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if s = b.sequences[symbol]; s == nil {
		s = &sequence{}
		b.sequences[symbol] = s
	}
	return s
}

func (b *MemoryBuffer) Append(ctx context.Context, symbol string, trade model.RawTrade) error {
	s := b.seq(symbol)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trades = append(s.trades, trade)

	// Retention is a count cap, not a time window: keep the most recent
	// retention+1 entries, evicting the oldest first.
	if max := b.retention + 1; len(s.trades) > max {
		trimmed := make([]model.RawTrade, max)
		copy(trimmed, s.trades[len(s.trades)-max:])
		s.trades = trimmed
	}
	return nil
}

func (b *MemoryBuffer) Drain(ctx context.Context, symbol string) ([]model.RawTrade, error) {
	s := b.seq(symbol)
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.trades
	s.trades = nil
	return out, nil
}

func (b *MemoryBuffer) Ping(ctx context.Context) error {
	return nil
}

func (b *MemoryBuffer) Close() error {
	return nil
}
