package service

import (
	"context"
	"log/slog"
	"sync/atomic"

	"tradews/internal/domain/port"
)

// IngestionService consumes the normalized trade stream and stages each
// trade in the buffer under its lower-cased symbol. Trades violating the
// price/quantity invariant are rejected and counted, never aggregated.
type IngestionService struct {
	feed     port.FeedPort
	buffer   port.TradeBufferPort
	log      *slog.Logger
	rejected atomic.Int64
}

func NewIngestionService(feed port.FeedPort, buffer port.TradeBufferPort, log *slog.Logger) *IngestionService {
	return &IngestionService{
		feed:   feed,
		buffer: buffer,
		log:    log,
	}
}

// Run blocks until ctx is cancelled and the feed's stream closes.
func (s *IngestionService) Run(ctx context.Context) {
	s.log.Info("ingestion started", "feed", s.feed.Name())

	for trade := range s.feed.Stream(ctx) {
		if !trade.Price.IsPositive() || !trade.Quantity.IsPositive() {
			s.rejected.Add(1)
			s.log.Debug("rejected non-positive trade",
				"symbol", trade.Symbol, "price", trade.Price, "quantity", trade.Quantity)
			continue
		}

		if err := s.buffer.Append(ctx, trade.Symbol, trade); err != nil {
			s.log.Error("failed to buffer trade", "symbol", trade.Symbol, "error", err)
		}
	}

	s.log.Info("ingestion stopped", "feed", s.feed.Name())
}

// Rejected reports how many trades failed the positivity invariant.
func (s *IngestionService) Rejected() int64 {
	return s.rejected.Load()
}
