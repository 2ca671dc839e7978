package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tradews/internal/domain/model"
	"tradews/internal/domain/port"
)

// AggregationService периодически опустошает буфер сделок и сохраняет свечи.
// One cycle runs to completion before the next tick may fire; instruments are
// processed sequentially, each as an independent unit of work.
type AggregationService struct {
	buffer    port.TradeBufferPort
	storage   port.StoragePort
	publisher port.PublisherPort
	log       *slog.Logger
	symbols   []string
	ticker    *time.Ticker
	done      chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
}

func NewAggregationService(
	buffer port.TradeBufferPort,
	storage port.StoragePort,
	publisher port.PublisherPort,
	log *slog.Logger,
	symbols []string,
) *AggregationService {
	return &AggregationService{
		buffer:    buffer,
		storage:   storage,
		publisher: publisher,
		log:       log,
		symbols:   append([]string{}, symbols...),
		done:      make(chan struct{}),
	}
}

// Start запускает цикл агрегации с указанным интервалом.
func (s *AggregationService) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	s.mu.Lock()
	s.ticker = time.NewTicker(interval)
	s.mu.Unlock()

	s.log.Info("aggregation service starting", "interval", interval.String(), "symbols", len(s.symbols))

	s.wg.Add(1)
	go s.aggregateLoop(ctx)
}

// Stop ends the loop and waits for the final cycle to finish. Safe to call
// more than once.
func (s *AggregationService) Stop() {
	s.mu.Lock()
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	if s.ticker != nil {
		s.ticker.Stop()
	}
	s.mu.Unlock()
	s.log.Info("aggregation service stopped")
}

func (s *AggregationService) aggregateLoop(ctx context.Context) {
	defer s.wg.Done()
	// Финальная агрегация перед выходом, чтобы не терять буфер при остановке.
	defer func() {
		s.log.Info("running final aggregation before exit")
		s.runCycle(context.Background())
	}()

	for {
		select {
		case <-s.ticker.C:
			start := time.Now()
			s.runCycle(ctx)
			s.log.Debug("aggregation cycle completed", "duration", time.Since(start))
		case <-s.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// runCycle drains every configured instrument once. A failure on one
// instrument is reported and the rest still run; the drained trades of the
// failed instrument are lost for this cycle.
func (s *AggregationService) runCycle(ctx context.Context) {
	for _, symbol := range s.symbols {
		if err := s.aggregateSymbol(ctx, symbol); err != nil {
			s.log.Error("aggregation failed", "symbol", symbol, "error", err)
		}
	}
}

func (s *AggregationService) aggregateSymbol(ctx context.Context, symbol string) error {
	trades, err := s.buffer.Drain(ctx, symbol)
	if err != nil {
		return fmt.Errorf("drain: %w", err)
	}
	if len(trades) == 0 {
		return nil
	}

	candle, synthetic := compose(symbol, trades, time.Now().UTC())

	if err := s.storage.SaveAggregate(ctx, candle, synthetic); err != nil {
		return fmt.Errorf("persist: %w", err)
	}

	// Publish strictly after the commit so the push order matches the
	// persistence order.
	s.publisher.Publish(candle.Payload())

	s.log.Info("candle persisted",
		"symbol", candle.Symbol,
		"trades", len(trades),
		"open", candle.Open,
		"close", candle.Close,
		"volume", candle.Volume)
	return nil
}

// compose builds the candle and its synthetic average-price trade from a
// non-empty drained sequence. Open and close come from arrival order, not
// from occurred_at order, so a reordered feed yields the arrival-first and
// arrival-last prices; the window bounds still come from min/max trade time.
func compose(symbol string, trades []model.RawTrade, now time.Time) (model.Candle, model.SyntheticTrade) {
	open := trades[0].Price
	closePrice := trades[len(trades)-1].Price
	high := trades[0].Price
	low := trades[0].Price
	start := trades[0].OccurredAt
	end := trades[0].OccurredAt
	volume := decimal.Zero
	priceSum := decimal.Zero

	for _, t := range trades {
		if t.Price.GreaterThan(high) {
			high = t.Price
		}
		if t.Price.LessThan(low) {
			low = t.Price
		}
		if t.OccurredAt.Before(start) {
			start = t.OccurredAt
		}
		if t.OccurredAt.After(end) {
			end = t.OccurredAt
		}
		volume = volume.Add(t.Quantity)
		priceSum = priceSum.Add(t.Price)
	}

	avgPrice := priceSum.Div(decimal.NewFromInt(int64(len(trades))))
	instrument := strings.ToUpper(symbol)

	candle := model.Candle{
		Symbol:      instrument,
		WindowStart: start,
		WindowEnd:   end,
		Open:        open,
		Close:       closePrice,
		High:        high,
		Low:         low,
		Volume:      volume,
	}
	synthetic := model.SyntheticTrade{
		Symbol:     instrument,
		Price:      avgPrice,
		Quantity:   volume,
		RecordedAt: now,
	}
	return candle, synthetic
}
