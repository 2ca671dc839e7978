package usecase

import (
	"context"
	"strings"
	"time"

	"tradews/internal/domain/model"
	"tradews/internal/domain/port"
)

// CandleUseCase is the read side over persisted candles, shared by the
// realtime snapshot path and any external history reader. Instruments are
// canonicalized upper-case at rest, so lookups accept any case.
type CandleUseCase struct {
	storage port.StoragePort
}

func NewCandleUseCase(storage port.StoragePort) *CandleUseCase {
	return &CandleUseCase{storage: storage}
}

func (uc *CandleUseCase) LatestPayload(ctx context.Context, symbol string) (model.CandlePayload, error) {
	candle, err := uc.storage.LatestCandle(ctx, strings.ToUpper(symbol))
	if err != nil {
		return model.CandlePayload{}, err
	}
	return candle.Payload(), nil
}

func (uc *CandleUseCase) History(ctx context.Context, symbol string, from, to time.Time) ([]model.Candle, error) {
	return uc.storage.CandlesInRange(ctx, strings.ToUpper(symbol), from, to)
}
