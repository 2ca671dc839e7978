package buffer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"tradews/internal/domain/model"
)

// RedisBuffer stores each instrument's sequence as a Redis list under
// trades:<symbol>. LPUSH puts the newest trade at the head and LTRIM
// 0..retention caps the list; Drain reverses back to arrival order so both
// buffer backends honor the same contract.
type RedisBuffer struct {
	client    *redis.Client
	retention int64
}

type bufferedTrade struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Quantity  decimal.Decimal `json:"quantity"`
	TradeTime int64           `json:"trade_time"`
}

func NewRedisBuffer(addr, password string, db, retention int) (*RedisBuffer, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if retention <= 0 {
		retention = defaultRetention
	}

	return &RedisBuffer{
		client:    client,
		retention: int64(retention),
	}, nil
}

func key(symbol string) string {
	return "trades:" + symbol
}

func (b *RedisBuffer) Append(ctx context.Context, symbol string, trade model.RawTrade) error {
	data, err := json.Marshal(bufferedTrade{
		Symbol:    trade.Symbol,
		Price:     trade.Price,
		Quantity:  trade.Quantity,
		TradeTime: trade.OccurredAt.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal trade: %w", err)
	}

	pipe := b.client.TxPipeline()
	pipe.LPush(ctx, key(symbol), data)
	pipe.LTrim(ctx, key(symbol), 0, b.retention)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append trade to buffer: %w", err)
	}
	return nil
}

func (b *RedisBuffer) Drain(ctx context.Context, symbol string) ([]model.RawTrade, error) {
	// LRANGE and DEL run inside one MULTI/EXEC so an append can never land
	// between the read and the clear.
	pipe := b.client.TxPipeline()
	rangeCmd := pipe.LRange(ctx, key(symbol), 0, -1)
	pipe.Del(ctx, key(symbol))
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to drain buffer for %s: %w", symbol, err)
	}

	items := rangeCmd.Val()
	out := make([]model.RawTrade, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		var bt bufferedTrade
		if err := json.Unmarshal([]byte(items[i]), &bt); err != nil {
			return nil, fmt.Errorf("failed to unmarshal buffered trade for %s: %w", symbol, err)
		}
		out = append(out, model.RawTrade{
			Symbol:     bt.Symbol,
			Price:      bt.Price,
			Quantity:   bt.Quantity,
			OccurredAt: time.UnixMilli(bt.TradeTime),
		})
	}
	return out, nil
}

func (b *RedisBuffer) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *RedisBuffer) Close() error {
	return b.client.Close()
}
