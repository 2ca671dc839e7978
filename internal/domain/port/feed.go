package port

import (
	"context"

	"tradews/internal/domain/model"
)

// FeedPort определяет интерфейс для подключения к потокам сделок бирж
type FeedPort interface {
	// Stream runs the feed's connect/subscribe/read loop until ctx is
	// cancelled, delivering normalized trades on the returned channel.
	// Connection failures are recovered internally; the channel is closed
	// only when ctx ends.
	Stream(ctx context.Context) <-chan model.RawTrade

	Name() string
}
