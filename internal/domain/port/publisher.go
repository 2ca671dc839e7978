package port

import "tradews/internal/domain/model"

// PublisherPort delivers a freshly persisted candle to live subscribers.
// Called by the aggregation cycle strictly after a successful commit.
type PublisherPort interface {
	Publish(payload model.CandlePayload)
}
