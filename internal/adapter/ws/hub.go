package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"tradews/internal/domain/model"
)

// Hub owns the subscriber registry for the shared trades topic. All registry
// mutation happens on the Run goroutine, so connects, disconnects and
// publishes never race. Every instrument's candles fan out to every
// subscriber; instrument-specific state is a client-initiated pull.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
	log        *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run serves the registry until ctx is cancelled, then tears down every live
// subscriber connection. Teardown closes the client's done channel, never its
// send channel: readPump also sends on send, and a close here would race it.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				delete(h.clients, client)
				close(client.done)
			}
			h.log.Info("broadcast hub stopped")
			return

		case client := <-h.register:
			h.clients[client] = true
			h.log.Debug("subscriber joined", "subscribers", len(h.clients))

		case client := <-h.unregister:
			// Idempotent: a client may unregister after a failed send
			// already removed it.
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.done)
				h.log.Debug("subscriber left", "subscribers", len(h.clients))
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow or dead subscriber: drop it, the rest still
					// receive the message.
					delete(h.clients, client)
					close(client.done)
					h.log.Warn("dropping unresponsive subscriber")
				}
			}
		}
	}
}

// Publish delivers a candle payload to every currently registered
// subscriber. Calls for one instrument arrive in persistence order and are
// delivered in that order.
func (h *Hub) Publish(payload model.CandlePayload) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("failed to marshal candle payload", "symbol", payload.Symbol, "error", err)
		return
	}
	select {
	case h.broadcast <- data:
	case <-h.done:
		// Hub already stopped; nobody is left to deliver to.
		h.log.Debug("candle published after hub stop", "symbol", payload.Symbol)
	}
}
