package http

import (
	"net/http"

	"github.com/LLIu33/swot/internal/domain"
)

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeFeed upgrades the request to a websocket and streams the topic forest after every
// change, starting with the current one.
func (h *TopicHandler) ServeFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	updates, cancel, err := h.service.Subscribe(r.Context())
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorResponse]{Type: "error", Payload: errorResponse{Error: err.Error()}})
		return
	}
	defer cancel()

	closed := make(chan struct{})
	// The feed is one-way; reading only detects the client going away.
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case forest, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundMessage[[]*domain.Topic]{Type: "topics", Payload: forest}); err != nil {
				h.logger.Warn("ws write error", "error", err)
				return
			}
		case <-closed:
			return
		}
	}
}
