package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	apperrors "github.com/louisbranch/throne-of-dust/internal/platform/errors"
	"github.com/louisbranch/throne-of-dust/internal/platform/timeouts"
)

// handleFeed upgrades to a websocket and streams the caller's raid events
// until either side closes.
func (h *Handler) handleFeed(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		h.writeError(w, r, apperrors.New(apperrors.CodeNotFound, "raid feed disabled"))
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	events, cancelSub := h.hub.Subscribe(playerID(r))
	defer cancelSub()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reader: clients send nothing meaningful; a read error means they left.
	go func() {
		defer cancel()
		conn.SetReadLimit(512)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(timeouts.FeedPing)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(time.Second))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(timeouts.FeedWrite))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(timeouts.FeedWrite)); err != nil {
				return
			}
		}
	}
}

func invalidQuery(field string, err error) error {
	return apperrors.WithMetadata(apperrors.CodeInvalidArgument,
		fmt.Sprintf("%s: %v", field, err), map[string]string{"Field": field})
}
