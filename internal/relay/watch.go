package relay

import (
	"context"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"parley/internal/domain"
)

// Watch opens a websocket to the relay and streams envelopes for userID as
// they arrive. The channel closes when ctx is cancelled or the socket drops;
// callers needing resilience reconnect by calling Watch again.
func (c *Client) Watch(ctx context.Context, userID string) (<-chan domain.Envelope, error) {
	wsURL := toWebsocketURL(c.base) + "/ws/" + url.PathEscape(userID)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, err
	}

	out := make(chan domain.Envelope)
	go func() {
		defer close(out)
		defer conn.Close()
		// Unblock ReadJSON when the caller gives up.
		go func() {
			<-ctx.Done()
			conn.Close()
		}()
		for {
			var env domain.Envelope
			if err := conn.ReadJSON(&env); err != nil {
				if ctx.Err() == nil {
					c.log.Warn("relay watch closed", zap.String("user", userID), zap.Error(err))
				}
				return
			}
			select {
			case out <- env:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func toWebsocketURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	default:
		return base
	}
}
