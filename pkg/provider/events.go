package provider

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

// EventType identifies a provider session event
type EventType string

const (
	EventSignedIn       EventType = "SIGNED_IN"
	EventSignedOut      EventType = "SIGNED_OUT"
	EventTokenRefreshed EventType = "TOKEN_REFRESHED"

	// EventInitialSession is the synthetic event the provider emits when a
	// subscription attaches. The session manager ignores it: bootstrap has
	// already reconstructed state from the token store, and acting on it
	// would race the cookie-stored token against the provider's cache.
	EventInitialSession EventType = "INITIAL_SESSION"
)

// Event is one message from the provider's session event stream. Token is the
// access token the event concerns; for TOKEN_REFRESHED that is the new token,
// and PreviousToken names the one it supersedes so the session it belongs to
// can still be found.
type Event struct {
	Type          EventType `json:"event"`
	Token         string    `json:"access_token,omitempty"`
	PreviousToken string    `json:"previous_token,omitempty"`
}

// reconnectDelay paces redials after a dropped event stream
const reconnectDelay = 5 * time.Second

// Subscribe dials the provider's WebSocket event stream and delivers events
// on the returned channel until ctx is cancelled. The connection is redialed
// after failures; the channel is closed on cancellation. Returns a nil
// channel when no events URL is configured.
func (c *Client) Subscribe(ctx context.Context) <-chan Event {
	if c.eventsURL == "" {
		return nil
	}

	events := make(chan Event, 16)
	go func() {
		defer close(events)
		for {
			if err := c.streamEvents(ctx, events); err != nil {
				c.logger.WithError(err).Warn("provider event stream dropped")
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectDelay):
			}
		}
	}()
	return events
}

// streamEvents runs one WebSocket connection to completion
func (c *Client) streamEvents(ctx context.Context, events chan<- Event) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.eventsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Unblock ReadMessage when the context is cancelled
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			c.logger.WithError(err).Debug("discarding malformed provider event")
			continue
		}
		if ev.Type == "" {
			continue
		}

		select {
		case events <- ev:
		case <-ctx.Done():
			return nil
		}
	}
}
