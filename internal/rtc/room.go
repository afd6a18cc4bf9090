package rtc

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"aria/internal/async"
	"aria/internal/logging"
)

// attributeUpdate is the wire frame for whole-mapping attribute sends.
type attributeUpdate struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

const frameTypeUpdateAttributes = "update_attributes"

// RoomClient is a minimal participant connection to the media backend's
// signal channel. It carries connection state and the participant attribute
// channel; media tracks are out of scope.
type RoomClient struct {
	logger logging.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	state   ConnectionState
	onState func(ConnectionState)
}

// NewRoomClient constructs a disconnected room client.
func NewRoomClient(logger logging.Logger) *RoomClient {
	return &RoomClient{
		logger: logging.OrNop(logger),
		state:  StateDisconnected,
	}
}

// OnStateChange registers a callback invoked after every state transition.
// The callback runs without the client lock held.
func (c *RoomClient) OnStateChange(fn func(ConnectionState)) {
	c.mu.Lock()
	c.onState = fn
	c.mu.Unlock()
}

// State returns the current connection state.
func (c *RoomClient) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *RoomClient) setState(state ConnectionState) {
	c.mu.Lock()
	if c.state == state {
		c.mu.Unlock()
		return
	}
	c.state = state
	fn := c.onState
	c.mu.Unlock()
	c.logger.Info("Room connection state: %s", state)
	if fn != nil {
		fn(state)
	}
}

// Connect dials the signal endpoint with the issued credential. A failed
// dial leaves the client in StateFailed and returns the error.
func (c *RoomClient) Connect(ctx context.Context, url, token string) error {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return fmt.Errorf("room client already connected")
	}
	c.mu.Unlock()

	c.setState(StateConnecting)
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("dial %s: status %d: %w", url, resp.StatusCode, err)
		}
		c.setState(StateFailed)
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.setState(StateConnected)

	async.Go(c.logger, "room.read", func() { c.readLoop(conn) })
	return nil
}

// readLoop drains inbound frames until the connection drops. Inbound
// payloads are ignored; the loop exists to detect disconnects.
func (c *RoomClient) readLoop(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			c.logger.Debug("Room read loop ended: %v", err)
			break
		}
	}
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	c.setState(StateDisconnected)
}

// SetAttributes replaces the local participant's attribute mapping on the
// backend with one whole-mapping frame.
func (c *RoomClient) SetAttributes(ctx context.Context, attributes map[string]string) error {
	c.mu.Lock()
	conn := c.conn
	state := c.state
	c.mu.Unlock()
	if conn == nil || state != StateConnected {
		return fmt.Errorf("room client not connected")
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}
	return conn.WriteJSON(attributeUpdate{
		Type:       frameTypeUpdateAttributes,
		Attributes: attributes,
	})
}

// Close tears down the connection. Safe to call repeatedly.
func (c *RoomClient) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	err := conn.Close()
	c.setState(StateDisconnected)
	return err
}
