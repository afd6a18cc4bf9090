package rtc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// signalServer accepts one websocket client and relays received frames.
type signalServer struct {
	*httptest.Server
	frames chan []byte
	auth   chan string
}

func newSignalServer(t *testing.T) *signalServer {
	t.Helper()
	s := &signalServer{
		frames: make(chan []byte, 8),
		auth:   make(chan string, 1),
	}
	upgrader := websocket.Upgrader{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.auth <- r.Header.Get("Authorization")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			s.frames <- msg
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *signalServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func waitForState(t *testing.T, client *RoomClient, want ConnectionState) {
	t.Helper()
	require.Eventually(t, func() bool {
		return client.State() == want
	}, time.Second, 5*time.Millisecond)
}

func TestRoomClientConnectAndSetAttributes(t *testing.T) {
	server := newSignalServer(t)
	client := NewRoomClient(nil)

	var transitions []ConnectionState
	done := make(chan struct{})
	client.OnStateChange(func(state ConnectionState) {
		transitions = append(transitions, state)
		if state == StateConnected {
			close(done)
		}
	})

	require.NoError(t, client.Connect(context.Background(), server.wsURL(), "tok-123"))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("never reached connected state")
	}
	assert.Equal(t, []ConnectionState{StateConnecting, StateConnected}, transitions)
	assert.Equal(t, "Bearer tok-123", <-server.auth)

	attrs := map[string]string{"llm_provider": "openai", "voice": "nova"}
	require.NoError(t, client.SetAttributes(context.Background(), attrs))

	select {
	case frame := <-server.frames:
		var update attributeUpdate
		require.NoError(t, json.Unmarshal(frame, &update))
		assert.Equal(t, frameTypeUpdateAttributes, update.Type)
		assert.Equal(t, attrs, update.Attributes)
	case <-time.After(time.Second):
		t.Fatal("server never received attribute frame")
	}

	require.NoError(t, client.Close())
	assert.Equal(t, StateDisconnected, client.State())
	assert.NoError(t, client.Close())
}

func TestRoomClientDialFailure(t *testing.T) {
	client := NewRoomClient(nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := client.Connect(ctx, "ws://127.0.0.1:1/signal", "tok")
	require.Error(t, err)
	assert.Equal(t, StateFailed, client.State())
}

func TestRoomClientSetAttributesWhileDisconnected(t *testing.T) {
	client := NewRoomClient(nil)
	err := client.SetAttributes(context.Background(), map[string]string{"k": "v"})
	assert.Error(t, err)
}

func TestRoomClientDetectsServerDisconnect(t *testing.T) {
	server := newSignalServer(t)
	client := NewRoomClient(nil)

	require.NoError(t, client.Connect(context.Background(), server.wsURL(), "tok"))
	waitForState(t, client, StateConnected)

	server.CloseClientConnections()
	waitForState(t, client, StateDisconnected)
}

func TestRoomClientDoubleConnect(t *testing.T) {
	server := newSignalServer(t)
	client := NewRoomClient(nil)

	require.NoError(t, client.Connect(context.Background(), server.wsURL(), "tok"))
	waitForState(t, client, StateConnected)
	assert.Error(t, client.Connect(context.Background(), server.wsURL(), "tok"))
}
