package websocket

import (
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewClientWithConnection tests client creation with a mock connection
func TestNewClientWithConnection(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	hub := NewHub(logger)
	mock := NewMockConnection()

	client := NewClientWithConnection(hub, mock, logger)

	assert.NotNil(t, client)
	assert.Len(t, client.id, 36) // UUID
	assert.Equal(t, hub, client.hub)
	assert.Equal(t, "127.0.0.1:8080", client.remoteAddr)
	assert.Equal(t, 256, cap(client.send))
	assert.Equal(t, defaultClientTimings(), client.timings)
	assert.False(t, client.connectedAt.IsZero())
}

// TestClientTimingsFromHub verifies that clients pick up configured timings
func TestClientTimingsFromHub(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	hub := NewHub(logger)
	hub.ConfigureTimings(5*time.Second, 20*time.Second)

	client := NewClientWithConnection(hub, NewMockConnection(), logger)

	assert.Equal(t, 5*time.Second, client.timings.pingPeriod)
	assert.Equal(t, 20*time.Second, client.timings.pongWait)
	assert.Equal(t, defaultWriteWait, client.timings.writeWait)
}

// TestClientReadPump tests reading messages until the connection ends
func TestClientReadPump(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	hub := NewHub(logger)
	hub.Start()
	defer hub.Stop()

	mock := NewMockConnection()
	mock.AddReadMessage(websocket.TextMessage, []byte(`{"type":"heartbeat"}`), nil)
	mock.AddReadMessage(websocket.TextMessage, []byte("hello"), nil)

	client := NewClientWithConnection(hub, mock, logger)
	hub.Register(client)
	time.Sleep(50 * time.Millisecond)
	<-client.send // Clear connection message

	go client.ReadPump()

	// The pump drains both messages, hits the end-of-messages error and
	// unregisters
	require.Eventually(t, func() bool {
		return hub.ClientCount() == 0
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, int64(2), client.messagesReceived)
	assert.Equal(t, int64(len(`{"type":"heartbeat"}`)+len("hello")), client.bytesReceived)

	mock.mu.Lock()
	closed := mock.Closed
	mock.mu.Unlock()
	assert.True(t, closed)

	// The read deadline and limit were applied
	assert.Equal(t, int64(maxMessageSize), mock.ReadLimit)
	assert.NotNil(t, mock.PongHandler)
}

// TestClientWritePump tests writing queued messages and the close handshake
func TestClientWritePump(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	hub := NewHub(logger)
	mock := NewMockConnection()
	client := NewClientWithConnection(hub, mock, logger)

	client.send <- []byte("first")
	client.send <- []byte("second")

	go client.WritePump()
	time.Sleep(50 * time.Millisecond)

	close(client.send)
	time.Sleep(50 * time.Millisecond)

	written := mock.GetWrittenMessages()
	require.Len(t, written, 3)
	assert.Equal(t, websocket.TextMessage, written[0].Type)
	assert.Equal(t, []byte("first"), written[0].Data)
	assert.Equal(t, websocket.TextMessage, written[1].Type)
	assert.Equal(t, []byte("second"), written[1].Data)
	assert.Equal(t, websocket.CloseMessage, written[2].Type)
}

// TestClientWritePumpError tests that a write failure stops the pump
func TestClientWritePumpError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	hub := NewHub(logger)
	mock := NewMockConnection()
	mock.WriteMessageFunc = func(messageType int, data []byte) error {
		return errors.New("broken pipe")
	}
	client := NewClientWithConnection(hub, mock, logger)

	client.send <- []byte("doomed")

	go client.WritePump()
	time.Sleep(50 * time.Millisecond)

	mock.mu.Lock()
	closed := mock.Closed
	mock.mu.Unlock()
	assert.True(t, closed)
	assert.Empty(t, mock.GetWrittenMessages())
}

// TestClientWritePumpPing tests that pings go out at the configured period
func TestClientWritePumpPing(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	hub := NewHub(logger)
	hub.ConfigureTimings(20*time.Millisecond, 50*time.Millisecond)

	mock := NewMockConnection()
	client := NewClientWithConnection(hub, mock, logger)

	go client.WritePump()
	time.Sleep(70 * time.Millisecond)

	close(client.send)
	time.Sleep(20 * time.Millisecond)

	var pings int
	for _, msg := range mock.GetWrittenMessages() {
		if msg.Type == websocket.PingMessage {
			pings++
		}
	}
	assert.GreaterOrEqual(t, pings, 1)
}
