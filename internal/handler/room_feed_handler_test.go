package handler_test

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/webchat-api/internal/dto"
	"github.com/noah-isme/webchat-api/internal/events"
	"github.com/noah-isme/webchat-api/internal/handler"
	"github.com/noah-isme/webchat-api/internal/service"
)

func feedApp(rooms service.ChatRoomService, id uint, role string) *fiber.App {
	feed := service.NewRoomFeed(testLogger())
	return newApp("/api/v1/ws/chat-rooms", handler.NewRoomFeedHandler(feed, rooms, testLogger()), id, role)
}

func upgradeRequest(target string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	return req
}

func TestRoomFeedHandlerRequiresUpgrade(t *testing.T) {
	rooms := &mockChatRoomService{}

	resp, err := feedApp(rooms, 2, "user").Test(httptest.NewRequest(http.MethodGet, "/api/v1/ws/chat-rooms/1", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
	require.Empty(t, rooms.calls)
}

func TestRoomFeedHandlerRejectsAnonymous(t *testing.T) {
	rooms := &mockChatRoomService{}

	resp, err := feedApp(rooms, 0, "").Test(upgradeRequest("/api/v1/ws/chat-rooms/1"), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRoomFeedHandlerRejectsNonParticipants(t *testing.T) {
	rooms := &mockChatRoomService{room: dto.ChatRoomResponse{
		ID:           1,
		Participants: []dto.ParticipantResponse{{ID: 3, Username: "carol"}},
	}}

	resp, err := feedApp(rooms, 2, "user").Test(upgradeRequest("/api/v1/ws/chat-rooms/1"), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	var body envelope
	decodeResponse(t, resp, &body)
	require.Equal(t, "Only participants may follow this room.", body.Message)
	require.Equal(t, uint(1), rooms.lastRoomID)
}

func TestRoomFeedHandlerReportsMissingRoom(t *testing.T) {
	rooms := &mockChatRoomService{err: &service.Error{Kind: service.ErrNotFound, Message: "Room with id 9 not found."}}

	resp, err := feedApp(rooms, 2, "user").Test(upgradeRequest("/api/v1/ws/chat-rooms/9"), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

// startServer serves app on a loopback port and returns its websocket base URL.
func startServer(t *testing.T, app *fiber.App) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		if err := app.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Logf("fiber listener stopped: %v", err)
		}
		close(done)
	}()

	t.Cleanup(func() {
		_ = app.Shutdown()
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	})

	return "ws://" + listener.Addr().String()
}

func dialFeed(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}
	conn, resp, err := dialer.Dial(url, http.Header{"X-Correlation-ID": {"feed-test"}})
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn
}

func TestRoomFeedHandlerStreamsEventsAndPings(t *testing.T) {
	rooms := &mockChatRoomService{room: dto.ChatRoomResponse{
		ID:           1,
		Participants: []dto.ParticipantResponse{{ID: 3, Username: "carol"}},
	}}
	feed := service.NewRoomFeed(testLogger(), service.WithPingInterval(20*time.Millisecond))
	app := newApp("/api/v1/ws/chat-rooms", handler.NewRoomFeedHandler(feed, rooms, testLogger()), 3, "user")
	base := startServer(t, app)

	conn := dialFeed(t, base+"/api/v1/ws/chat-rooms/1")
	defer conn.Close()

	pings := make(chan string, 8)
	conn.SetPingHandler(func(data string) error {
		select {
		case pings <- data:
		default:
		}
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	require.Eventually(t, func() bool { return feed.Subscribers(1) == 1 }, 2*time.Second, 10*time.Millisecond)

	feed.Deliver(events.MessageEvent{Action: events.ActionCreated, MessageID: 5, RoomID: 1, SenderID: 3, Content: "hello world", CorrelationID: "corr-5"})
	feed.Deliver(events.MessageEvent{Action: events.ActionCreated, MessageID: 6, RoomID: 2, Content: "other room"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	kind, frame, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, kind)

	var received events.MessageEvent
	require.NoError(t, json.Unmarshal(frame, &received))
	require.Equal(t, events.ActionCreated, received.Action)
	require.Equal(t, uint(5), received.MessageID)
	require.Equal(t, "hello world", received.Content)
	require.Equal(t, "corr-5", received.CorrelationID)

	// Control frames are only handled while reading.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case payload := <-pings:
		require.Equal(t, "keepalive", payload)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a keepalive ping")
	}

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return feed.Subscribers(1) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestRoomFeedHandlerDropsKickedFollower(t *testing.T) {
	rooms := &mockChatRoomService{room: dto.ChatRoomResponse{
		ID:           1,
		Participants: []dto.ParticipantResponse{{ID: 3, Username: "carol"}},
	}}
	feed := service.NewRoomFeed(testLogger())
	app := newApp("/api/v1/ws/chat-rooms", handler.NewRoomFeedHandler(feed, rooms, testLogger()), 3, "user")
	base := startServer(t, app)

	conn := dialFeed(t, base+"/api/v1/ws/chat-rooms/1")
	defer conn.Close()
	require.Eventually(t, func() bool { return feed.Subscribers(1) == 1 }, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, 1, feed.Kick(1, 3))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)

	var netErr net.Error
	if errors.As(err, &netErr) {
		require.False(t, netErr.Timeout(), "connection should be closed by the server, not time out")
	}
	require.Zero(t, feed.Subscribers(1))
}
