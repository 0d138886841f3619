package service

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/webchat-api/internal/events"
	"github.com/noah-isme/webchat-api/internal/observability"
)

const (
	roomFeedBufferSize   = 32
	roomFeedPingInterval = 30 * time.Second
)

// FeedConnectionOptions wraps metadata extracted during the websocket upgrade.
type FeedConnectionOptions struct {
	RoomID        uint
	UserID        uint
	CorrelationID string
	Context       context.Context
}

// RoomFeed fans message events out to live subscribers of each room.
type RoomFeed struct {
	mu           sync.RWMutex
	rooms        map[uint]map[*feedSubscriber]struct{}
	pingInterval time.Duration
	logger       zerolog.Logger
}

type feedSubscriber struct {
	send   chan events.MessageEvent
	roomID uint
	userID uint
	once   sync.Once
}

// RoomFeedOption customises a RoomFeed.
type RoomFeedOption func(*RoomFeed)

// WithPingInterval overrides how often idle connections are pinged.
func WithPingInterval(interval time.Duration) RoomFeedOption {
	return func(f *RoomFeed) {
		if interval > 0 {
			f.pingInterval = interval
		}
	}
}

// NewRoomFeed constructs an empty hub.
func NewRoomFeed(logger zerolog.Logger, opts ...RoomFeedOption) *RoomFeed {
	f := &RoomFeed{
		rooms:        make(map[uint]map[*feedSubscriber]struct{}),
		pingInterval: roomFeedPingInterval,
		logger:       logger.With().Str("component", "room_feed").Logger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Subscribe registers a subscriber for roomID. The returned cancel func
// unregisters it and closes the channel. The channel is also closed when the
// user is kicked from the room.
func (f *RoomFeed) Subscribe(roomID, userID uint) (<-chan events.MessageEvent, func()) {
	sub := &feedSubscriber{send: make(chan events.MessageEvent, roomFeedBufferSize), roomID: roomID, userID: userID}

	f.mu.Lock()
	if _, ok := f.rooms[roomID]; !ok {
		f.rooms[roomID] = make(map[*feedSubscriber]struct{})
	}
	f.rooms[roomID][sub] = struct{}{}
	f.mu.Unlock()

	observability.RoomFeedClients().Inc()
	f.logger.Debug().Uint("room_id", roomID).Uint("user_id", userID).Msg("feed subscriber connected")

	return sub.send, func() { f.detach(sub) }
}

func (f *RoomFeed) detach(sub *feedSubscriber) {
	sub.once.Do(func() {
		f.mu.Lock()
		if subs, ok := f.rooms[sub.roomID]; ok {
			delete(subs, sub)
			if len(subs) == 0 {
				delete(f.rooms, sub.roomID)
			}
		}
		close(sub.send)
		f.mu.Unlock()

		observability.RoomFeedClients().Dec()
		f.logger.Debug().Uint("room_id", sub.roomID).Uint("user_id", sub.userID).Msg("feed subscriber disconnected")
	})
}

// Kick disconnects every subscription userID holds on roomID and reports how many were closed.
func (f *RoomFeed) Kick(roomID, userID uint) int {
	return f.closeWhere(roomID, func(sub *feedSubscriber) bool { return sub.userID == userID })
}

// CloseRoom disconnects every subscriber of roomID.
func (f *RoomFeed) CloseRoom(roomID uint) int {
	return f.closeWhere(roomID, func(*feedSubscriber) bool { return true })
}

func (f *RoomFeed) closeWhere(roomID uint, match func(*feedSubscriber) bool) int {
	f.mu.RLock()
	var doomed []*feedSubscriber
	for sub := range f.rooms[roomID] {
		if match(sub) {
			doomed = append(doomed, sub)
		}
	}
	f.mu.RUnlock()

	for _, sub := range doomed {
		f.detach(sub)
	}
	if len(doomed) > 0 {
		f.logger.Info().Uint("room_id", roomID).Int("closed", len(doomed)).Msg("feed subscribers removed from room")
	}
	return len(doomed)
}

// Deliver broadcasts event to the subscribers of its room. Slow subscribers drop events.
func (f *RoomFeed) Deliver(event events.MessageEvent) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for sub := range f.rooms[event.RoomID] {
		select {
		case sub.send <- event:
		default:
			f.logger.Warn().Uint("room_id", event.RoomID).Uint("user_id", sub.userID).Msg("dropping feed event for slow subscriber")
		}
	}
}

// Subscribers reports the number of live subscribers of roomID.
func (f *RoomFeed) Subscribers(roomID uint) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.rooms[roomID])
}

// ServeConnection streams room events to conn until either side closes.
func (f *RoomFeed) ServeConnection(conn *websocket.Conn, opts FeedConnectionOptions) {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	feed, cancel := f.Subscribe(opts.RoomID, opts.UserID)
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	logger := f.logger.With().Uint("room_id", opts.RoomID).Str("correlation_id", opts.CorrelationID).Logger()
	ticker := time.NewTicker(f.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-feed:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				logger.Debug().Err(err).Msg("feed write loop terminated")
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				logger.Debug().Err(err).Msg("feed ping failed")
				return
			}
		case <-closed:
			return
		case <-ctx.Done():
			return
		}
	}
}
