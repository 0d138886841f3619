package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/webchat-api/internal/events"
)

func TestRoomFeedDeliversToRoomSubscribers(t *testing.T) {
	feed := NewRoomFeed(testLogger())

	general, cancelGeneral := feed.Subscribe(1, 10)
	defer cancelGeneral()
	random, cancelRandom := feed.Subscribe(2, 11)
	defer cancelRandom()

	feed.Deliver(events.MessageEvent{Action: events.ActionCreated, MessageID: 7, RoomID: 1, Content: "hello world"})

	select {
	case event := <-general:
		require.Equal(t, uint(7), event.MessageID)
	default:
		t.Fatal("expected event for room 1 subscriber")
	}

	select {
	case event := <-random:
		t.Fatalf("unexpected event for room 2: %+v", event)
	default:
	}
}

func TestRoomFeedCancelUnsubscribes(t *testing.T) {
	feed := NewRoomFeed(testLogger())

	ch, cancel := feed.Subscribe(1, 10)
	require.Equal(t, 1, feed.Subscribers(1))

	cancel()
	cancel()

	require.Zero(t, feed.Subscribers(1))
	_, open := <-ch
	require.False(t, open)

	feed.Deliver(events.MessageEvent{RoomID: 1})
}

func TestRoomFeedDropsEventsForSlowSubscribers(t *testing.T) {
	feed := NewRoomFeed(testLogger())

	ch, cancel := feed.Subscribe(1, 10)
	defer cancel()

	for i := 0; i < roomFeedBufferSize+5; i++ {
		feed.Deliver(events.MessageEvent{RoomID: 1, MessageID: uint(i)})
	}

	require.Len(t, ch, roomFeedBufferSize)
}

func TestRoomFeedReceivesFromListener(t *testing.T) {
	feed := NewRoomFeed(testLogger())
	listener := events.NewListener(feed, testLogger())

	ch, cancel := feed.Subscribe(3, 10)
	defer cancel()

	listener.Handle(context.Background(), "3", []byte(`{"action":"created","message_id":5,"room_id":3,"content":"hello world"}`))

	event := <-ch
	require.Equal(t, events.ActionCreated, event.Action)
	require.Equal(t, uint(5), event.MessageID)
}

func TestRoomFeedKickClosesOnlyThatUser(t *testing.T) {
	feed := NewRoomFeed(testLogger())

	kicked, cancelKicked := feed.Subscribe(1, 10)
	defer cancelKicked()
	secondTab, cancelSecond := feed.Subscribe(1, 10)
	defer cancelSecond()
	other, cancelOther := feed.Subscribe(1, 11)
	defer cancelOther()
	elsewhere, cancelElsewhere := feed.Subscribe(2, 10)
	defer cancelElsewhere()

	require.Equal(t, 2, feed.Kick(1, 10))
	require.Equal(t, 1, feed.Subscribers(1))
	require.Equal(t, 1, feed.Subscribers(2))

	_, open := <-kicked
	require.False(t, open)
	_, open = <-secondTab
	require.False(t, open)

	feed.Deliver(events.MessageEvent{RoomID: 1, MessageID: 9})
	require.Equal(t, uint(9), (<-other).MessageID)
	require.Empty(t, elsewhere)

	require.Zero(t, feed.Kick(1, 10))
}

func TestRoomFeedCloseRoomDisconnectsEveryone(t *testing.T) {
	feed := NewRoomFeed(testLogger())

	first, cancelFirst := feed.Subscribe(4, 10)
	second, cancelSecond := feed.Subscribe(4, 11)

	require.Equal(t, 2, feed.CloseRoom(4))
	require.Zero(t, feed.Subscribers(4))

	_, open := <-first
	require.False(t, open)
	_, open = <-second
	require.False(t, open)

	cancelFirst()
	cancelSecond()
	require.Zero(t, feed.Subscribers(4))
}
