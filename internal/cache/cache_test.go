package cache

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type roomView struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func TestMemoizeCachesSuccessfulResults(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryStore(), "rooms", zerolog.Nop())

	calls := 0
	fetch := func(context.Context) (roomView, error) {
		calls++
		return roomView{ID: 1, Name: "general"}, nil
	}

	first, err := Memoize(ctx, c, IDKey(1), fetch)
	require.NoError(t, err)
	second, err := Memoize(ctx, c, IDKey(1), fetch)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, 1, calls)
}

func TestMemoizeNeverCachesErrors(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryStore(), "rooms", zerolog.Nop())
	boom := errors.New("boom")

	calls := 0
	fetch := func(context.Context) ([]roomView, error) {
		calls++
		if calls == 1 {
			return nil, boom
		}
		return []roomView{{ID: 1, Name: "general"}}, nil
	}

	_, err := Memoize(ctx, c, "List", fetch)
	require.ErrorIs(t, err, boom)

	rooms, err := Memoize(ctx, c, "List", fetch)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	require.Equal(t, 2, calls)
}

func TestEvictForcesRecompute(t *testing.T) {
	ctx := context.Background()
	entities, queries := Pair(NewMemoryStore(), "rooms", zerolog.Nop())
	require.Equal(t, "rooms", entities.Namespace())
	require.Equal(t, "rooms:queries", queries.Namespace())

	entities.Put(ctx, IDKey(1), roomView{ID: 1, Name: "old"})
	queries.Put(ctx, Fingerprint("List"), []roomView{{ID: 1, Name: "old"}})

	entities.Evict(ctx, IDKey(1))
	entities.Put(ctx, IDKey(1), roomView{ID: 1, Name: "new"})
	queries.EvictAll(ctx)

	var room roomView
	require.True(t, entities.Get(ctx, IDKey(1), &room))
	require.Equal(t, "new", room.Name)

	var list []roomView
	require.False(t, queries.Get(ctx, Fingerprint("List"), &list))
}

func TestNilCacheIsDisabled(t *testing.T) {
	ctx := context.Background()
	var c *Cache

	c.Put(ctx, "k", 1)
	c.Evict(ctx, "k")
	c.EvictAll(ctx)

	var out int
	require.False(t, c.Get(ctx, "k", &out))

	calls := 0
	for i := 0; i < 3; i++ {
		_, err := Memoize(ctx, c, "k", func(context.Context) (int, error) {
			calls++
			return 7, nil
		})
		require.NoError(t, err)
	}
	require.Equal(t, 3, calls)
	require.Nil(t, New(nil, "ns", zerolog.Nop()))
}

func TestStoreFailureIsTreatedAsMiss(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := New(NewRedisStore(client, "test"), "rooms", zerolog.Nop())
	mr.Close()

	value, err := Memoize(ctx, c, IDKey(3), func(context.Context) (roomView, error) {
		return roomView{ID: 3, Name: "offline"}, nil
	})
	require.NoError(t, err)
	require.Equal(t, uint(3), value.ID)
}

func TestCacheConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryStore(), "rooms", zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c.Put(ctx, IDKey(id), roomView{ID: id})
				var out roomView
				c.Get(ctx, IDKey(id), &out)
				if j%10 == 0 {
					c.EvictAll(ctx)
				}
			}
		}(uint(i))
	}
	wg.Wait()
}
