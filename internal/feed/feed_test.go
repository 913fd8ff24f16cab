package feed

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for feed event")
		return Event{}
	}
}

func TestMemoryFeed_FanOut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := NewMemoryFeed()

	a, err := f.Subscribe(ctx)
	require.NoError(t, err)
	b, err := f.Subscribe(ctx)
	require.NoError(t, err)

	ev := Event{Type: EventLocation, UserID: "u1", At: 1}
	require.NoError(t, f.Publish(ctx, ev))
	assert.Equal(t, ev, receive(t, a))
	assert.Equal(t, ev, receive(t, b))

	cancel()
	assert.Eventually(t, func() bool {
		_, open := <-a
		return !open
	}, time.Second, time.Millisecond)
}

func TestRedisFeed_PublishSubscribe(t *testing.T) {
	mr := miniredis.RunT(t)
	f := NewRedisFeed(mr.Addr(), "", 0)
	defer f.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, f.Ping(ctx))

	ch, err := f.Subscribe(ctx)
	require.NoError(t, err)

	ev := Event{Type: EventPresence, UserID: "u2", At: 99}
	require.NoError(t, f.Publish(ctx, ev))
	assert.Equal(t, ev, receive(t, ch))
}

func TestRedisFeed_IgnoresMalformedPayload(t *testing.T) {
	mr := miniredis.RunT(t)
	f := NewRedisFeed(mr.Addr(), "", 0)
	defer f.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := f.Subscribe(ctx)
	require.NoError(t, err)

	mr.Publish(Channel, "not json")
	ev := Event{Type: EventLocation, UserID: "u3"}
	require.NoError(t, f.Publish(ctx, ev))
	assert.Equal(t, ev, receive(t, ch))
}
