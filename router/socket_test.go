package router

import (
	"context"
	"sync"
	"testing"
	"time"

	"direct-messenger/hub"
	"direct-messenger/presence"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zishang520/socket.io/v2/socket"
)

func TestSplitAck(t *testing.T) {
	var called bool
	var ack socket.Ack = func([]any, error) { called = true }

	payload, got := splitAck([]any{float64(3), ack})
	assert.Equal(t, float64(3), payload)
	require.NotNil(t, got)
	got(nil, nil)
	assert.True(t, called)

	payload, got = splitAck([]any{"x"})
	assert.Equal(t, "x", payload)
	assert.Nil(t, got)

	payload, got = splitAck([]any{ack})
	assert.Nil(t, payload)
	assert.NotNil(t, got)

	payload, got = splitAck(nil)
	assert.Nil(t, payload)
	assert.Nil(t, got)
}

func TestRespondAlwaysAcks(t *testing.T) {
	var results []hub.AckResult
	var ack socket.Ack = func(args []any, _ error) {
		results = append(results, args[0].(hub.AckResult))
	}

	respond([]any{float64(1), ack}, time.Second, func(ctx context.Context, payload any) hub.AckResult {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		assert.Equal(t, float64(1), payload)
		return hub.AckResult{Ok: true}
	})

	respond([]any{ack}, time.Second, func(context.Context, any) hub.AckResult {
		panic("boom")
	})

	require.Len(t, results, 2)
	assert.True(t, results[0].Ok)
	assert.False(t, results[1].Ok)
	assert.Equal(t, "Internal server error", results[1].Error)
}

func TestRespondWithoutAck(t *testing.T) {
	ran := false
	assert.NotPanics(t, func() {
		respond([]any{"payload"}, time.Second, func(context.Context, any) hub.AckResult {
			ran = true
			return hub.AckResult{Ok: true}
		})
	})
	assert.True(t, ran)
}

type countingSession struct {
	mu     sync.Mutex
	closes int
}

func (c *countingSession) Close(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
}

func TestLifecycleDisconnectDuringConnect(t *testing.T) {
	ctx := context.Background()

	t.Run("disconnect before session is attached", func(t *testing.T) {
		life := &lifecycle{}
		s := &countingSession{}

		life.closed(ctx)
		assert.Zero(t, s.closes)

		life.opened(ctx, s)
		assert.Equal(t, 1, s.closes)
	})

	t.Run("disconnect after session is attached", func(t *testing.T) {
		life := &lifecycle{}
		s := &countingSession{}

		life.opened(ctx, s)
		assert.Zero(t, s.closes)

		life.closed(ctx)
		life.closed(ctx)
		assert.Equal(t, 1, s.closes)
	})

	t.Run("concurrent disconnect and attach close once", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			life := &lifecycle{}
			s := &countingSession{}

			var wg sync.WaitGroup
			wg.Add(2)
			go func() { defer wg.Done(); life.closed(ctx) }()
			go func() { defer wg.Done(); life.opened(ctx, s) }()
			wg.Wait()

			assert.Equal(t, 1, s.closes)
		}
	})
}

func TestLifecycleReleasesPresence(t *testing.T) {
	registry := presence.New()
	h := hub.New(quietService{}, registry, nopEmitter{})
	life := &lifecycle{}
	ctx := context.Background()

	life.closed(ctx)
	life.opened(ctx, h.Connect(ctx, fakeConn{userID: 9}))

	assert.False(t, registry.IsOnline(9))
}

type quietService struct {
	hub.Service
}

func (quietService) Watchers(context.Context, uint) ([]uint, error) { return nil, nil }
func (quietService) RecordLastSeen(context.Context, uint, time.Time) error {
	return nil
}
func (quietService) Now() time.Time { return time.Unix(0, 0) }

type nopEmitter struct{}

func (nopEmitter) Emit(string, string, any) error { return nil }

type fakeConn struct {
	userID uint
}

func (c fakeConn) ID() string   { return "conn" }
func (c fakeConn) UserID() uint { return c.userID }
func (c fakeConn) Join(string)  {}
func (c fakeConn) Leave(string) {}
