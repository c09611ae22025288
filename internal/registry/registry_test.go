package registry

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goevery/carwash-notify/internal/envelope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

type fakeTransport struct {
	id string

	mu        sync.Mutex
	open      bool
	sent      [][]byte
	pings     int
	closeCode int
	closed    int
	sendErr   error
	pingErr   error
	onPong    []func()
	onClose   []func()
	onError   []func(error)
}

func newFakeTransport(id string) *fakeTransport {
	return &fakeTransport{id: id, open: true}
}

func (t *fakeTransport) Id() string { return t.id }

func (t *fakeTransport) Send(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sendErr != nil {
		return t.sendErr
	}

	t.sent = append(t.sent, data)

	return nil
}

func (t *fakeTransport) Ping() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pingErr != nil {
		return t.pingErr
	}

	t.pings++

	return nil
}

func (t *fakeTransport) Close(code int, reason string) error {
	t.mu.Lock()
	wasOpen := t.open
	t.open = false
	t.closed++
	t.closeCode = code
	callbacks := append([]func(){}, t.onClose...)
	t.mu.Unlock()

	if !wasOpen {
		return errors.New("already closed")
	}

	for _, fn := range callbacks {
		fn()
	}

	return nil
}

func (t *fakeTransport) IsOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.open
}

func (t *fakeTransport) OnPong(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.onPong = append(t.onPong, fn)
}

func (t *fakeTransport) OnClose(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.onClose = append(t.onClose, fn)
}

func (t *fakeTransport) OnError(fn func(error)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.onError = append(t.onError, fn)
}

func (t *fakeTransport) pong() {
	t.mu.Lock()
	callbacks := append([]func(){}, t.onPong...)
	t.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

func (t *fakeTransport) fail(err error) {
	t.mu.Lock()
	callbacks := append([]func(error){}, t.onError...)
	t.mu.Unlock()

	for _, fn := range callbacks {
		fn(err)
	}
}

func (t *fakeTransport) sentFrames() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([][]byte{}, t.sent...)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

func testEnvelope() envelope.Envelope {
	return envelope.MustNew(envelope.TestNotification{Message: "hello"}, "hello", time.Now())
}

func TestInMemoryRegistry_AddClient(t *testing.T) {
	logger := zap.NewNop()

	t.Run("replaces previous connection", func(t *testing.T) {
		registry := NewInMemoryRegistry(logger)
		first := newFakeTransport("t1")
		second := newFakeTransport("t2")

		registry.AddClient("u1", first)
		registry.AddClient("u1", second)

		assert.False(t, first.IsOpen())
		assert.Equal(t, CloseReplaced, first.closeCode)
		assert.Equal(t, 1, first.closed)
		assert.True(t, second.IsOpen())
		assert.Equal(t, []string{"u1"}, registry.ConnectedUsers())

		assert.True(t, registry.SendToUser("u1", testEnvelope()))
		assert.Empty(t, first.sentFrames())
		assert.Len(t, second.sentFrames(), 1)
	})

	t.Run("late close of replaced transport keeps successor", func(t *testing.T) {
		registry := NewInMemoryRegistry(logger)
		first := newFakeTransport("t1")
		second := newFakeTransport("t2")

		registry.AddClient("u1", first)
		registry.AddClient("u1", second)

		first.fail(errors.New("connection reset"))

		assert.True(t, registry.IsUserConnected("u1"))
		assert.True(t, second.IsOpen())
	})

	t.Run("close callback removes entry", func(t *testing.T) {
		registry := NewInMemoryRegistry(logger)
		transport := newFakeTransport("t1")

		registry.AddClient("u1", transport)
		_ = transport.Close(CloseNormal, "")

		assert.False(t, registry.IsUserConnected("u1"))
	})

	t.Run("error callback removes entry", func(t *testing.T) {
		registry := NewInMemoryRegistry(logger)
		transport := newFakeTransport("t1")

		registry.AddClient("u1", transport)
		transport.fail(errors.New("broken pipe"))

		assert.False(t, registry.IsUserConnected("u1"))
		assert.False(t, transport.IsOpen())
	})
}

func TestInMemoryRegistry_RemoveClient(t *testing.T) {
	registry := NewInMemoryRegistry(zap.NewNop())
	transport := newFakeTransport("t1")

	registry.AddClient("u1", transport)

	assert.NotPanics(t, func() {
		registry.RemoveClient("u1")
		registry.RemoveClient("u1")
		registry.RemoveClient("unknown")
	})

	assert.False(t, registry.IsUserConnected("u1"))
	assert.Empty(t, registry.ConnectedUsers())
	assert.Equal(t, 1, transport.closed)
	assert.Equal(t, CloseNormal, transport.closeCode)
}

func TestInMemoryRegistry_CloseAll(t *testing.T) {
	registry := NewInMemoryRegistry(zap.NewNop())
	first := newFakeTransport("t1")
	second := newFakeTransport("t2")

	registry.AddClient("u1", first)
	registry.AddClient("u2", second)

	assert.Equal(t, 2, registry.CloseAll(CloseGoingAway, "server shutting down"))

	assert.Empty(t, registry.ConnectedUsers())
	for _, transport := range []*fakeTransport{first, second} {
		assert.False(t, transport.IsOpen())
		assert.Equal(t, 1, transport.closed)
		assert.Equal(t, CloseGoingAway, transport.closeCode)
	}

	assert.Equal(t, 0, registry.CloseAll(CloseGoingAway, ""))
}

func TestInMemoryRegistry_SendToUser(t *testing.T) {
	logger := zap.NewNop()

	t.Run("delivers json envelope", func(t *testing.T) {
		registry := NewInMemoryRegistry(logger)
		transport := newFakeTransport("t1")
		registry.AddClient("u1", transport)

		ok := registry.SendToUser("u1", testEnvelope())

		require.True(t, ok)
		frames := transport.sentFrames()
		require.Len(t, frames, 1)
		assert.Equal(t, "test_notification", gjson.GetBytes(frames[0], "type").String())
		assert.Equal(t, "hello", gjson.GetBytes(frames[0], "data.message").String())
		assert.True(t, gjson.GetBytes(frames[0], "timestamp").Exists())
	})

	t.Run("unknown user", func(t *testing.T) {
		registry := NewInMemoryRegistry(logger)

		assert.False(t, registry.SendToUser("nobody", testEnvelope()))
	})

	t.Run("transport not open", func(t *testing.T) {
		registry := NewInMemoryRegistry(logger)
		transport := newFakeTransport("t1")
		registry.AddClient("u1", transport)

		transport.mu.Lock()
		transport.open = false
		transport.mu.Unlock()

		assert.False(t, registry.SendToUser("u1", testEnvelope()))
		assert.Empty(t, transport.sentFrames())
	})

	t.Run("write failure removes entry", func(t *testing.T) {
		registry := NewInMemoryRegistry(logger)
		transport := newFakeTransport("t1")
		transport.sendErr = errors.New("write: broken pipe")
		registry.AddClient("u1", transport)

		assert.False(t, registry.SendToUser("u1", testEnvelope()))
		assert.False(t, registry.IsUserConnected("u1"))
	})
}

func TestInMemoryRegistry_Broadcast(t *testing.T) {
	registry := NewInMemoryRegistry(zap.NewNop())
	healthy := newFakeTransport("t1")
	broken := newFakeTransport("t2")
	broken.sendErr = errors.New("write: connection reset")

	registry.AddClient("u1", healthy)
	registry.AddClient("u2", broken)

	sent := registry.Broadcast(testEnvelope())

	assert.Equal(t, 1, sent)
	assert.Equal(t, []string{"u1"}, registry.ConnectedUsers())
}

func TestInMemoryRegistry_Cleanup(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)}
	registry := NewInMemoryRegistry(zap.NewNop(), WithClock(clock.Now))

	stale := newFakeTransport("stale")
	fresh := newFakeTransport("fresh")

	registry.AddClient("u-stale", stale)
	clock.Advance(4 * time.Minute)
	registry.AddClient("u-fresh", fresh)
	clock.Advance(2 * time.Minute)

	removed := registry.Cleanup()

	assert.Equal(t, 1, removed)
	assert.False(t, registry.IsUserConnected("u-stale"))
	assert.True(t, registry.IsUserConnected("u-fresh"))
	assert.False(t, stale.IsOpen())

	t.Run("pong refreshes liveness", func(t *testing.T) {
		clock.Advance(2 * time.Minute)
		fresh.pong()
		clock.Advance(4 * time.Minute)

		assert.Equal(t, 0, registry.Cleanup())
		assert.True(t, registry.IsUserConnected("u-fresh"))
	})
}

func TestInMemoryRegistry_PingAll(t *testing.T) {
	registry := NewInMemoryRegistry(zap.NewNop())
	healthy := newFakeTransport("t1")
	broken := newFakeTransport("t2")
	broken.pingErr = errors.New("write: broken pipe")
	closed := newFakeTransport("t3")

	registry.AddClient("u1", healthy)
	registry.AddClient("u2", broken)
	registry.AddClient("u3", closed)

	closed.mu.Lock()
	closed.open = false
	closed.mu.Unlock()

	pinged := registry.PingAll()

	assert.Equal(t, 1, pinged)
	assert.Equal(t, 1, healthy.pings)
	assert.False(t, registry.IsUserConnected("u2"))
	assert.True(t, registry.IsUserConnected("u3"))
}

func TestInMemoryRegistry_ConcurrentAccess(t *testing.T) {
	registry := NewInMemoryRegistry(zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)

		go func() {
			defer wg.Done()
			registry.AddClient("u1", newFakeTransport("t"))
		}()
		go func() {
			defer wg.Done()
			registry.Cleanup()
			registry.PingAll()
		}()
		go func() {
			defer wg.Done()
			registry.SendToUser("u1", testEnvelope())
			registry.RemoveClient("u1")
		}()
	}

	wg.Wait()

	assert.LessOrEqual(t, len(registry.ConnectedUsers()), 1)
}
