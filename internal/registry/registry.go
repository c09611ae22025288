package registry

import (
	"sync"
	"time"

	"github.com/goevery/carwash-notify/internal/envelope"
	"github.com/goevery/carwash-notify/internal/metrics"
	"go.uber.org/zap"
)

const DefaultStaleAfter = 5 * time.Minute

// Registry tracks at most one live transport per user.
type Registry interface {
	// AddClient stores transport for userId, closing any previous one.
	AddClient(userId string, transport Transport)

	// RemoveClient closes and forgets the transport of userId. It is a
	// no-op for unknown users.
	RemoveClient(userId string)

	// SendToUser reports whether the envelope was written to an open
	// transport. It never returns an error.
	SendToUser(userId string, message envelope.Envelope) bool

	// Broadcast sends to every registered user and returns the number of
	// successful writes.
	Broadcast(message envelope.Envelope) int

	ConnectedUsers() []string
	IsUserConnected(userId string) bool

	// Cleanup removes connections whose last liveness signal is older than
	// the stale threshold.
	Cleanup() int

	// PingAll sends a ping frame on every open transport.
	PingAll() int

	// CloseAll closes and forgets every transport with code and returns how
	// many were registered.
	CloseAll(code int, reason string) int
}

type connection struct {
	transport Transport
	lastPing  time.Time
}

type InMemoryRegistry struct {
	logger *zap.Logger
	mu     sync.RWMutex

	connections map[string]*connection
	staleAfter  time.Duration
	now         func() time.Time
}

type Option func(*InMemoryRegistry)

func WithStaleAfter(d time.Duration) Option {
	return func(r *InMemoryRegistry) {
		r.staleAfter = d
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *InMemoryRegistry) {
		r.now = now
	}
}

func NewInMemoryRegistry(
	logger *zap.Logger,
	opts ...Option,
) *InMemoryRegistry {
	r := &InMemoryRegistry{
		logger:      logger,
		connections: make(map[string]*connection),
		staleAfter:  DefaultStaleAfter,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *InMemoryRegistry) AddClient(userId string, transport Transport) {
	r.mu.Lock()
	previous, replaced := r.connections[userId]
	r.connections[userId] = &connection{
		transport: transport,
		lastPing:  r.now(),
	}
	count := len(r.connections)
	r.mu.Unlock()

	if replaced {
		r.closeTransport(userId, previous.transport, CloseReplaced, "replaced by a new connection")

		r.logger.Info("client replaced",
			zap.String("userId", userId),
			zap.String("transportId", previous.transport.Id()))
	}

	metrics.SetConnectedUsers(count)

	transport.OnPong(func() {
		r.touch(userId, transport)
	})
	transport.OnClose(func() {
		r.removeTransport(userId, transport)
	})
	transport.OnError(func(err error) {
		r.logger.Warn("transport error",
			zap.String("userId", userId),
			zap.String("transportId", transport.Id()),
			zap.Error(err))

		r.removeTransport(userId, transport)
	})

	r.logger.Info("client registered",
		zap.String("userId", userId),
		zap.String("transportId", transport.Id()),
		zap.Int("connectedUsers", count))
}

func (r *InMemoryRegistry) RemoveClient(userId string) {
	r.mu.Lock()
	conn, ok := r.connections[userId]
	if ok {
		delete(r.connections, userId)
	}
	count := len(r.connections)
	r.mu.Unlock()

	if !ok {
		return
	}

	metrics.SetConnectedUsers(count)

	r.closeTransport(userId, conn.transport, CloseNormal, "")

	r.logger.Info("client removed",
		zap.String("userId", userId),
		zap.String("transportId", conn.transport.Id()),
		zap.Int("connectedUsers", count))
}

func (r *InMemoryRegistry) SendToUser(userId string, message envelope.Envelope) bool {
	r.mu.RLock()
	conn, ok := r.connections[userId]
	r.mu.RUnlock()

	if !ok || !conn.transport.IsOpen() {
		metrics.RecordDelivery(string(message.Type), metrics.OutcomeNotConnected)

		return false
	}

	data, err := message.Marshal()
	if err != nil {
		r.logger.Error("failed to encode envelope",
			zap.String("userId", userId),
			zap.String("type", string(message.Type)),
			zap.Error(err))

		return false
	}

	err = conn.transport.Send(data)
	if err != nil {
		r.logger.Warn("failed to write to client, removing connection",
			zap.String("userId", userId),
			zap.String("transportId", conn.transport.Id()),
			zap.Error(err))

		metrics.RecordDelivery(string(message.Type), metrics.OutcomeWriteFailed)
		r.removeTransport(userId, conn.transport)

		return false
	}

	metrics.RecordDelivery(string(message.Type), metrics.OutcomeDelivered)

	return true
}

func (r *InMemoryRegistry) Broadcast(message envelope.Envelope) int {
	sent := 0

	for _, userId := range r.ConnectedUsers() {
		if r.SendToUser(userId, message) {
			sent++
		}
	}

	return sent
}

func (r *InMemoryRegistry) ConnectedUsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userIds := make([]string, 0, len(r.connections))
	for userId := range r.connections {
		userIds = append(userIds, userId)
	}

	return userIds
}

func (r *InMemoryRegistry) IsUserConnected(userId string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.connections[userId]

	return ok
}

func (r *InMemoryRegistry) Cleanup() int {
	threshold := r.now().Add(-r.staleAfter)

	type staleConnection struct {
		userId    string
		transport Transport
	}

	var stale []staleConnection

	r.mu.RLock()
	for userId, conn := range r.connections {
		if conn.lastPing.Before(threshold) {
			stale = append(stale, staleConnection{userId, conn.transport})
		}
	}
	r.mu.RUnlock()

	removed := 0
	for _, s := range stale {
		r.logger.Info("removing stale connection", zap.String("userId", s.userId))

		if r.removeTransport(s.userId, s.transport) {
			removed++
		}
	}

	metrics.RecordSweepRemovals(metrics.SweepCleanup, removed)

	return removed
}

func (r *InMemoryRegistry) PingAll() int {
	type target struct {
		userId    string
		transport Transport
	}

	r.mu.RLock()
	targets := make([]target, 0, len(r.connections))
	for userId, conn := range r.connections {
		targets = append(targets, target{userId, conn.transport})
	}
	r.mu.RUnlock()

	pinged := 0
	removed := 0
	for _, t := range targets {
		if !t.transport.IsOpen() {
			continue
		}

		err := t.transport.Ping()
		if err != nil {
			r.logger.Warn("ping failed, removing connection",
				zap.String("userId", t.userId),
				zap.Error(err))

			if r.removeTransport(t.userId, t.transport) {
				removed++
			}

			continue
		}

		pinged++
	}

	metrics.RecordSweepRemovals(metrics.SweepPing, removed)

	return pinged
}

func (r *InMemoryRegistry) CloseAll(code int, reason string) int {
	r.mu.Lock()
	connections := r.connections
	r.connections = make(map[string]*connection)
	r.mu.Unlock()

	metrics.SetConnectedUsers(0)

	for userId, conn := range connections {
		r.closeTransport(userId, conn.transport, code, reason)
	}

	r.logger.Info("closed all connections",
		zap.Int("count", len(connections)),
		zap.Int("code", code))

	return len(connections)
}

func (r *InMemoryRegistry) touch(userId string, transport Transport) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.connections[userId]
	if !ok || conn.transport != transport {
		return
	}

	conn.lastPing = r.now()
}

// removeTransport removes the entry of userId only while it still holds
// transport, so a replaced socket closing late cannot evict its successor.
func (r *InMemoryRegistry) removeTransport(userId string, transport Transport) bool {
	r.mu.Lock()
	conn, ok := r.connections[userId]
	if !ok || conn.transport != transport {
		r.mu.Unlock()

		return false
	}

	delete(r.connections, userId)
	count := len(r.connections)
	r.mu.Unlock()

	metrics.SetConnectedUsers(count)

	r.closeTransport(userId, transport, CloseNormal, "")

	r.logger.Info("client removed",
		zap.String("userId", userId),
		zap.String("transportId", transport.Id()),
		zap.Int("connectedUsers", count))

	return true
}

// closeTransport must be called without the lock held: closing fires the
// transport's OnClose callbacks, which re-enter the registry.
func (r *InMemoryRegistry) closeTransport(userId string, transport Transport, code int, reason string) {
	err := transport.Close(code, reason)
	if err != nil {
		r.logger.Debug("ignoring error closing transport",
			zap.String("userId", userId),
			zap.String("transportId", transport.Id()),
			zap.Error(err))
	}
}
