// Package client keeps a single reconnecting notification socket per
// session and fans received envelopes out on a Bus.
package client

import (
	"context"
	"errors"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/goevery/carwash-notify/internal/envelope"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosedClean
	StateClosedAbnormal
	StateBackoff
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosedClean:
		return "closed_clean"
	case StateClosedAbnormal:
		return "closed_abnormal"
	case StateBackoff:
		return "backoff"
	default:
		return "unknown"
	}
}

type Options struct {
	// URL of the websocket endpoint, without the token parameter.
	URL string

	MaxReconnectAttempts int
	// InitialReconnectDelay is the backoff base until a connection has
	// succeeded once; ReconnectDelay is used afterwards.
	InitialReconnectDelay time.Duration
	ReconnectDelay        time.Duration
	MaxReconnectDelay     time.Duration
	TokenSwapDelay        time.Duration
	HandshakeTimeout      time.Duration
	KeepAliveInterval     time.Duration

	Dialer *websocket.Dialer
}

func DefaultOptions(serverURL string) Options {
	return Options{
		URL:                   serverURL,
		MaxReconnectAttempts:  5,
		InitialReconnectDelay: 3 * time.Second,
		ReconnectDelay:        time.Second,
		MaxReconnectDelay:     30 * time.Second,
		TokenSwapDelay:        100 * time.Millisecond,
		HandshakeTimeout:      10 * time.Second,
		KeepAliveInterval:     30 * time.Second,
		Dialer:                websocket.DefaultDialer,
	}
}

const writeWait = 10 * time.Second

// CloseReplaced is sent by the server when a newer connection of the same
// user took over this one.
const CloseReplaced = 4000

type stopper interface {
	Stop() bool
}

type scheduleFunc func(d time.Duration, fn func()) stopper

func timeAfterFunc(d time.Duration, fn func()) stopper {
	return time.AfterFunc(d, fn)
}

// Socket is the client side of the notification channel. All methods are
// safe for concurrent use; dialing happens in the background.
type Socket struct {
	logger *zap.Logger
	opts   Options
	bus    *Bus

	schedule scheduleFunc

	mu            sync.Mutex
	state         State
	token         string
	conn          *websocket.Conn
	generation    uint64
	connecting    bool
	attempts      int
	everConnected bool
	retry         stopper
	retrySeq      uint64
	keepAliveStop chan struct{}

	writeMu sync.Mutex
}

func NewSocket(logger *zap.Logger, bus *Bus, opts Options) *Socket {
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}

	return &Socket{
		logger:   logger,
		opts:     opts,
		bus:      bus,
		schedule: timeAfterFunc,
		state:    StateIdle,
	}
}

func (s *Socket) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

func (s *Socket) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.attempts
}

// Connect starts a connection unless one is open or being dialed. An
// explicit call resets the reconnect budget and drops any pending retry.
func (s *Socket) Connect() {
	s.mu.Lock()
	if s.connecting || s.state == StateOpen {
		s.mu.Unlock()
		return
	}

	s.attempts = 0
	s.cancelRetryLocked()
	s.mu.Unlock()

	s.dial()
}

// UpdateToken swaps the credential. An open connection is closed and, for a
// non-empty token, re-established shortly after. A dial still in flight is
// abandoned and restarted with the new token.
func (s *Socket) UpdateToken(token string) {
	s.mu.Lock()
	if token == s.token {
		s.mu.Unlock()
		return
	}

	s.token = token

	if s.connecting {
		s.generation++
		s.connecting = false
		s.state = StateClosedClean
		s.mu.Unlock()

		s.logger.Info("token changed while connecting, redialing")

		s.dial()

		return
	}

	if s.state != StateOpen {
		s.mu.Unlock()
		return
	}

	conn := s.detachLocked()
	s.state = StateClosedClean
	s.cancelRetryLocked()

	if token != "" {
		s.attempts = 0
		s.scheduleLocked(s.opts.TokenSwapDelay)
	}
	s.mu.Unlock()

	s.logger.Info("token changed, reconnecting")

	s.closeConn(conn, websocket.CloseNormalClosure, "token changed")
}

// Disconnect closes the connection cleanly and stops automatic reconnects
// until the next Connect.
func (s *Socket) Disconnect() {
	s.mu.Lock()
	s.cancelRetryLocked()
	s.attempts = s.opts.MaxReconnectAttempts
	s.connecting = false
	conn := s.detachLocked()
	s.state = StateClosedClean
	s.mu.Unlock()

	if conn != nil {
		s.closeConn(conn, websocket.CloseNormalClosure, "client disconnect")
	}

	s.logger.Info("disconnected")
}

// Send writes env when the socket is open. Nothing is queued: a closed
// socket drops env and reports false.
func (s *Socket) Send(env envelope.Envelope) bool {
	s.mu.Lock()
	conn := s.conn
	open := s.state == StateOpen
	s.mu.Unlock()

	if !open || conn == nil {
		s.logger.Warn("socket not open, dropping message",
			zap.String("type", string(env.Type)))

		return false
	}

	data, err := env.Marshal()
	if err != nil {
		s.logger.Error("failed to encode message", zap.Error(err))
		return false
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err == nil {
		err = conn.WriteMessage(websocket.TextMessage, data)
	}
	if err != nil {
		s.logger.Warn("failed to write message",
			zap.String("type", string(env.Type)),
			zap.Error(err))

		return false
	}

	return true
}

func (s *Socket) Ping() bool {
	return s.Send(envelope.MustNew(envelope.Ping{}, "", time.Now()))
}

func (s *Socket) dial() {
	s.mu.Lock()
	if s.connecting || s.state == StateOpen {
		s.mu.Unlock()
		return
	}

	if s.token == "" {
		s.state = StateIdle
		s.mu.Unlock()

		s.logger.Debug("no token, not connecting")

		return
	}

	s.connecting = true
	s.state = StateConnecting
	s.generation++
	generation := s.generation
	token := s.token
	s.mu.Unlock()

	go s.run(generation, token)
}

func (s *Socket) run(generation uint64, token string) {
	target, err := s.targetURL(token)
	if err != nil {
		s.logger.Error("invalid server url", zap.Error(err))

		s.mu.Lock()
		if generation == s.generation {
			s.connecting = false
			s.state = StateClosedAbnormal
		}
		s.mu.Unlock()

		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.HandshakeTimeout)
	conn, _, err := s.opts.Dialer.DialContext(ctx, target, nil)
	var netErr net.Error
	timedOut := errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout())
	cancel()

	s.mu.Lock()
	if generation != s.generation {
		s.mu.Unlock()

		if conn != nil {
			s.closeConn(conn, websocket.CloseNormalClosure, "superseded")
		}

		return
	}

	s.connecting = false

	if err != nil {
		if timedOut {
			s.state = StateClosedAbnormal
			s.attempts = 0
			s.mu.Unlock()

			s.logger.Warn("handshake timed out, not retrying",
				zap.Duration("timeout", s.opts.HandshakeTimeout))

			return
		}

		s.mu.Unlock()

		s.connectionLost(generation, err)

		return
	}

	s.conn = conn
	s.state = StateOpen
	s.attempts = 0
	s.everConnected = true
	stop := make(chan struct{})
	s.keepAliveStop = stop
	s.mu.Unlock()

	s.logger.Info("socket open")

	go s.keepAlive(stop)

	s.readLoop(generation, conn)
}

func (s *Socket) readLoop(generation uint64, conn *websocket.Conn) {
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			s.connectionLost(generation, err)
			return
		}

		s.dispatch(frame)
	}
}

// dispatch emits on the specific type first, then on the catch-all channel.
func (s *Socket) dispatch(frame []byte) {
	env, err := envelope.Parse(frame)
	if err != nil {
		s.logger.Warn("dropping malformed frame", zap.Error(err))
		return
	}

	s.bus.Emit(env.Type, env)
	s.bus.Emit(envelope.TypeNotification, env)
}

func (s *Socket) connectionLost(generation uint64, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		return
	}

	conn := s.detachLocked()
	if conn != nil {
		_ = conn.Close()
	}

	if websocket.IsCloseError(cause, websocket.ClosePolicyViolation) {
		s.state = StateClosedAbnormal
		s.attempts = 0

		s.logger.Warn("connection rejected by server, not retrying", zap.Error(cause))

		return
	}

	if websocket.IsCloseError(cause, CloseReplaced) {
		s.state = StateClosedAbnormal
		s.attempts = 0

		s.logger.Warn("connection replaced by another session, not retrying", zap.Error(cause))

		return
	}

	if s.attempts >= s.opts.MaxReconnectAttempts {
		s.state = StateClosedAbnormal

		s.logger.Warn("giving up reconnecting",
			zap.Int("attempts", s.attempts),
			zap.Error(cause))

		return
	}

	s.attempts++

	base := s.opts.InitialReconnectDelay
	if s.everConnected {
		base = s.opts.ReconnectDelay
	}
	delay := BackoffDelay(base, s.attempts, s.opts.MaxReconnectDelay)

	s.logger.Info("connection lost, scheduling reconnect",
		zap.Int("attempt", s.attempts),
		zap.Duration("delay", delay),
		zap.Error(cause))

	s.scheduleLocked(delay)
}

// scheduleLocked replaces any pending retry with a dial after delay.
func (s *Socket) scheduleLocked(delay time.Duration) {
	s.cancelRetryLocked()

	s.state = StateBackoff
	seq := s.retrySeq

	s.retry = s.schedule(delay, func() {
		s.mu.Lock()
		current := seq == s.retrySeq && s.state == StateBackoff
		if current {
			s.retry = nil
		}
		s.mu.Unlock()

		if current {
			s.dial()
		}
	})
}

func (s *Socket) cancelRetryLocked() {
	s.retrySeq++

	if s.retry != nil {
		s.retry.Stop()
		s.retry = nil
	}
}

// detachLocked forgets the current connection and invalidates its read
// loop.
func (s *Socket) detachLocked() *websocket.Conn {
	s.generation++

	if s.keepAliveStop != nil {
		close(s.keepAliveStop)
		s.keepAliveStop = nil
	}

	conn := s.conn
	s.conn = nil

	return conn
}

func (s *Socket) keepAlive(stop <-chan struct{}) {
	if s.opts.KeepAliveInterval <= 0 {
		return
	}

	ticker := time.NewTicker(s.opts.KeepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.Ping()
		}
	}
}

func (s *Socket) closeConn(conn *websocket.Conn, code int, reason string) {
	if conn == nil {
		return
	}

	err := conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(writeWait),
	)
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		s.logger.Debug("failed to write close frame", zap.Error(err))
	}

	_ = conn.Close()
}

func (s *Socket) targetURL(token string) (string, error) {
	u, err := url.Parse(s.opts.URL)
	if err != nil {
		return "", err
	}

	query := u.Query()
	query.Set("token", token)
	u.RawQuery = query.Encode()

	return u.String(), nil
}
