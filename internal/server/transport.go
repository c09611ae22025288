package server

import (
	"errors"
	"sync"
	"time"

	"github.com/goevery/carwash-notify/internal/registry"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait    = 10 * time.Second
	maxFrameSize = 4096
)

var ErrTransportClosed = errors.New("transport closed")

// WebSocketTransport adapts a gorilla connection to registry.Transport.
// gorilla allows one concurrent writer, so data writes are serialized.
type WebSocketTransport struct {
	id     string
	conn   *websocket.Conn
	logger *zap.Logger

	writeMu sync.Mutex

	mu        sync.Mutex
	closed    bool
	onPong    []func()
	onClose   []func()
	onError   []func(error)
	closeOnce sync.Once
}

func NewWebSocketTransport(logger *zap.Logger, conn *websocket.Conn) *WebSocketTransport {
	id := registry.NewTransportId()

	t := &WebSocketTransport{
		id:     id,
		conn:   conn,
		logger: logger.With(zap.String("transportId", id)),
	}

	conn.SetReadLimit(maxFrameSize)
	conn.SetPongHandler(func(string) error {
		t.firePong()
		return nil
	})

	return t
}

func (t *WebSocketTransport) Id() string {
	return t.id
}

func (t *WebSocketTransport) Send(data []byte) error {
	if !t.IsOpen() {
		return ErrTransportClosed
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	err := t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err != nil {
		return err
	}

	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *WebSocketTransport) Ping() error {
	if !t.IsOpen() {
		return ErrTransportClosed
	}

	return t.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Close sends a close frame and tears the connection down. Closing twice
// returns ErrTransportClosed.
func (t *WebSocketTransport) Close(code int, reason string) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrTransportClosed
	}
	t.closed = true
	t.mu.Unlock()

	err := t.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(writeWait),
	)
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		t.logger.Debug("failed to write close frame", zap.Error(err))
	}

	closeErr := t.conn.Close()

	t.fireClose()

	return closeErr
}

func (t *WebSocketTransport) IsOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return !t.closed
}

func (t *WebSocketTransport) OnPong(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.onPong = append(t.onPong, fn)
}

// OnClose runs fn immediately when the transport is already closed.
func (t *WebSocketTransport) OnClose(fn func()) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		t.safely(fn)
		return
	}

	t.onClose = append(t.onClose, fn)
	t.mu.Unlock()
}

func (t *WebSocketTransport) OnError(fn func(err error)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.onError = append(t.onError, fn)
}

// Run reads frames until the connection ends, handing each to onFrame. It
// blocks for the lifetime of the connection.
func (t *WebSocketTransport) Run(onFrame func(frame []byte)) {
	for {
		_, frame, err := t.conn.ReadMessage()
		if err != nil {
			t.readFailed(err)
			return
		}

		t.safely(func() {
			onFrame(frame)
		})
	}
}

func (t *WebSocketTransport) readFailed(err error) {
	t.mu.Lock()
	closedLocally := t.closed
	t.closed = true
	t.mu.Unlock()

	if closedLocally {
		return
	}

	if websocket.IsUnexpectedCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		t.fireError(err)
	} else {
		t.logger.Debug("connection closed by peer", zap.Error(err))
	}

	_ = t.conn.Close()

	t.fireClose()
}

func (t *WebSocketTransport) firePong() {
	t.mu.Lock()
	callbacks := append([]func(){}, t.onPong...)
	t.mu.Unlock()

	for _, fn := range callbacks {
		t.safely(fn)
	}
}

func (t *WebSocketTransport) fireClose() {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		callbacks := t.onClose
		t.onClose = nil
		t.mu.Unlock()

		for _, fn := range callbacks {
			t.safely(fn)
		}
	})
}

func (t *WebSocketTransport) fireError(err error) {
	t.mu.Lock()
	callbacks := append([]func(error){}, t.onError...)
	t.mu.Unlock()

	for _, fn := range callbacks {
		t.safely(func() {
			fn(err)
		})
	}
}

func (t *WebSocketTransport) safely(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("recovered panic in connection callback", zap.Any("panic", r))
		}
	}()

	fn()
}
