package registry

// Transport is the live socket of one user. The registry depends only on
// this surface, never on a concrete socket library.
type Transport interface {
	Id() string
	Send(data []byte) error
	// Ping writes a protocol level ping frame.
	Ping() error
	Close(code int, reason string) error
	IsOpen() bool

	// OnPong, OnClose and OnError register lifecycle callbacks. Callbacks
	// may run on any goroutine.
	OnPong(fn func())
	OnClose(fn func())
	OnError(fn func(err error))
}

// Close codes used by the registry and the handshake. CloseReplaced tells a
// client that a newer connection took over its user, so it must not
// reconnect on its own.
const (
	CloseNormal          = 1000
	CloseGoingAway       = 1001
	ClosePolicyViolation = 1008
	CloseReplaced        = 4000
)
