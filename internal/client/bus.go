package client

import (
	"sync"

	"github.com/goevery/carwash-notify/internal/envelope"
	"go.uber.org/zap"
)

type ListenerID uint64

type Handler func(env envelope.Envelope)

type listener struct {
	id ListenerID
	fn Handler
}

// Bus fans received envelopes out to listeners keyed by envelope type.
// Listeners run in registration order; a panicking listener is logged and
// does not affect the others.
type Bus struct {
	logger *zap.Logger

	mu        sync.Mutex
	nextID    ListenerID
	listeners map[envelope.Type][]listener
}

func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		logger:    logger,
		listeners: make(map[envelope.Type][]listener),
	}
}

func (b *Bus) On(envelopeType envelope.Type, fn Handler) ListenerID {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.listeners[envelopeType] = append(b.listeners[envelopeType], listener{b.nextID, fn})

	return b.nextID
}

func (b *Bus) Off(envelopeType envelope.Type, id ListenerID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	current := b.listeners[envelopeType]
	kept := make([]listener, 0, len(current))
	for _, l := range current {
		if l.id != id {
			kept = append(kept, l)
		}
	}

	if len(kept) == 0 {
		delete(b.listeners, envelopeType)
		return
	}

	b.listeners[envelopeType] = kept
}

func (b *Bus) Emit(envelopeType envelope.Type, env envelope.Envelope) {
	b.mu.Lock()
	snapshot := append([]listener(nil), b.listeners[envelopeType]...)
	b.mu.Unlock()

	for _, l := range snapshot {
		b.deliver(envelopeType, l, env)
	}
}

func (b *Bus) deliver(envelopeType envelope.Type, l listener, env envelope.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("recovered panic in listener",
				zap.String("type", string(envelopeType)),
				zap.Uint64("listenerId", uint64(l.id)),
				zap.Any("panic", r))
		}
	}()

	l.fn(env)
}

// Subscribe registers fn for the envelope type bound to T and hands it the
// decoded payload. Envelopes whose data does not decode are logged and
// skipped.
func Subscribe[T envelope.Payload](b *Bus, fn func(payload T, env envelope.Envelope)) ListenerID {
	var zero T
	envelopeType := zero.EnvelopeType()

	return b.On(envelopeType, func(env envelope.Envelope) {
		payload, err := envelope.Decode[T](env)
		if err != nil {
			b.logger.Warn("dropping undecodable payload",
				zap.String("type", string(envelopeType)),
				zap.Error(err))

			return
		}

		fn(payload, env)
	})
}
