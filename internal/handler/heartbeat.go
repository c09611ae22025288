package handler

import (
	"time"

	"github.com/goevery/carwash-notify/internal/envelope"
)

// HeartbeatHandler answers application level pings sent by clients. The
// registry's own liveness tracking uses protocol ping frames instead.
type HeartbeatHandler struct{}

func NewHeartbeatHandler() *HeartbeatHandler {
	return &HeartbeatHandler{}
}

func (h *HeartbeatHandler) Handle() envelope.Envelope {
	return envelope.MustNew(envelope.Pong{}, "", time.Now())
}
