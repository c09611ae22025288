package server

import (
	"context"

	"github.com/goevery/carwash-notify/internal/envelope"
	"github.com/goevery/carwash-notify/internal/registry"
	"go.uber.org/zap"
)

type HeartbeatHandlerInterface interface {
	Handle() envelope.Envelope
}

// Router dispatches envelopes received from clients.
type Router struct {
	logger *zap.Logger

	heartbeatHandler HeartbeatHandlerInterface
}

func NewRouter(
	logger *zap.Logger,
	heartbeatHandler HeartbeatHandlerInterface,
) *Router {
	return &Router{
		logger,
		heartbeatHandler,
	}
}

// RouteFrame returns the reply for frame, if any. Malformed frames are
// logged and dropped.
func (r *Router) RouteFrame(ctx context.Context, frame []byte) *envelope.Envelope {
	conn, _ := registry.ConnectionInfoFromContext(ctx)

	request, err := envelope.Parse(frame)
	if err != nil {
		r.logger.Warn("dropping malformed frame",
			zap.String("userId", conn.UserId),
			zap.String("transportId", conn.TransportId),
			zap.Error(err))

		return nil
	}

	switch request.Type {
	case envelope.TypePing:
		response := r.heartbeatHandler.Handle()

		return &response
	case envelope.TypePong:
		return nil
	default:
		r.logger.Debug("ignoring client frame",
			zap.String("userId", conn.UserId),
			zap.String("type", string(request.Type)))

		return nil
	}
}
