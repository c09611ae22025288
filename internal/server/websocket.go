package server

import (
	"net/http"
	"time"

	"github.com/goevery/carwash-notify/internal/auth"
	"github.com/goevery/carwash-notify/internal/envelope"
	"github.com/goevery/carwash-notify/internal/registry"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type WebSocketServer struct {
	logger   *zap.Logger
	upgrader *websocket.Upgrader

	authenticator *auth.Authenticator
	registry      registry.Registry
	router        *Router
}

func NewWebSocketServer(
	logger *zap.Logger,
	upgrader *websocket.Upgrader,
	authenticator *auth.Authenticator,
	registry registry.Registry,
	router *Router,
) *WebSocketServer {
	return &WebSocketServer{
		logger,
		upgrader,
		authenticator,
		registry,
		router,
	}
}

func (s *WebSocketServer) Register(router *mux.Router) {
	router.HandleFunc("/websocket", s.handleConnection).Methods("GET")
}

// handleConnection upgrades first and authenticates afterwards: the token
// travels in the query string and rejections are reported with a close
// frame, which only exists once the socket is up.
func (s *WebSocketServer) handleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	token := r.URL.Query().Get("token")

	authentication, err := s.authenticator.AuthenticateJWT(token)
	if err != nil {
		reason := "invalid token"
		if token == "" {
			reason = "authentication required"
		}

		s.logger.Info("rejecting websocket connection",
			zap.String("reason", reason),
			zap.Error(err))

		s.reject(conn, reason)

		return
	}

	userId := authentication.Subject
	transport := NewWebSocketTransport(s.logger.With(zap.String("userId", userId)), conn)

	s.registry.AddClient(userId, transport)

	connected := envelope.MustNew(
		envelope.Connected{UserID: userId},
		"connected to notification service",
		time.Now(),
	)
	s.registry.SendToUser(userId, connected)

	ctx := auth.WithAuthentication(r.Context(), authentication)
	ctx = registry.WithConnectionInfo(ctx, registry.ConnectionInfo{
		UserId:      userId,
		TransportId: transport.Id(),
	})

	transport.Run(func(frame []byte) {
		reply := s.router.RouteFrame(ctx, frame)
		if reply == nil {
			return
		}

		data, err := reply.Marshal()
		if err != nil {
			s.logger.Error("failed to encode reply", zap.Error(err))
			return
		}

		err = transport.Send(data)
		if err != nil {
			s.logger.Debug("failed to write reply", zap.Error(err))
		}
	})

	s.logger.Info("websocket connection closed",
		zap.String("userId", userId),
		zap.String("transportId", transport.Id()))
}

func (s *WebSocketServer) reject(conn *websocket.Conn, reason string) {
	err := conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason),
		time.Now().Add(writeWait),
	)
	if err != nil {
		s.logger.Debug("failed to write policy violation close frame", zap.Error(err))
	}

	_ = conn.Close()
}
