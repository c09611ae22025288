package handler

import (
	"context"
	"time"

	"github.com/goevery/carwash-notify/internal/envelope"
	"github.com/goevery/carwash-notify/internal/registry"
)

type TestNotificationRequest struct {
	UserId  string `json:"userId" validate:"required"`
	Message string `json:"message" validate:"required"`
}

type TestNotificationResponse struct {
	Sent          bool `json:"sent"`
	UserConnected bool `json:"userConnected"`
}

type TestNotificationHandlerInterface interface {
	Handle(ctx context.Context, req TestNotificationRequest) (TestNotificationResponse, error)
}

type TestNotificationHandler struct {
	requestValidator *RequestValidator
	registry         registry.Registry
}

func NewTestNotificationHandler(
	requestValidator *RequestValidator,
	registry registry.Registry,
) *TestNotificationHandler {
	return &TestNotificationHandler{
		requestValidator,
		registry,
	}
}

func (h *TestNotificationHandler) Handle(ctx context.Context, req TestNotificationRequest) (TestNotificationResponse, error) {
	err := h.requestValidator.Validate(req)
	if err != nil {
		return TestNotificationResponse{}, err
	}

	userConnected := h.registry.IsUserConnected(req.UserId)

	message, err := envelope.New(envelope.TestNotification{Message: req.Message}, req.Message, time.Now())
	if err != nil {
		return TestNotificationResponse{}, err
	}

	sent := h.registry.SendToUser(req.UserId, message)

	return TestNotificationResponse{
		Sent:          sent,
		UserConnected: userConnected,
	}, nil
}

type ConnectedUsersResponse struct {
	ConnectedUsers []string `json:"connectedUsers"`
	Count          int      `json:"count"`
}

type ConnectedUsersHandler struct {
	registry registry.Registry
}

func NewConnectedUsersHandler(registry registry.Registry) *ConnectedUsersHandler {
	return &ConnectedUsersHandler{
		registry,
	}
}

func (h *ConnectedUsersHandler) Handle() ConnectedUsersResponse {
	users := h.registry.ConnectedUsers()

	return ConnectedUsersResponse{
		ConnectedUsers: users,
		Count:          len(users),
	}
}
