package registry

import (
	"context"
)

type contextKey string

const (
	connectionInfoKey contextKey = "connection_info"
)

// ConnectionInfo identifies the registered connection a request arrived on.
type ConnectionInfo struct {
	UserId      string
	TransportId string
}

func WithConnectionInfo(ctx context.Context, conn ConnectionInfo) context.Context {
	return context.WithValue(ctx, connectionInfoKey, conn)
}

func ConnectionInfoFromContext(ctx context.Context) (ConnectionInfo, bool) {
	conn, ok := ctx.Value(connectionInfoKey).(ConnectionInfo)
	return conn, ok
}
