package main

import (
	"context"

	"github.com/goevery/carwash-notify/internal/envelope"
	"go.uber.org/zap"
)

// logNavigator stands in for the wash type selection screen.
type logNavigator struct {
	logger *zap.Logger
}

func (n *logNavigator) SelectWashType(ctx context.Context, station envelope.StationRef) error {
	n.logger.Info("opening wash type selection",
		zap.String("washingStationId", station.ID),
		zap.String("washingStationName", station.Name),
		zap.String("washingStationAddress", station.Address))

	return nil
}
