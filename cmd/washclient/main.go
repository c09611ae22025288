package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/goevery/carwash-notify/internal/client"
	"github.com/goevery/carwash-notify/internal/envelope"
	"github.com/goevery/carwash-notify/internal/logging"
	"github.com/goevery/carwash-notify/internal/washflow"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	var settings Settings
	_, err := env.UnmarshalFromEnviron(&settings)
	if err != nil {
		panic(fmt.Sprintf("failed to parse settings from environment: %v", err))
	}

	logger, err := logging.New("washclient", settings.LogEncoding, settings.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to build logger: %v", err))
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	bus := client.NewBus(logger)
	socket := client.NewSocket(logger, bus, client.DefaultOptions(settings.ServerURL))

	flow := washflow.NewFlow(
		logger,
		bus,
		washflow.NewWashSession(),
		washflow.NewNotificationLog(washflow.DefaultLogSize),
		newLinePrompter(os.Stdin, os.Stdout),
		&logNavigator{logger},
	)
	flow.Attach()
	defer flow.Detach()

	client.Subscribe(bus, func(payload envelope.Connected, env envelope.Envelope) {
		logger.Info("connected to notification service", zap.String("userId", payload.UserID))
	})
	client.Subscribe(bus, func(payload envelope.TestNotification, env envelope.Envelope) {
		logger.Info("test notification", zap.String("message", payload.Message))
	})

	socket.UpdateToken(settings.Token)
	socket.Connect()

	err = flow.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("wash flow stopped", zap.Error(err))
	}

	socket.Disconnect()
}
