package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/goevery/carwash-notify/internal/auth"
	"github.com/goevery/carwash-notify/internal/handler"
	"github.com/goevery/carwash-notify/internal/logging"
	"github.com/goevery/carwash-notify/internal/persistence"
	"github.com/goevery/carwash-notify/internal/persistence/memory"
	"github.com/goevery/carwash-notify/internal/persistence/mongodb"
	"github.com/goevery/carwash-notify/internal/persistence/postgres"
	"github.com/goevery/carwash-notify/internal/registry"
	"github.com/goevery/carwash-notify/internal/server"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

type App struct {
	logger          *zap.Logger
	settings        Settings
	store           persistence.Store
	registry        registry.Registry
	sweeper         *registry.Sweeper
	websocketServer *server.WebSocketServer
	restServer      *server.RESTServer
}

func NewApp(logger *zap.Logger, settings Settings, intervals Intervals, store persistence.Store) *App {
	originChecker := server.NewOriginChecker(settings.AllowedOriginList())
	websocketUpgrader := &websocket.Upgrader{
		ReadBufferSize:    1024,
		WriteBufferSize:   1024,
		CheckOrigin:       originChecker.Check,
		EnableCompression: true,
	}

	authenticator := auth.NewAuthenticator(settings.JWTSecret, settings.JWTAudience, settings.APIKeyList())

	requestValidator := handler.NewRequestValidator()
	connectionRegistry := registry.NewInMemoryRegistry(logger, registry.WithStaleAfter(intervals.StaleAfter))
	sweeper := registry.NewSweeper(logger, connectionRegistry, intervals.CleanupInterval, intervals.PingInterval)

	heartbeatHandler := handler.NewHeartbeatHandler()
	scanHandler := handler.NewLicensePlateScanHandler(requestValidator, store, connectionRegistry)
	testNotificationHandler := handler.NewTestNotificationHandler(requestValidator, connectionRegistry)
	connectedUsersHandler := handler.NewConnectedUsersHandler(connectionRegistry)

	router := server.NewRouter(
		logger,
		heartbeatHandler,
	)

	websocketServer := server.NewWebSocketServer(
		logger,
		websocketUpgrader,
		authenticator,
		connectionRegistry,
		router,
	)
	restServer := server.NewRESTServer(
		logger,
		scanHandler,
		testNotificationHandler,
		connectedUsersHandler,
		authenticator,
	)

	return &App{
		logger,
		settings,
		store,
		connectionRegistry,
		sweeper,
		websocketServer,
		restServer,
	}
}

func (a *App) setup(ctx context.Context) error {
	err := a.store.Setup(ctx)
	if err != nil {
		return fmt.Errorf("store setup: %w", err)
	}

	err = a.sweeper.Start()
	if err != nil {
		return fmt.Errorf("sweeper start: %w", err)
	}

	a.startHttpServer(ctx)

	stopCtx, stopCtxCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCtxCancel()

	a.sweeper.Stop(stopCtx)

	return nil
}

func (a *App) startHttpServer(ctx context.Context) {
	notifyCtx, notifyCtxCancel := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer notifyCtxCancel()

	address := fmt.Sprintf("0.0.0.0:%d", a.settings.Port)

	router := mux.NewRouter()
	if a.settings.BasePath != "" {
		router = router.
			PathPrefix(a.settings.BasePath).
			Subrouter()
	}

	a.websocketServer.Register(router)
	a.restServer.Register(router)

	httpServer := &http.Server{
		Addr:    address,
		Handler: router,
	}

	a.logger.Info("starting http server",
		zap.String("address", address),
		zap.String("storeDriver", a.settings.StoreDriver))

	go func() {
		err := httpServer.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("failed to start http server",
				zap.Error(err))
		}
	}()

	<-notifyCtx.Done()

	a.logger.Info("stopping http server")

	shutdownCtx, shutdownCtxCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCtxCancel()

	err := httpServer.Shutdown(shutdownCtx)

	// Shutdown does not track hijacked connections, so websocket clients
	// are closed here once no new upgrades can arrive.
	a.registry.CloseAll(registry.CloseGoingAway, "server shutting down")

	if err != nil {
		a.logger.Fatal("http server shutdown failed",
			zap.Error(err))
	}

	a.logger.Info("http server stopped")
}

// openStore returns the configured store and a function releasing its
// resources.
func openStore(ctx context.Context, settings Settings) (persistence.Store, func(), error) {
	switch settings.StoreDriver {
	case "memory":
		store := memory.New()
		if settings.SeedFile != "" {
			err := store.LoadSeedFile(settings.SeedFile)
			if err != nil {
				return nil, nil, err
			}
		}

		return store, func() {}, nil
	case "postgres":
		if settings.DatabaseURL == "" {
			return nil, nil, errors.New("DATABASE_URL is required for the postgres store")
		}

		store, err := postgres.Open(ctx, settings.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}

		return store, func() { _ = store.Close() }, nil
	case "mongodb":
		if settings.MongoDBURI == "" {
			return nil, nil, errors.New("MONGODB_URI is required for the mongodb store")
		}

		client, err := mongo.Connect(options.Client().ApplyURI(settings.MongoDBURI))
		if err != nil {
			return nil, nil, fmt.Errorf("connect to mongodb: %w", err)
		}

		release := func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			_ = client.Disconnect(disconnectCtx)
		}

		return mongodb.NewPersistenceEngine(client, settings.MongoDBDatabase), release, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", settings.StoreDriver)
	}
}

func main() {
	ctx := context.Background()

	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	var settings Settings
	_, err := env.UnmarshalFromEnviron(&settings)
	if err != nil {
		panic(fmt.Sprintf("failed to parse settings from environment: %v", err))
	}

	logger, err := logging.New("notifier", settings.LogEncoding, settings.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to build logger: %v", err))
	}
	defer logger.Sync()

	intervals, err := settings.Intervals()
	if err != nil {
		logger.Fatal("invalid settings", zap.Error(err))
	}

	store, release, err := openStore(ctx, settings)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer release()

	app := NewApp(logger, settings, intervals, store)

	err = app.setup(ctx)
	if err != nil {
		logger.Fatal("failed to setup", zap.Error(err))
	}
}
