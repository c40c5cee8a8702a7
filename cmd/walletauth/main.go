package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/walletauth/adapters/events"
	"github.com/layer-3/walletauth/adapters/store"
	"github.com/layer-3/walletauth/adapters/tokenizer"
	"github.com/layer-3/walletauth/adapters/users"
	"github.com/layer-3/walletauth/internal/config"
	"github.com/layer-3/walletauth/internal/eth"
	"github.com/layer-3/walletauth/ports"
	"github.com/layer-3/walletauth/service"
	transport "github.com/layer-3/walletauth/transport/http"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	var (
		configPath = pflag.String("config", "", "path to a YAML config file")
		envFile    = pflag.String("env-file", ".env", "path to a .env file, ignored when missing")
		listen     = pflag.String("listen", "", "listen address, overrides LISTEN_ADDR")
		logFormat  = pflag.String("log-format", "json", "log format: json or text")
	)
	pflag.Parse()

	logger := newLogger(*logFormat)
	slog.SetDefault(logger)

	if err := run(*configPath, *envFile, *listen, logger); err != nil {
		logger.Error("walletauth stopped", "error", err)
		os.Exit(1)
	}
}

func newLogger(format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func run(configPath, envFile, listen string, logger *slog.Logger) error {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.ListenAddr = listen
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Parse Redis URL and create client
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	redisClient := redis.NewClient(opts)
	defer redisClient.Close()

	sessions := store.NewRedisStore(redisClient, store.WithTimeout(cfg.StoreTimeout))
	if err := sessions.Ping(ctx); err != nil {
		logger.Warn("session store not reachable at startup", "error", err)
	}

	directory, closeDirectory, err := newDirectory(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDirectory()

	eventPub, closeEvents, err := newEventPublisher(cfg, redisClient, logger)
	if err != nil {
		return err
	}
	defer closeEvents()

	verifier := eth.NewVerifier()

	userService, err := newAuthService(service.StandardRealm, cfg, cfg.User, sessions, directory, verifier, eventPub, logger)
	if err != nil {
		return err
	}
	adminService, err := newAuthService(service.ElevatedRealm, cfg, cfg.Admin, sessions, directory, verifier, eventPub, logger)
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	router := transport.SetupRouter(userService, adminService, sessions, logger)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("walletauth listening", "addr", cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newAuthService(
	realm service.Realm,
	cfg *config.Config,
	realmCfg config.RealmConfig,
	sessions ports.Store,
	directory ports.UserDirectory,
	verifier ports.SignatureVerifier,
	eventPub ports.EventPublisher,
	logger *slog.Logger,
) (*service.AuthService, error) {
	tk, err := tokenizer.NewJWTTokenizer(realmCfg.AccessSecret, realmCfg.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("%s realm: %w", realm.Name, err)
	}

	return service.NewAuthService(service.Config{
		Realm:      realm,
		Product:    cfg.Product,
		AccessTTL:  realmCfg.AccessTTL,
		RefreshTTL: realmCfg.RefreshTTL,
		NonceTTL:   cfg.NonceTTL,
	}, tk, sessions, directory, verifier, eventPub, logger), nil
}

func newDirectory(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ports.UserDirectory, func(), error) {
	if cfg.MongoURL == "" {
		logger.Warn("MONGODB_URL not set, using in-memory user directory")
		return users.NewMemoryDirectory(), func() {}, nil
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURL))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	closeFn := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(ctx); err != nil {
			logger.Warn("failed to disconnect from MongoDB", "error", err)
		}
	}

	db := client.Database(cfg.MongoDatabase)
	if err := users.EnsureIndexes(ctx, db); err != nil {
		closeFn()
		return nil, nil, err
	}
	return users.NewMongoDirectory(db), closeFn, nil
}

func newEventPublisher(cfg *config.Config, client redis.UniversalClient, logger *slog.Logger) (ports.EventPublisher, func(), error) {
	if !cfg.EventsEnabled {
		return events.NopPublisher{}, func() {}, nil
	}

	// Initialize Watermill Redis publisher
	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: client,
		},
		watermill.NewSlogLogger(logger),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Redis publisher: %w", err)
	}

	closeFn := func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("failed to close event publisher", "error", err)
		}
	}
	return events.NewWatermillPublisher(publisher), closeFn, nil
}
