// Command tracker runs a life tracker session and serves it to a local
// browser front end.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/magefree/mage-tracker-go/internal/config"
	"github.com/magefree/mage-tracker-go/internal/events"
	"github.com/magefree/mage-tracker-go/internal/server"
	"github.com/magefree/mage-tracker-go/internal/storage"
	"github.com/magefree/mage-tracker-go/internal/tracker"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath = flag.String("config", "config/tracker.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("tracker exited with error", zap.Error(err))
		os.Exit(1)
	}
}

// run owns one session from restore to final save. It returns when ctx is
// cancelled or the bridge stops serving.
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting life tracker",
		zap.String("version", version),
		zap.String("config", *configPath),
		zap.String("storage_driver", cfg.Storage.Driver),
	)

	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		// A session without storage still works; it just forgets on exit.
		logger.Warn("storage unavailable; session will not persist", zap.Error(err))
		store = storage.NewMemoryStore()
	}
	defer store.Close()

	bus := events.NewEventBus()
	controller := tracker.NewController(
		storage.NewPersister(store, cfg.Storage.Key, cfg.Storage.Timeout, logger),
		bus, logger,
	)
	defer controller.Close()

	state := controller.Start()
	logger.Info("session ready",
		zap.String("session_id", controller.SessionID()),
		zap.String("format", state.Format.ID),
		zap.Int("players", len(state.Players)),
	)

	bridge := server.New(cfg.Server, cfg.Randomizer, controller, bus, logger)
	serveErr := make(chan error, 1)
	go func() { serveErr <- bridge.ListenAndServe() }()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case runErr = <-serveErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := bridge.Shutdown(shutdownCtx); err != nil {
		logger.Warn("bridge shutdown incomplete", zap.Error(err))
	}
	logger.Info("life tracker stopped")
	return runErr
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zapCfg := zap.NewDevelopmentConfig()
	zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}
