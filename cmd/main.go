package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/JDRadatti/oldmaid/internal"
	"github.com/JDRadatti/oldmaid/internal/config"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	addr       = flag.String("addr", "", "http service address (overrides server.address)")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Address = *addr
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var publisher internal.Publisher = internal.NopPublisher{}
	if cfg.NATS.URL != "" {
		p, err := internal.NewNATSPublisher(cfg.NATS.URL, logger)
		if err != nil {
			logger.Fatal("failed to connect to nats", zap.Error(err))
		}
		publisher = p
	}
	defer publisher.Close()

	var results internal.ResultStore = internal.NewMemoryResults()
	if cfg.Database.URL != "" {
		store, err := internal.NewPostgresResults(ctx, cfg.Database.URL, logger)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		results = store
	} else {
		logger.Info("no database configured; game results are kept in memory")
	}
	defer results.Close()

	rm := internal.NewRoomManager(ctx, internal.RoomManagerOptions{
		Settings:        cfg.Settings(),
		SendBuffer:      cfg.Server.SendBuffer,
		CommandBuffer:   cfg.Server.CommandBuffer,
		CleanupInterval: cfg.Rooms.CleanupInterval,
		EndedTTL:        cfg.Rooms.EndedTTL,
		Publisher:       publisher,
		Results:         results,
		Logger:          logger,
	})

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: internal.SetupRouter(rm, results, logger),
	}

	go func() {
		logger.Info("starting server",
			zap.String("address", cfg.Server.Address),
			zap.Int("max_players", cfg.Game.MaxPlayers),
			zap.Int("hand_size", cfg.Game.HandSize),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to listen and serve", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
