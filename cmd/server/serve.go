package main

import (
	"context"
	"errors"
	"fmt"
	"gymhub/social-fitness/internal/api"
	"gymhub/social-fitness/internal/cache"
	"gymhub/social-fitness/internal/config"
	"gymhub/social-fitness/internal/events"
	"gymhub/social-fitness/internal/metrics"
	"gymhub/social-fitness/internal/repository/mongo"
	"gymhub/social-fitness/internal/service"
	"gymhub/social-fitness/internal/storage"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const (
	indexTimeout    = time.Minute
	shutdownTimeout = 10 * time.Second
)

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg.Log)

	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		return err
	}
	defer mongo.DisconnectDB(dbClient)

	ctx, cancel := context.WithTimeout(cmd.Context(), indexTimeout)
	defer cancel()
	if err := mongo.EnsureIndexes(ctx, dbClient.Database(cfg.Database.Name), logger); err != nil {
		return err
	}
	logger.Info("indexes ensured", "database", cfg.Database.Name)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg.Log)
	if cfg.JWT.Secret == "" {
		return errors.New("jwt.secret must be set (JWT_SECRET)")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		return err
	}
	defer func() {
		if err := mongo.DisconnectDB(dbClient); err != nil {
			logger.Error("failed to disconnect mongodb", "error", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	logger.Info("database connection established", "database", cfg.Database.Name)

	indexCtx, cancelIndex := context.WithTimeout(ctx, indexTimeout)
	err = mongo.EnsureIndexes(indexCtx, appDB, logger)
	cancelIndex()
	if err != nil {
		return err
	}

	// --- Storage ---
	var media storage.Gateway
	switch cfg.Storage.Driver {
	case "s3":
		media, err = storage.NewS3Storage(ctx, cfg.S3, logger)
	case "local", "":
		media, err = storage.NewLocalStorage(cfg.Storage.UploadDir, logger)
	default:
		err = fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	// --- Optional cache and event bus ---
	postCache := cache.NewNoopPostCache()
	if cfg.Redis.Addr != "" {
		redisClient, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		postCache = cache.NewRedisPostCache(redisClient, cfg.Cache.TTL, logger)
		logger.Info("post cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Cache.TTL)
	}

	publisher := events.NewNoopPublisher()
	if cfg.NATS.URL != "" {
		publisher, err = events.NewNATSPublisher(cfg.NATS.URL, logger)
		if err != nil {
			return err
		}
		logger.Info("event publishing enabled", "url", cfg.NATS.URL)
	}
	defer publisher.Close()

	// --- Repositories ---
	tx := mongo.NewTransactor(dbClient, cfg.Database.Transactions)
	userRepo := mongo.NewMongoUserRepository(appDB)
	postRepo := mongo.NewMongoPostRepository(appDB)
	likeRepo := mongo.NewMongoLikeRepository(appDB)
	commentRepo := mongo.NewMongoCommentRepository(appDB)
	scheduleRepo := mongo.NewMongoWorkoutScheduleRepository(appDB)
	exerciseRepo := mongo.NewMongoExerciseRepository(appDB)
	progressRepo := mongo.NewMongoProgressRepository(appDB)
	historyRepo := mongo.NewMongoProgressHistoryRepository(appDB)

	// --- Services ---
	services := api.Services{
		Auth: service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration, logger),
		Posts: service.NewPostService(tx, postRepo, likeRepo, commentRepo, userRepo,
			media, cfg.Storage.PublicPath, postCache, publisher, logger),
		Workouts: service.NewWorkoutService(tx, scheduleRepo, exerciseRepo, logger),
		Progress: service.NewProgressService(tx, progressRepo, historyRepo, publisher, logger),
		Media:    media,
	}

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(api.RouterConfig{
		CORSOrigins:    cfg.Server.CORSOrigins,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	}, services, metrics.New(), logger)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "address", cfg.Server.Address, "version", version)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server exited")
	return nil
}
