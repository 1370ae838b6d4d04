package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"civicwatch/internal/category"
	"civicwatch/internal/classification"
	"civicwatch/internal/config"
	"civicwatch/internal/db"
	"civicwatch/internal/email"
	"civicwatch/internal/jobs"
	"civicwatch/internal/metrics"
	"civicwatch/internal/server"
	"civicwatch/internal/storage"
	"civicwatch/internal/validation"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(newLogger(cfg))

	if err := run(cfg); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	roles, err := config.LoadYAMLConfig()
	if err != nil {
		return err
	}
	if roles != nil {
		slog.Info("loaded role mapping", "claim", roles.RoleClaim())
	}

	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return err
	}
	slog.Info("migrations completed successfully")

	metrics.Init(database)

	registry := category.NewRegistry(cfg.ClassificationThreshold)
	gate := newGate(cfg, registry)
	slog.Info("image classification configured", "mode", gate.Mode())

	images, err := newImageStore(cfg)
	if err != nil {
		return err
	}

	notifier := email.NewNotifier(cfg, database)

	digestInterval := cfg.ModerationDigestInterval
	if !cfg.IsEmailEnabled() || !cfg.EmailNotifyAdminsDigest {
		digestInterval = 0
	}
	go jobs.NewModerationDigest(database, notifier, digestInterval).Start(ctx)

	srv := server.New(cfg)
	if err := srv.RegisterRoutes(ctx, server.Dependencies{
		DB:       database,
		Registry: registry,
		Gate:     gate,
		Images:   images,
		Notifier: notifier,
		Roles:    roles,
	}); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	done := make(chan error, 1)
	go func() { done <- srv.Shutdown() }()
	select {
	case err := <-done:
		if err != nil {
			return err
		}
	case <-time.After(15 * time.Second):
		slog.Warn("shutdown timed out")
	}
	slog.Info("server exited")
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.LogFormat, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func newGate(cfg *config.Config, registry *category.Registry) *classification.Gate {
	var inferrer classification.Inferrer
	if cfg.IsClassificationEnabled() {
		if ok, msg := validation.ValidateURL(cfg.InferenceURL); !ok {
			slog.Warn("inference URL looks invalid", "url", cfg.InferenceURL, "reason", msg)
		}
		inferrer = classification.NewClient(cfg.InferenceURL, cfg.InferenceAPIKey, cfg.InferenceTimeout)
	}
	return classification.NewGate(inferrer, registry, classification.Options{
		Enabled: cfg.IsClassificationEnabled(),
		Bypass:  cfg.ClassificationBypass,
	})
}

func newImageStore(cfg *config.Config) (storage.ImageStore, error) {
	if !cfg.IsStorageEnabled() {
		slog.Warn("S3_BUCKET is not set; report submission is disabled")
		return storage.Disabled{}, nil
	}
	store, err := storage.NewS3Store(storage.S3Config{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		PublicURL: cfg.S3PublicURL,
		PathStyle: cfg.S3PathStyle,
	})
	if err != nil {
		return nil, err
	}
	slog.Info("image storage configured", "bucket", cfg.S3Bucket, "endpoint", cfg.S3Endpoint)
	return store, nil
}
