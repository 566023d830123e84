package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/JohnyZhand/CoraBooks"
	"github.com/JohnyZhand/CoraBooks/config"
	"github.com/JohnyZhand/CoraBooks/database"
	"github.com/JohnyZhand/CoraBooks/objectstore/filesystem"
	"github.com/JohnyZhand/CoraBooks/objectstore/s3"
)

// app bundles what every subcommand needs.
type app struct {
	cfg     *config.Config
	service *corabooks.Service
	// blobs is set for the filesystem backend, which serves objects itself.
	blobs *filesystem.Store

	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("close", "err", err)
		}
	}
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	db, err := database.Open(ctx, cfg.Database, cfg.Database.AutoMigrate)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.closers = append(a.closers, db.Close)
	slog.Debug("connected to database", "type", cfg.Database.Type)

	store, err := a.newObjectStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	service, err := corabooks.NewService(db.GetRepo(), store, corabooks.ServiceConfig{
		MaxUploadSize:     cfg.Server.MaxUploadSize,
		AllowedExtensions: cfg.Service.AllowedExtensions,
		CleanupThreshold:  cfg.Cleanup.Threshold,
		CleanupTimeout:    time.Duration(cfg.Service.CleanupTimeout) * time.Second,
		DownloadTTL:       cfg.Download.TTL,
		Logger:            slog.Default(),
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create service: %w", err)
	}
	a.service = service

	return a, nil
}

func (a *app) newObjectStore(ctx context.Context) (corabooks.ObjectStore, error) {
	storage := a.cfg.Storage

	switch storage.Backend {
	case "s3":
		store, err := s3.New(ctx, s3.Config{
			Bucket:          storage.S3.Bucket,
			Region:          storage.S3.Region,
			Endpoint:        storage.S3.Endpoint,
			AccessKeyID:     storage.S3.AccessKeyID,
			SecretAccessKey: storage.S3.SecretAccessKey,
			ForcePathStyle:  storage.S3.ForcePathStyle,
			UploadTTL:       storage.S3.UploadTTL,
		})
		if err != nil {
			return nil, fmt.Errorf("create s3 store: %w", err)
		}
		slog.Debug("using s3 object store", "bucket", storage.S3.Bucket, "endpoint", storage.S3.Endpoint)
		return store, nil

	case "filesystem":
		path := storage.Filesystem.Path
		if err := os.MkdirAll(path, 0o750); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}

		root, err := os.OpenRoot(path)
		if err != nil {
			return nil, fmt.Errorf("open storage root: %w", err)
		}
		a.closers = append(a.closers, root.Close)

		secret := storage.Filesystem.SigningSecret
		if secret == "" {
			secret, err = randomSecret()
			if err != nil {
				return nil, fmt.Errorf("generate signing secret: %w", err)
			}
			slog.Warn("storage.filesystem.signing_secret is not set, using a random secret; tickets will not survive a restart")
		}

		a.blobs = filesystem.NewStore(root, filesystem.Config{
			PublicURL:     a.cfg.Server.PublicURL,
			SigningSecret: secret,
			TicketTTL:     storage.Filesystem.TicketTTL,
			MaxObjectSize: a.cfg.Server.MaxUploadSize,
		})
		slog.Debug("using filesystem object store", "path", path)
		return a.blobs, nil

	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", storage.Backend)
	}
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// appFromContext builds the app from the config stored by the root command.
func appFromContext(ctx context.Context) (*app, error) {
	cfg, err := config.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg)
}
