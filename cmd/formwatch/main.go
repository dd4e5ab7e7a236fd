// Package main wires together the form watcher service.
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

	gcppubsub "cloud.google.com/go/pubsub"
	gcpstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/formwatch/formwatch/internal/api"
	archivegcs "github.com/formwatch/formwatch/internal/archive/gcs"
	archivelocal "github.com/formwatch/formwatch/internal/archive/local"
	archivememory "github.com/formwatch/formwatch/internal/archive/memory"
	"github.com/formwatch/formwatch/internal/clock/system"
	"github.com/formwatch/formwatch/internal/config"
	collyfetcher "github.com/formwatch/formwatch/internal/fetcher/colly"
	headlessfetcher "github.com/formwatch/formwatch/internal/fetcher/headless"
	"github.com/formwatch/formwatch/internal/formsapi"
	"github.com/formwatch/formwatch/internal/logging"
	"github.com/formwatch/formwatch/internal/metrics"
	"github.com/formwatch/formwatch/internal/notifier/webhook"
	pubsubpublisher "github.com/formwatch/formwatch/internal/publisher/pubsub"
	statefile "github.com/formwatch/formwatch/internal/state/file"
	statememory "github.com/formwatch/formwatch/internal/state/memory"
	statepostgres "github.com/formwatch/formwatch/internal/state/postgres"
	"github.com/formwatch/formwatch/internal/watch"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, stop); err != nil {
		logger.Error("service failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger, stop context.CancelFunc) error {
	clock := system.New()

	store, closeStore, err := buildStateStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build state store: %w", err)
	}
	defer closeStore()

	notifier, err := webhook.New(webhook.Config{
		URL:     cfg.Notifier.WebhookURL,
		Timeout: cfg.NotifyTimeout(),
	})
	if err != nil {
		return fmt.Errorf("build notifier: %w", err)
	}

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Watch.UserAgent,
		Timeout:   cfg.FetchTimeout(),
	})

	checker := watch.NewChecker(
		watch.CheckerConfig{
			FormURL:             cfg.Watch.FormURL,
			FormID:              cfg.Watch.FormID,
			ForcedNotifyEnabled: cfg.Watch.ForcedNotifyEnabled,
			ArchivePrefix:       cfg.Archive.Prefix,
			ArchiveContentType:  cfg.Archive.ContentType,
			Topic:               cfg.PubSub.TopicName,
		},
		fetcher,
		store,
		notifier,
		clock,
		watch.NewDeliveryLog(),
		logger.Named("checker"),
	)
	checker.WithProber(watch.NewProber(fetcher, logger.Named("prober")))

	if cfg.Headless.Enabled {
		renderer, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
			MaxParallel:       cfg.Headless.MaxParallel,
			UserAgent:         cfg.Watch.UserAgent,
			NavigationTimeout: time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
		})
		if err != nil {
			logger.Warn("headless fetcher init failed", zap.Error(err))
		} else {
			defer renderer.Close()
			checker.WithRenderer(renderer, headlessfetcher.NewDetector(cfg.Headless.BodyThreshold))
		}
	}

	if cfg.FormsAPI.Enabled {
		checker.WithStructuredSource(formsapi.New(formsapi.Config{
			URL:     cfg.FormsAPI.URL,
			Token:   cfg.FormsAPI.Token,
			Timeout: cfg.FetchTimeout(),
		}, logger.Named("formsapi")))
	}

	if err := attachArchive(ctx, cfg, checker); err != nil {
		return fmt.Errorf("build archive: %w", err)
	}

	if cfg.PubSub.ProjectID != "" && cfg.PubSub.TopicName != "" {
		client, err := gcppubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			logger.Warn("pubsub client init failed", zap.Error(err))
		} else {
			defer client.Close() //nolint:errcheck // best-effort close
			checker.WithPublisher(pubsubpublisher.New(client))
		}
	}

	apiServer := api.NewServer(checker, store, cfg, logger.Named("api"))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started",
			zap.Int("port", cfg.Server.Port),
			zap.String("form_url", cfg.Watch.FormURL),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
	return nil
}

func buildStateStore(ctx context.Context, cfg config.Config) (watch.StateStore, func(), error) {
	switch cfg.State.Backend {
	case "memory":
		return statememory.New(), func() {}, nil
	case "file":
		store, err := statefile.New(cfg.State.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	case "postgres":
		store, err := statepostgres.New(ctx, statepostgres.Config{
			DSN:      cfg.DB.DSN,
			Table:    cfg.DB.Table,
			FormID:   cfg.Watch.FormID,
			MaxConns: cfg.DB.MaxConns,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown state backend %q", cfg.State.Backend)
	}
}

func attachArchive(ctx context.Context, cfg config.Config, checker *watch.Checker) error {
	switch cfg.Archive.Backend {
	case "none":
		return nil
	case "memory":
		checker.WithArchive(archivememory.New())
		return nil
	case "local":
		store, err := archivelocal.New(archivelocal.Config{BaseDir: cfg.Archive.Dir})
		if err != nil {
			return err
		}
		checker.WithArchive(store)
		return nil
	case "gcs":
		client, err := gcpstorage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("gcs client: %w", err)
		}
		store, err := archivegcs.New(client, archivegcs.Config{Bucket: cfg.Archive.GCSBucket})
		if err != nil {
			return err
		}
		checker.WithArchive(store)
		return nil
	default:
		return fmt.Errorf("unknown archive backend %q", cfg.Archive.Backend)
	}
}
