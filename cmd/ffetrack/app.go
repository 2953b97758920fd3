package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Aamm5845/residentone-workflow-sub002/internal/blob"
	"github.com/Aamm5845/residentone-workflow-sub002/internal/catalog"
	"github.com/Aamm5845/residentone-workflow-sub002/internal/config"
	"github.com/Aamm5845/residentone-workflow-sub002/internal/core"
	"github.com/Aamm5845/residentone-workflow-sub002/internal/httpapi"
	redisevents "github.com/Aamm5845/residentone-workflow-sub002/internal/infra/events/redis"
	"github.com/Aamm5845/residentone-workflow-sub002/internal/observability"
	"github.com/gin-gonic/gin"
)

// app holds the wired process components.
type app struct {
	cfg       config.Config
	logger    *observability.Logger
	store     core.PersistentStore
	svc       *core.Service
	archive   *catalog.Catalog
	metrics   *observability.PrometheusRecorder
	publisher *redisevents.Publisher
	shutdown  []func(context.Context) error
}

// buildApp opens storage, telemetry, events and the archive store from cfg.
// traceOut receives stdout-mode spans.
func buildApp(ctx context.Context, cfg config.Config, logger *observability.Logger, traceOut io.Writer) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	ok := false
	defer func() {
		if !ok {
			_ = a.close(context.Background())
		}
	}()

	tp, stopTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Mode:        cfg.Telemetry.Tracing,
		ServiceName: "ffetrack",
		Environment: cfg.Env,
		Writer:      traceOut,
	})
	if err != nil {
		return nil, err
	}
	a.shutdown = append(a.shutdown, stopTracing)

	metrics, err := observability.NewPrometheusRecorder()
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	a.metrics = metrics

	store, err := core.OpenPersistentStoreWith(core.StorageConfig{
		Driver:      core.StorageDriver(cfg.Storage.Driver),
		SQLitePath:  cfg.Storage.SQLitePath,
		PostgresDSN: cfg.Storage.PostgresDSN,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a.store = store

	opts := []core.Option{
		core.WithLogger(logger.With("component", "core")),
		core.WithMetricsRecorder(metrics),
		core.WithTracer(observability.NewOTelTracer(tp)),
	}
	if cfg.Events.RedisAddr != "" {
		pub, err := redisevents.New(ctx, redisevents.Config{Addr: cfg.Events.RedisAddr, Channel: cfg.Events.RedisChannel})
		if err != nil {
			return nil, err
		}
		a.publisher = pub
		opts = append(opts, core.WithEventPublisher(pub))
	}
	a.svc = core.NewService(store, opts...)

	blobs, err := blob.Open(ctx, blob.Config{
		Driver: blob.Driver(cfg.Blob.Driver),
		FSRoot: cfg.Blob.FSRoot,
		S3: blob.S3Config{
			Bucket:    cfg.Blob.S3.Bucket,
			Region:    cfg.Blob.S3.Region,
			Endpoint:  cfg.Blob.S3.Endpoint,
			PathStyle: cfg.Blob.S3.PathStyle,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	a.archive = catalog.New(a.svc, blobs)
	ok = true
	return a, nil
}

// router builds the HTTP handler. A JWT secret is required.
func (a *app) router() (*gin.Engine, error) {
	if a.cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret (FFE_JWT_SECRET) is required to serve the API")
	}
	if a.cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	return httpapi.NewRouter(httpapi.Config{
		Workflow:    a.svc,
		Archive:     a.archive,
		Auth:        httpapi.NewAuthenticator(a.cfg.Auth.JWTSecret, a.cfg.Auth.JWTIssuer),
		Logger:      a.logger.With("component", "http"),
		Metrics:     a.metrics.Handler(),
		CORSOrigins: a.cfg.HTTP.CORSOrigins,
	}), nil
}

func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	for _, fn := range a.shutdown {
		errs = append(errs, fn(ctx))
	}
	return errors.Join(errs...)
}
