package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brahimakil/buscollege-mobile-sub000/internal/bus/code"
	"github.com/brahimakil/buscollege-mobile-sub000/internal/bus/handler"
	busmetrics "github.com/brahimakil/buscollege-mobile-sub000/internal/bus/metrics"
	busservice "github.com/brahimakil/buscollege-mobile-sub000/internal/bus/service"
	busstore "github.com/brahimakil/buscollege-mobile-sub000/internal/bus/store"
	"github.com/brahimakil/buscollege-mobile-sub000/internal/identity"
	"github.com/brahimakil/buscollege-mobile-sub000/internal/platform/config"
	"github.com/brahimakil/buscollege-mobile-sub000/internal/platform/httpserver"
	"github.com/brahimakil/buscollege-mobile-sub000/internal/platform/logger"
	"github.com/brahimakil/buscollege-mobile-sub000/internal/platform/metrics"
	platformredis "github.com/brahimakil/buscollege-mobile-sub000/internal/platform/redis"
	"github.com/brahimakil/buscollege-mobile-sub000/internal/sweep"
	audit "github.com/brahimakil/buscollege-mobile-sub000/pkg/platform/audit"
	auditpublisher "github.com/brahimakil/buscollege-mobile-sub000/pkg/platform/audit/publisher"
	auditmemory "github.com/brahimakil/buscollege-mobile-sub000/pkg/platform/audit/store/memory"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps
// the server lifecycle small. Business logic lives in the internal
// service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Bus store: postgres when configured, memory otherwise.
	var buses busstore.Store
	if cfg.PostgresDSN != "" {
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		pg := busstore.NewPostgres(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		buses = pg
		log.Info("using postgres bus store")
	} else {
		buses = busstore.NewMemory()
		log.Warn("POSTGRES_DSN unset, using in-memory bus store")
	}

	// Audit sink: Kafka when brokers are configured, memory otherwise.
	var auditStore audit.Store
	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := auditpublisher.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer sink.Close()
		auditStore = sink
		log.Info("audit events going to kafka", "topic", cfg.Kafka.Topic)
	} else {
		auditStore = auditmemory.NewInMemoryStore()
	}
	publisher := auditpublisher.NewPublisher(auditStore, auditpublisher.WithAsyncBuffer(256))
	defer publisher.Close()

	issuer, err := code.NewIssuer(cfg.BoardingCodeSecret)
	if err != nil {
		return err
	}

	svc := busservice.New(buses, issuer,
		busservice.WithLogger(log),
		busservice.WithMetrics(busmetrics.New()),
		busservice.WithAuditPublisher(publisher),
	)

	// Sweep: redis lease keeps multi-replica deployments to one run.
	var locker sweep.Locker = sweep.NoopLocker{}
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		locker = sweep.NewRedisLocker(redisClient.Client)
	} else {
		log.Warn("REDIS_URL unset, sweep lease disabled")
	}

	sweeper := sweep.New(buses, log,
		sweep.WithBatchSize(cfg.Sweep.BatchSize),
		sweep.WithConcurrency(cfg.Sweep.Concurrency),
		sweep.WithMetrics(sweep.NewMetrics()),
		sweep.WithAuditPublisher(publisher),
	)
	scheduler := sweep.NewScheduler(sweeper, locker, log, cfg.Sweep.Interval, cfg.Sweep.Budget)
	go scheduler.Start(ctx)

	// HTTP surface.
	tokens := identity.NewTokenService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	httpMetrics := metrics.New()

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded","redis":"down"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())
	handler.New(svc, log, httpMetrics, identity.NewMiddlewareAdapter(tokens)).Register(router)
	handler.NewAdmin(svc, sweeper, log, httpMetrics, cfg.AdminToken).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting buscollege subscription engine", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
