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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"atatek/internal/audit"
	"atatek/internal/platform/cache"
	"atatek/internal/platform/config"
	"atatek/internal/platform/httpserver"
	"atatek/internal/platform/logger"
	"atatek/internal/platform/metrics"
	"atatek/internal/platform/postgres"
	platformredis "atatek/internal/platform/redis"
	profilehandler "atatek/internal/profile/handler"
	profileservice "atatek/internal/profile/service"
	profilestore "atatek/internal/profile/store"
	httptransport "atatek/internal/transport/http"
	"atatek/internal/tree/ancestry"
	treehandler "atatek/internal/tree/handler"
	treemetrics "atatek/internal/tree/metrics"
	treeservice "atatek/internal/tree/service"
	"atatek/internal/tree/source"
	treestore "atatek/internal/tree/store"
	"atatek/internal/tree/syncer"
	"atatek/pkg/platform/circuit"
)

const auditQueueSize = 1024

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

type treeStore interface {
	treeservice.NodeStore
	syncer.NodeWriter
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checks := map[string]httptransport.HealthCheck{}

	var (
		nodes    treeStore
		profiles profileservice.Store
	)
	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer closeDB(db, log)
		pg := treestore.NewPostgres(db)
		if err := pg.Migrate(ctx); err != nil {
			return err
		}
		nodes = pg
		profiles = profilestore.NewPostgres(db)
		checks["postgres"] = db.PingContext
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		nodes = treestore.NewInMemory()
		profiles = profilestore.NewInMemory()
	}

	rc, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	cacheOpts := []cache.Option{cache.WithLogger(log), cache.WithMetrics(cache.NewMetrics(reg))}
	var c *cache.Cache
	if rc != nil {
		defer func() {
			if err := rc.Close(); err != nil {
				log.Error("closing redis", "error", err)
			}
		}()
		c = cache.New(rc.Client, cacheOpts...)
		checks["redis"] = rc.Health
		rc.RegisterPoolMetrics(reg)
	} else {
		log.Warn("REDIS_URL not set, caching disabled")
		c = cache.New(nil, cacheOpts...)
	}

	sink, closeSink, err := auditSink(cfg.Kafka, log)
	if err != nil {
		return err
	}
	defer closeSink()
	inbox := make(chan audit.Event, auditQueueSize)
	auditor := audit.NewPublisher(audit.NewQueueSink(inbox))
	worker := audit.NewWorker(sink, inbox, log)

	tm := treemetrics.New(reg)
	src := source.New(cfg.Source.BaseURL, source.WithHTTPClient(&http.Client{Timeout: cfg.Source.Timeout}), source.WithPacing(cfg.Source.Pacing))
	sy := syncer.New(src, nodes,
		syncer.WithLogger(log),
		syncer.WithMetrics(tm),
		syncer.WithAuditor(auditor),
		syncer.WithActorID(cfg.Source.ActorID),
		syncer.WithTimeout(cfg.Source.Timeout),
		syncer.WithBreaker(circuit.New("tree-source",
			circuit.WithFailureThreshold(cfg.Source.BreakerThreshold),
			circuit.WithCooldown(cfg.Source.BreakerCooldown),
		)),
	)
	tree := treeservice.New(nodes, sy, ancestry.New(nodes), c,
		treeservice.WithLogger(log),
		treeservice.WithMetrics(tm),
		treeservice.WithAuditor(auditor),
		treeservice.WithChildrenTTL(cfg.Cache.TreeChildrenTTL),
	)
	profile := profileservice.New(profiles, c,
		profileservice.WithLogger(log),
		profileservice.WithCodeSender(profileservice.LogSender{Logger: log}),
		profileservice.WithTTLs(cfg.Cache.UserProfileTTL, cfg.Cache.VerifyCodeTTL),
	)

	router := httptransport.NewRouter(httptransport.Dependencies{
		Logger:         log,
		Metrics:        metrics.New(reg),
		Gatherer:       reg,
		RequestTimeout: cfg.Server.RequestTimeout,
		HealthChecks:   checks,
		Handlers: []httptransport.RouteRegistrar{
			treehandler.New(tree, log),
			profilehandler.New(profile, log),
		},
	})
	srv := httpserver.New(cfg.Server, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting atatek", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := worker.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func auditSink(cfg config.KafkaConfig, log *slog.Logger) (audit.Sink, func(), error) {
	if len(cfg.Brokers) == 0 {
		return audit.NewLogSink(log), func() {}, nil
	}
	k, err := audit.NewKafkaSink(cfg.Brokers, cfg.AuditTopic)
	if err != nil {
		return nil, nil, err
	}
	return k, k.Close, nil
}

func closeDB(db *sql.DB, log *slog.Logger) {
	if err := db.Close(); err != nil {
		log.Error("closing database", "error", err)
	}
}
