package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"

	donorhandler "bloodlink/internal/donor/handler"
	donormetrics "bloodlink/internal/donor/metrics"
	donorservice "bloodlink/internal/donor/service"
	donorstore "bloodlink/internal/donor/store"
	httpapi "bloodlink/internal/http"
	matchhandler "bloodlink/internal/match/handler"
	matchmetrics "bloodlink/internal/match/metrics"
	matchservice "bloodlink/internal/match/service"
	matchstore "bloodlink/internal/match/store"
	"bloodlink/internal/platform/config"
	"bloodlink/internal/platform/database"
	"bloodlink/internal/platform/metrics"
	"bloodlink/internal/platform/redis"
)

// donorBackend is what both services need from donor storage.
type donorBackend interface {
	donorservice.Store
	donorservice.StoreTx
	matchservice.DonorReader
}

type app struct {
	Router  http.Handler
	purge   func(ctx context.Context, every time.Duration)
	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

func buildApp(ctx context.Context, cfg config.Server, log *slog.Logger, reg *prometheus.Registry) (*app, error) {
	a := &app{}
	var health []httpapi.HealthCheck

	donors, db, err := openDonorStore(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	if db != nil {
		a.closers = append(a.closers, db.Close)
		health = append(health, httpapi.HealthCheck{Name: "database", Check: db.PingContext})
	}

	sessions, err := openSessionStore(ctx, cfg.Redis, a, &health, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	donorSvc := donorservice.New(donors, donors,
		donorservice.WithLogger(log),
		donorservice.WithMetrics(donormetrics.New(reg)),
		donorservice.WithTracer(otel.Tracer("bloodlink/donor")),
	)
	matchSvc := matchservice.New(donors, sessions,
		matchservice.WithLogger(log),
		matchservice.WithMetrics(matchmetrics.New(reg)),
		matchservice.WithSessionTTL(cfg.Search.SessionTTL),
		matchservice.WithTracer(otel.Tracer("bloodlink/match")),
	)

	a.Router = httpapi.NewRouter(httpapi.Deps{
		Logger:   log,
		Metrics:  metrics.NewHTTP(reg),
		Gatherer: reg,
		Modules: []httpapi.Registrar{
			donorhandler.New(donorSvc, log),
			matchhandler.New(matchSvc, log),
		},
		Health: health,
	})
	return a, nil
}

func openDonorStore(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (donorBackend, *sql.DB, error) {
	if cfg.Driver == config.DriverMemory {
		log.Warn("using in-memory donor store; data is lost on restart")
		return donorstore.NewInMemory(), nil, nil
	}

	db, err := database.Open(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}

	var sqlStore *donorstore.SQLStore
	switch cfg.Driver {
	case config.DriverSQLite:
		sqlStore = donorstore.NewSQLite(db)
	default:
		sqlStore = donorstore.NewPostgres(db)
	}
	if err := sqlStore.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate donor schema: %w", err)
	}
	return sqlBackend{SQLStore: sqlStore, SQLTx: donorstore.NewSQLTx(sqlStore, cfg.TxTimeout)}, db, nil
}

// sqlBackend joins the SQL store with its transaction runner.
type sqlBackend struct {
	*donorstore.SQLStore
	*donorstore.SQLTx
}

func openSessionStore(ctx context.Context, cfg config.RedisConfig, a *app, health *[]httpapi.HealthCheck, log *slog.Logger) (matchservice.SessionStore, error) {
	client, err := redis.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if client == nil {
		sessions := matchstore.NewInMemorySessions()
		a.purge = func(ctx context.Context, every time.Duration) {
			ticker := time.NewTicker(every)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if n := sessions.PurgeExpired(); n > 0 {
						log.Debug("purged expired search sessions", "count", n)
					}
				}
			}
		}
		return sessions, nil
	}
	a.closers = append(a.closers, client.Close)
	*health = append(*health, httpapi.HealthCheck{Name: "redis", Check: client.Health})
	return matchstore.NewRedisSessions(client.Client), nil
}
