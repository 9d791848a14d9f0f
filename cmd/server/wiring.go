package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"tradegraph/internal/entitlement/guard"
	entmetrics "tradegraph/internal/entitlement/metrics"
	"tradegraph/internal/entitlement/ports"
	"tradegraph/internal/entitlement/store/ledger"
	"tradegraph/internal/entitlement/store/organization"
	"tradegraph/internal/export"
	"tradegraph/internal/intel"
	"tradegraph/internal/platform/config"
	"tradegraph/internal/platform/kafka"
	"tradegraph/internal/platform/postgres"
	"tradegraph/internal/platform/redis"
	"tradegraph/internal/screening"
	"tradegraph/internal/screening/providers"
	"tradegraph/internal/screening/providers/httpjson"
	"tradegraph/internal/screening/providers/static"
	"tradegraph/internal/search/cache"
	"tradegraph/internal/search/executor"
	"tradegraph/internal/search/index/memory"
	pgindex "tradegraph/internal/search/index/postgres"
	searchmetrics "tradegraph/internal/search/metrics"
	searchports "tradegraph/internal/search/ports"
	"tradegraph/internal/tariff/resolver"
	tariffstore "tradegraph/internal/tariff/store"
	httptransport "tradegraph/internal/transport/http"
	"tradegraph/migrations"
	"tradegraph/pkg/platform/audit"
	"tradegraph/pkg/platform/audit/outbox"
	"tradegraph/pkg/platform/audit/publisher"
	auditmemory "tradegraph/pkg/platform/audit/store/memory"
	auditpostgres "tradegraph/pkg/platform/audit/store/postgres"
	txcontext "tradegraph/pkg/platform/tx"
)

// infra holds the optional external connections. Each field is nil when the
// matching setting is empty.
type infra struct {
	db       *sql.DB
	pool     *pgxpool.Pool
	redis    *redis.Client
	producer *kafka.Producer
	logger   *slog.Logger
}

func openInfra(ctx context.Context, cfg *config.Config, log *slog.Logger) (*infra, error) {
	in := &infra{logger: log}

	if cfg.HasPostgres() {
		db, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		in.db = db
		if cfg.Postgres.ApplyMigrations {
			if err := migrations.Apply(ctx, db); err != nil {
				in.Close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
		}
		if cfg.Search.Index == "postgres" {
			pool, err := postgres.OpenPool(ctx, cfg.Postgres)
			if err != nil {
				in.Close()
				return nil, err
			}
			in.pool = pool
		}
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		in.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	in.redis = rc

	producer, err := kafka.NewProducer(cfg.Kafka, log)
	if err != nil {
		in.Close()
		return nil, err
	}
	if producer != nil {
		in.producer = producer
		if err := producer.EnsureTopic(ctx, cfg.Kafka.TopicPartitions, cfg.Kafka.ReplicationFactor); err != nil {
			in.Close()
			return nil, err
		}
	}
	return in, nil
}

func (in *infra) healthChecks() []httptransport.Option {
	var opts []httptransport.Option
	if in.db != nil {
		opts = append(opts, httptransport.WithHealthCheck("postgres", in.db.PingContext))
	}
	if in.redis != nil {
		opts = append(opts, httptransport.WithHealthCheck("redis", in.redis.Health))
	}
	if in.producer != nil {
		opts = append(opts, httptransport.WithHealthCheck("kafka", in.producer.Health))
	}
	return opts
}

func (in *infra) Close() {
	if in.producer != nil {
		in.producer.Close(context.Background())
	}
	if in.redis != nil {
		if err := in.redis.Close(); err != nil {
			in.logger.Warn("failed to close redis", "error", err)
		}
	}
	if in.pool != nil {
		in.pool.Close()
	}
	if in.db != nil {
		if err := in.db.Close(); err != nil {
			in.logger.Warn("failed to close postgres", "error", err)
		}
	}
}

type app struct {
	guard     *guard.Guard
	intel     *intel.Service
	publisher *publisher.Publisher
	relay     *outbox.Relay
}

func buildApp(ctx context.Context, cfg *config.Config, in *infra, log *slog.Logger) (*app, error) {
	a := &app{}

	// With Postgres the audit store is the outbox, written synchronously in
	// the ledger transaction and relayed to Kafka. Without it events are
	// buffered and the producer is a direct sink.
	var (
		orgs        ports.OrganizationStore
		entries     ports.LedgerStore
		auditStore  audit.Store
		guardOpts   []guard.Option
		publishOpts = []publisher.Option{publisher.WithLogger(log)}
	)
	if in.db != nil {
		orgs = organization.NewPostgres(in.db)
		entries = ledger.NewPostgres(in.db)
		auditStore = auditpostgres.New(in.db)
		guardOpts = append(guardOpts, guard.WithTxRunner(txcontext.NewRunner(in.db)))
		if in.producer != nil {
			a.relay = outbox.NewRelay(in.db, in.producer,
				outbox.WithInterval(cfg.Kafka.RelayInterval),
				outbox.WithBatchSize(cfg.Kafka.RelayBatchSize),
				outbox.WithLogger(log),
			)
		}
	} else {
		orgs = organization.NewInMemory()
		entries = ledger.NewInMemory()
		auditStore = auditmemory.NewInMemoryStore()
		publishOpts = append(publishOpts, publisher.WithAsyncBuffer(cfg.Audit.AsyncBuffer))
		if in.producer != nil {
			publishOpts = append(publishOpts, publisher.WithSink(in.producer))
		}
	}
	a.publisher = publisher.NewPublisher(auditStore, publishOpts...)

	g, err := guard.New(orgs, entries, append(guardOpts,
		guard.WithAuditPublisher(a.publisher),
		guard.WithMetrics(entmetrics.New()),
		guard.WithLogger(log),
	)...)
	if err != nil {
		a.publisher.Close()
		return nil, fmt.Errorf("build entitlement guard: %w", err)
	}
	a.guard = g

	svc, err := buildServices(ctx, cfg, in, g, a.publisher, log)
	if err != nil {
		a.publisher.Close()
		return nil, err
	}
	a.intel = svc
	return a, nil
}

func buildServices(ctx context.Context, cfg *config.Config, in *infra, g *guard.Guard, pub *publisher.Publisher, log *slog.Logger) (*intel.Service, error) {
	index, err := searchIndex(cfg.Search, in, log)
	if err != nil {
		return nil, err
	}

	execOpts := []executor.Option{
		executor.WithMetrics(searchmetrics.New()),
		executor.WithLogger(log),
		executor.WithCallTimeout(cfg.Search.CallTimeout),
		executor.WithRetry(cfg.Search.MaxAttempts, cfg.Search.BaseBackoff),
	}
	if in.redis != nil {
		execOpts = append(execOpts, executor.WithCache(cache.NewRedisCache(in.redis.Client), cfg.Search.CacheTTL))
	}
	exec, err := executor.New(index, execOpts...)
	if err != nil {
		return nil, fmt.Errorf("build search executor: %w", err)
	}
	exporter, err := export.New(exec, export.WithChunkSize(cfg.Search.ExportChunk), export.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("build exporter: %w", err)
	}

	catalog, err := tariffstore.Default()
	if cfg.Tariff.DatasetPath != "" {
		catalog, err = tariffstore.LoadFile(cfg.Tariff.DatasetPath)
	}
	if err != nil {
		return nil, fmt.Errorf("load tariff catalog: %w", err)
	}
	tariffs, err := resolver.New(catalog,
		resolver.WithDefaultMFNRate(cfg.Tariff.UnknownMFNRate),
		resolver.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("build tariff resolver: %w", err)
	}

	registry, err := screeningRegistry(cfg.Screening, log)
	if err != nil {
		return nil, err
	}
	screen, err := screening.New(registry,
		screening.WithRetry(cfg.Screening.MaxAttempts, cfg.Screening.RetryBackoff),
		screening.WithConcurrency(cfg.Screening.Concurrency),
		screening.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("build screening service: %w", err)
	}

	log.InfoContext(ctx, "services ready", "screening_providers", len(registry.Kinds()))
	return intel.New(g, exec, exporter, tariffs, screen,
		intel.WithAuditPublisher(pub),
		intel.WithLogger(log),
	)
}

func searchIndex(cfg config.SearchConfig, in *infra, log *slog.Logger) (searchports.Index, error) {
	if cfg.Index == "postgres" {
		if in.pool == nil {
			return nil, fmt.Errorf("search index %q needs a database url", cfg.Index)
		}
		return pgindex.New(in.pool), nil
	}

	index := memory.New()
	if cfg.DatasetPath == "" {
		log.Warn("no shipment dataset configured; search index is empty")
		return index, nil
	}
	f, err := os.Open(cfg.DatasetPath)
	if err != nil {
		return nil, fmt.Errorf("open shipment dataset: %w", err)
	}
	defer f.Close()
	if err := index.Load(f); err != nil {
		return nil, fmt.Errorf("load shipment dataset: %w", err)
	}
	log.Info("shipment dataset loaded", "path", cfg.DatasetPath, "shipments", index.Len())
	return index, nil
}

// screeningRegistry registers one HTTP provider per configured endpoint.
// Kinds without an endpoint stay unregistered so checks fail as
// upstream_unavailable and release their credit, unless StaticFallback asks
// for an empty local list.
func screeningRegistry(cfg config.ScreeningConfig, log *slog.Logger) (*providers.Registry, error) {
	registry := providers.NewRegistry()
	client := &http.Client{Timeout: cfg.Timeout}

	endpoints := []struct {
		id   string
		kind providers.Kind
		url  string
	}{
		{"sanctions-api", providers.KindSanctions, cfg.SanctionsURL},
		{"pep-api", providers.KindPEP, cfg.PEPURL},
		{"adverse-media-api", providers.KindAdverseMedia, cfg.AdverseMediaURL},
	}
	for _, ep := range endpoints {
		var p providers.Provider
		switch {
		case ep.url != "":
			hp, err := httpjson.New(ep.id, ep.kind, ep.url,
				httpjson.WithAPIKey(cfg.APIKey),
				httpjson.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
				httpjson.WithHTTPClient(client),
			)
			if err != nil {
				return nil, fmt.Errorf("build %s provider: %w", ep.kind, err)
			}
			p = hp
		case cfg.StaticFallback:
			log.Warn("screening kind answered from an empty static list", "kind", ep.kind)
			p = static.New(string(ep.kind)+"-static", ep.kind)
		default:
			log.Warn("screening kind has no provider; checks will be unavailable", "kind", ep.kind)
			continue
		}
		if err := registry.Register(p); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
