// Package bootstrap assembles the profile engine and its adapters from
// configuration. Both the server and the one-shot CLI start here.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"beneficiary/internal/platform/config"
	"beneficiary/internal/platform/database"
	"beneficiary/internal/platform/health"
	"beneficiary/internal/platform/kafka/producer"
	"beneficiary/internal/platform/redis"
	"beneficiary/internal/platform/tracer"
	"beneficiary/internal/profile/builder"
	"beneficiary/internal/profile/domain/transform"
	"beneficiary/internal/profile/events"
	"beneficiary/internal/profile/handler"
	"beneficiary/internal/profile/identity"
	"beneficiary/internal/profile/mapping"
	"beneficiary/internal/profile/metrics"
	"beneficiary/internal/profile/normalizer"
	"beneficiary/internal/profile/ports"
	"beneficiary/internal/profile/service"
	"beneficiary/internal/profile/store"
	"beneficiary/internal/profile/store/lease"
	"beneficiary/internal/profile/validator"
	"beneficiary/internal/profile/workers/scheduler"
	"beneficiary/pkg/platform/middleware/admin"
	"beneficiary/pkg/platform/middleware/request"
	"beneficiary/pkg/secrets"
)

const (
	maxBodyBytes      = 1 << 20
	requestTimeout    = 60 * time.Second
	poolStatsInterval = 15 * time.Second
	producerCloseWait = 5 * time.Second
)

// App holds the wired components. Close releases every connection.
type App struct {
	Config    config.Config
	Mapping   *mapping.Config
	Service   *service.Service
	Scheduler *scheduler.Scheduler
	Health    *health.Handler
	Registry  *prometheus.Registry

	// Memory is set when no database is configured.
	Memory *store.InMemoryStore

	logger  *slog.Logger
	redis   *redis.Client
	closers []func()
}

// New connects to every configured backend and builds the engine. Absent
// backends fall back to in-process implementations, except in production
// where a database is required.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (_ *App, err error) {
	if cfg.IsProduction() && cfg.Database.URL == "" {
		return nil, errors.New("database url is required in production")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	app := &App{
		Config:   cfg,
		Health:   health.New(cfg.Environment),
		Registry: reg,
		logger:   logger,
	}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	app.Mapping, err = mapping.LoadDir(cfg.Profile.MappingDir)
	if err != nil {
		return nil, fmt.Errorf("load mapping configuration: %w", err)
	}

	cipher, err := secrets.NewCipher([]byte(cfg.Security.EncryptionKey), nil)
	if err != nil {
		return nil, fmt.Errorf("create document cipher: %w", err)
	}
	policy, err := transform.ParseIncomePolicy(cfg.Profile.IncomePolicy)
	if err != nil {
		return nil, err
	}

	pm := metrics.New(reg)
	engine := service.Engine{
		Normalizer: normalizer.New(cipher,
			normalizer.WithLogger(logger),
			normalizer.WithMetrics(pm),
			normalizer.WithConcurrency(cfg.Profile.NormalizeConcurrency),
		),
		Builder: builder.New(app.Mapping, transform.NewRegistry(cipher.Deterministic(), transform.WithIncomePolicy(policy)),
			builder.WithLogger(logger),
			builder.WithMetrics(pm),
		),
		Validator: validator.New(app.Mapping,
			validator.WithLogger(logger),
			validator.WithMetrics(pm),
		),
	}

	profiles, uow, resolver, err := app.openStore(ctx, reg)
	if err != nil {
		return nil, err
	}
	personLease, err := app.openLease(ctx, reg)
	if err != nil {
		return nil, err
	}
	publisher, err := app.openPublisher()
	if err != nil {
		return nil, err
	}
	directory, err := app.openIdentity(resolver)
	if err != nil {
		return nil, err
	}

	app.Service, err = service.New(profiles, profiles, uow, engine,
		service.WithLogger(logger),
		service.WithMetrics(pm),
		service.WithTracer(tracer.NewOTel()),
		service.WithLease(personLease),
		service.WithEventPublisher(publisher),
		service.WithIdentityDirectory(directory),
		service.WithBatchSize(cfg.Profile.BatchSize),
	)
	if err != nil {
		return nil, fmt.Errorf("create profile service: %w", err)
	}

	app.Scheduler, err = scheduler.New(app.Service,
		scheduler.WithPopulateInterval(cfg.Scheduler.PopulateInterval),
		scheduler.WithValidateInterval(cfg.Scheduler.ValidateInterval),
		scheduler.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return app, nil
}

// profileStore is everything the engine needs from persistence.
type profileStore interface {
	ports.DocumentLoader
	ports.ProfileStore
	identity.SSOResolver
}

func (a *App) openStore(ctx context.Context, reg prometheus.Registerer) (profileStore, ports.UnitOfWork, identity.SSOResolver, error) {
	pool, err := database.New(ctx, a.Config.Database, reg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	if pool == nil {
		a.logger.WarnContext(ctx, "DATABASE_URL not set, using in-memory profile store")
		a.Memory = store.NewInMemory()
		return a.Memory, a.Memory, a.Memory, nil
	}
	a.closers = append(a.closers, func() { _ = pool.Close() })
	a.Health.RegisterCheck("postgres", pool.Health)

	opts := []store.Option{store.WithSubtypes(catalogSubtypes(a.Mapping))}
	pg := store.NewPostgres(pool.DB(), opts...)
	uow := store.NewPostgresUnitOfWork(pool.DB(), a.Config.Database.TxTimeout, opts...)
	return pg, uow, pg, nil
}

func catalogSubtypes(cfg *mapping.Config) []string {
	kinds := cfg.Catalog()
	out := make([]string, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, k.Subtype)
	}
	return out
}

func (a *App) openLease(ctx context.Context, reg prometheus.Registerer) (ports.Lease, error) {
	client, err := redis.New(ctx, a.Config.Redis, reg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	if client == nil {
		return lease.NewMemory(a.Config.Profile.PersonLeaseTTL), nil
	}
	a.redis = client
	a.closers = append(a.closers, func() { _ = client.Close() })
	a.Health.RegisterCheck("redis", client.Health)
	return lease.NewRedis(client, a.Config.Profile.PersonLeaseTTL), nil
}

func (a *App) openPublisher() (ports.EventPublisher, error) {
	if a.Config.Kafka.Brokers == "" {
		return events.NewLog(a.logger), nil
	}
	pcfg := producer.DefaultConfig()
	pcfg.Brokers = a.Config.Kafka.Brokers
	pcfg.Acks = a.Config.Kafka.Acks
	p, err := producer.New(pcfg, a.logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { p.Close(producerCloseWait) })
	a.Health.RegisterCheck("kafka", p.Health)
	return events.NewKafka(p, a.Config.Kafka.Topic), nil
}

func (a *App) openIdentity(resolver identity.SSOResolver) (ports.IdentityDirectory, error) {
	ic := a.Config.Identity
	if ic.BaseURL == "" {
		return identity.Disabled{}, nil
	}
	kc, err := identity.NewKeycloak(identity.Config{
		BaseURL:      ic.BaseURL,
		Realm:        ic.Realm,
		ClientID:     ic.ClientID,
		ClientSecret: ic.ClientSecret,
		Timeout:      ic.Timeout,
	}, resolver, identity.WithLogger(a.logger))
	if err != nil {
		return nil, fmt.Errorf("create keycloak client: %w", err)
	}
	return kc, nil
}

// Router returns the HTTP surface: health probes, metrics and the admin
// profile triggers.
func (a *App) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(
		request.Recovery(a.logger),
		request.RequestID,
		request.Logger(a.logger),
		request.Latency(request.NewMetrics(a.Registry)),
		request.ContentTypeJSON,
		request.BodyLimit(maxBodyBytes),
		request.Timeout(requestTimeout),
	)

	a.Health.Register(r)
	r.Handle("/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{Registry: a.Registry}))

	h := handler.New(a.Service, a.Mapping, a.logger)
	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdmin([]byte(a.Config.Security.AdminJWTSecret), a.logger))
		h.Register(r)
	})
	return r
}

// RunBackground runs the batch scheduler and, with Redis, the pool stats
// recorder until ctx is cancelled.
func (a *App) RunBackground(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Scheduler.Start(ctx) })
	if a.redis != nil {
		g.Go(func() error {
			ticker := time.NewTicker(poolStatsInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					a.redis.RecordPoolStats()
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		})
	}
	return g.Wait()
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
