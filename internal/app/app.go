// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	gcsstorage "cloud.google.com/go/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/CengizhanKARAGOZ/lead-finder/internal/api"
	"github.com/CengizhanKARAGOZ/lead-finder/internal/audit"
	"github.com/CengizhanKARAGOZ/lead-finder/internal/cleanup"
	"github.com/CengizhanKARAGOZ/lead-finder/internal/clock/system"
	"github.com/CengizhanKARAGOZ/lead-finder/internal/config"
	"github.com/CengizhanKARAGOZ/lead-finder/internal/discovery"
	"github.com/CengizhanKARAGOZ/lead-finder/internal/discovery/duckduckgo"
	"github.com/CengizhanKARAGOZ/lead-finder/internal/discovery/osm"
	"github.com/CengizhanKARAGOZ/lead-finder/internal/discovery/static"
	"github.com/CengizhanKARAGOZ/lead-finder/internal/dispatcher"
	collyfetcher "github.com/CengizhanKARAGOZ/lead-finder/internal/fetcher/colly"
	"github.com/CengizhanKARAGOZ/lead-finder/internal/id/uuid"
	"github.com/CengizhanKARAGOZ/lead-finder/internal/leads"
	"github.com/CengizhanKARAGOZ/lead-finder/internal/logging"
	"github.com/CengizhanKARAGOZ/lead-finder/internal/policy/ratelimit"
	memorypublisher "github.com/CengizhanKARAGOZ/lead-finder/internal/publisher/memory"
	pubsubpublisher "github.com/CengizhanKARAGOZ/lead-finder/internal/publisher/pubsub"
	queuememory "github.com/CengizhanKARAGOZ/lead-finder/internal/queue/memory"
	"github.com/CengizhanKARAGOZ/lead-finder/internal/storage/gcs"
	"github.com/CengizhanKARAGOZ/lead-finder/internal/storage/local"
	memorystorage "github.com/CengizhanKARAGOZ/lead-finder/internal/storage/memory"
	"github.com/CengizhanKARAGOZ/lead-finder/internal/storage/postgres"
	"github.com/CengizhanKARAGOZ/lead-finder/internal/worker"
)

// leadStore is what both store drivers provide.
type leadStore interface {
	leads.Store
	leads.ResultStore
}

// App holds the shared, long-lived services for one process. It is built
// once at startup from config and closed on exit.
type App struct {
	cfg        config.Config
	logger     *zap.Logger
	store      leadStore
	queue      *queuememory.Queue
	auditor    *audit.Service
	discoverer *discovery.Service
	worker     *worker.Worker
	dispatcher *dispatcher.Dispatcher
	cleaner    *cleanup.Service
	pool       *pgxpool.Pool
	closers    []func() error
}

// New builds every service selected by cfg. It fails fast when a backend
// cannot be initialized, releasing whatever was already opened.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (a *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a = &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
			a = nil
		}
	}()

	logger.Info("initializing application services",
		zap.String("storage", cfg.Storage.Driver),
		zap.String("snapshots", cfg.Snapshots.Driver),
		zap.String("events", cfg.Events.Driver),
	)

	if err = a.initStore(ctx); err != nil {
		return a, err
	}
	snapshots, err := a.initSnapshots(ctx)
	if err != nil {
		return a, err
	}
	publisher, err := a.initPublisher(ctx)
	if err != nil {
		return a, err
	}

	limiter := ratelimit.New(ratelimit.Config{
		DefaultRPS:   cfg.Audit.RateLimit.RPS,
		DefaultBurst: cfg.Audit.RateLimit.Burst,
		PerHostRPS:   cfg.Audit.RateLimit.PerHost,
	})
	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.Audit.UserAgent,
		RespectRobots: cfg.Audit.RespectRobots,
		Timeout:       cfg.Audit.Timeout,
	})
	a.auditor = audit.NewService(fetcher, limiter, audit.Config{
		UserAgent: cfg.Audit.UserAgent,
		Timeout:   cfg.Audit.Timeout,
		MaxProbes: cfg.Audit.MaxProbes,
	}, logging.Component(logger, "audit"))

	a.discoverer = a.initDiscovery()

	a.queue = queuememory.NewQueue()
	a.worker = worker.New(
		a.queue,
		a.discoverer,
		a.auditor,
		a.store,
		snapshots,
		publisher,
		system.New(),
		worker.Config{
			SnapshotPrefix: cfg.Snapshots.Prefix,
			EventTopic:     cfg.Events.Topic,
		},
		logging.Component(logger, "worker"),
	)
	// Consumers share one worker so the per-host locks cover all of them.
	runners := make([]dispatcher.Runner, 0, cfg.Queue.Workers)
	for i := 0; i < cfg.Queue.Workers; i++ {
		runners = append(runners, a.worker)
	}
	a.dispatcher = dispatcher.New(a.queue, runners, logging.Component(logger, "dispatcher"))
	a.cleaner = cleanup.NewService(a.store, logging.Component(logger, "cleanup"))

	logger.Info("application services initialized")
	return a, nil
}

func (a *App) initStore(ctx context.Context) error {
	switch a.cfg.Storage.Driver {
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, postgres.Config{
			DSN:             a.cfg.Storage.DSN,
			MaxConns:        a.cfg.Storage.MaxConns,
			MinConns:        a.cfg.Storage.MinConns,
			MaxConnLifetime: a.cfg.Storage.MaxConnLifetime,
		})
		if err != nil {
			return fmt.Errorf("init postgres: %w", err)
		}
		a.pool = pool
		store, err := postgres.NewLeadStore(pool)
		if err != nil {
			pool.Close()
			return fmt.Errorf("init lead store: %w", err)
		}
		a.closers = append(a.closers, func() error { store.Close(); return nil })
		if a.cfg.Storage.Migrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				return err
			}
			a.logger.Info("database migrations applied")
		}
		a.store = store
	case config.DriverMemory:
		a.store = memorystorage.NewLeadStore()
	default:
		return fmt.Errorf("unknown storage driver: %s", a.cfg.Storage.Driver)
	}
	return nil
}

func (a *App) initSnapshots(ctx context.Context) (leads.BlobStore, error) {
	switch a.cfg.Snapshots.Driver {
	case config.DriverNone, "":
		return nil, nil
	case config.DriverMemory:
		return memorystorage.NewBlobStore(), nil
	case config.DriverLocal:
		store, err := local.New(local.Config{BaseDir: a.cfg.Snapshots.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("init local snapshots: %w", err)
		}
		return store, nil
	case config.DriverGCS:
		client, err := gcsstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("init gcs client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		store, err := gcs.New(client, gcs.Config{
			Bucket:        a.cfg.Snapshots.Bucket,
			UploadTimeout: a.cfg.Snapshots.UploadTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("init gcs snapshots: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown snapshots driver: %s", a.cfg.Snapshots.Driver)
	}
}

func (a *App) initPublisher(ctx context.Context) (leads.Publisher, error) {
	switch a.cfg.Events.Driver {
	case config.DriverNone, "":
		return nil, nil
	case config.DriverMemory:
		return memorypublisher.New(), nil
	case config.DriverPubSub:
		client, err := pubsubpublisher.NewClient(ctx, a.cfg.Events.ProjectID)
		if err != nil {
			return nil, err
		}
		publisher := pubsubpublisher.New(client, map[string]string{"source": "lead-finder"}, logging.Component(a.logger, "events"))
		a.closers = append(a.closers, publisher.Close)
		return publisher, nil
	default:
		return nil, fmt.Errorf("unknown events driver: %s", a.cfg.Events.Driver)
	}
}

func (a *App) initDiscovery() *discovery.Service {
	cfg := a.cfg.Discovery
	var (
		search []leads.SearchProvider
		places []leads.PlacesProvider
	)
	if cfg.Static.Enabled {
		results := make([]leads.SearchResult, 0, len(cfg.Static.URLs))
		for _, u := range cfg.Static.URLs {
			results = append(results, leads.SearchResult{URL: u})
		}
		search = append(search, &static.Search{Results: results})
	}
	if cfg.DuckDuckGo.Enabled {
		search = append(search, duckduckgo.New(duckduckgo.Config{
			Endpoint:   cfg.DuckDuckGo.Endpoint,
			UserAgent:  cfg.UserAgent,
			Timeout:    cfg.DuckDuckGo.Timeout,
			MaxResults: cfg.DuckDuckGo.MaxResults,
			SiteFilter: cfg.DuckDuckGo.SiteFilter,
		}, &http.Client{}, logging.Component(a.logger, "duckduckgo")))
	}
	if cfg.OSM.Enabled {
		var cache osm.GeoCache
		if a.cfg.Redis.Addr != "" {
			client := redis.NewClient(&redis.Options{
				Addr:     a.cfg.Redis.Addr,
				Password: a.cfg.Redis.Password,
				DB:       a.cfg.Redis.DB,
			})
			a.closers = append(a.closers, client.Close)
			cache = osm.NewRedisCache(client, a.cfg.Redis.Prefix, a.cfg.Redis.TTL)
		}
		nominatimLimiter := ratelimit.New(ratelimit.Config{
			DefaultRPS:   cfg.OSM.NominatimRPS,
			DefaultBurst: 1,
		})
		places = append(places, osm.New(osm.Config{
			NominatimURL:      cfg.OSM.NominatimURL,
			NominatimTimeout:  cfg.OSM.NominatimTimeout,
			OverpassEndpoints: cfg.OSM.OverpassEndpoints,
			OverpassTimeout:   cfg.OSM.OverpassTimeout,
			UserAgent:         cfg.UserAgent,
		}, &http.Client{}, nominatimLimiter, cache, logging.Component(a.logger, "osm")))
	}
	return discovery.NewService(search, places, logging.Component(a.logger, "discovery"))
}

// Config returns the configuration the App was built from.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the root logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Store returns the configured lead store.
func (a *App) Store() leads.ResultStore { return a.store }

// Auditor returns the site audit service.
func (a *App) Auditor() *audit.Service { return a.auditor }

// Discoverer returns the aggregated discovery service.
func (a *App) Discoverer() *discovery.Service { return a.discoverer }

// Worker returns the scan worker.
func (a *App) Worker() *worker.Worker { return a.worker }

// Dispatcher returns the scan dispatcher.
func (a *App) Dispatcher() *dispatcher.Dispatcher { return a.dispatcher }

// Cleaner returns the contact cleanup service.
func (a *App) Cleaner() *cleanup.Service { return a.cleaner }

// Pool returns the Postgres pool, or nil for the memory driver.
func (a *App) Pool() *pgxpool.Pool { return a.pool }

// APIServer builds the HTTP API over the App's services.
func (a *App) APIServer() *api.Server {
	return api.NewServer(api.Deps{
		Submitter:  a.dispatcher,
		Results:    a.store,
		Auditor:    a.auditor,
		Discoverer: a.discoverer,
		Cleaner:    a.cleaner,
		IDs:        uuid.New(),
	}, a.cfg, logging.Component(a.logger, "api"))
}

// Close stops the queue and releases every backend in reverse order of
// creation.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.queue != nil {
		a.queue.Close()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("error closing application services", zap.Error(err))
	}
}
