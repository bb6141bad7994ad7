// Package app wires configuration into the running service: it opens the
// configured domain store, builds the disposable services and runs the API
// server and refresh worker side by side.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/ignite/nondisposable/internal/api"
	"github.com/ignite/nondisposable/internal/auth"
	"github.com/ignite/nondisposable/internal/blocklist"
	"github.com/ignite/nondisposable/internal/config"
	"github.com/ignite/nondisposable/internal/metrics"
	"github.com/ignite/nondisposable/internal/pkg/distlock"
	"github.com/ignite/nondisposable/internal/pkg/logger"
	"github.com/ignite/nondisposable/internal/repository/memory"
	"github.com/ignite/nondisposable/internal/repository/postgres"
	redisstore "github.com/ignite/nondisposable/internal/repository/redis"
	"github.com/ignite/nondisposable/internal/service/disposable"
	"github.com/ignite/nondisposable/internal/worker"
)

const refreshLockKey = "nondisposable:refresh"

// App holds the wired services for one process.
type App struct {
	Config    *config.Config
	Store     disposable.DomainStore
	Rules     *disposable.RulesHolder
	Checker   *disposable.Checker
	Validator *disposable.Validator
	Updater   *disposable.Updater
	Metrics   *metrics.Metrics
	Registry  *prometheus.Registry

	db    *sql.DB
	redis *redis.Client
}

// New opens connections and builds services from cfg. Callers must Close
// the returned App.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	if cfg.Log.RedactPII != nil {
		logger.SetRedactPII(*cfg.Log.RedactPII)
	}

	a := &App{Config: cfg}

	if cfg.Store.Driver == config.DriverPostgres {
		db, err := openPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		a.db = db
	}
	if cfg.Redis.URL != "" {
		rdb, err := openRedis(ctx, cfg.Redis.URL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.redis = rdb
	}

	switch cfg.Store.Driver {
	case config.DriverPostgres:
		a.Store = postgres.NewDisposableDomainRepo(a.db)
	case config.DriverRedis:
		a.Store = redisstore.NewDomainStore(a.redis, cfg.Redis.SetKey)
	default:
		a.Store = memory.NewDomainStore()
	}

	fetcher, err := newFetcher(ctx, cfg.Blocklist)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Metrics = metrics.New(a.Registry)
	a.Rules = disposable.NewRulesHolder(cfg.Rules)
	a.Checker = disposable.NewChecker(a.Store, a.Rules, a.Metrics)
	a.Validator = disposable.NewValidator(a.Checker, a.Rules, nil)
	a.Updater = disposable.NewUpdater(a.Store, fetcher, a.Rules,
		disposable.WithURL(cfg.Blocklist.URL),
		disposable.WithMetrics(a.Metrics),
		disposable.WithLocker(distlock.NewLock(a.redis, a.db, refreshLockKey, cfg.Blocklist.LockTTL())),
	)

	log.Printf("Store driver: %s, blocklist: %s", cfg.Store.Driver, cfg.Blocklist.URL)
	return a, nil
}

// Close releases database and Redis connections.
func (a *App) Close() error {
	var errs []error
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	return errors.Join(errs...)
}

// Run serves the API and runs the refresh worker until ctx is cancelled or
// the HTTP server fails.
func (a *App) Run(ctx context.Context) error {
	authManager := auth.NewAuthManager(a.Config.Auth)
	if !authManager.Enabled() && !a.Config.Auth.DevMode {
		logger.Warn("no admin tokens configured; refresh and rules endpoints will reject every request")
	}

	server := api.NewServer(a.Config.Server, api.Deps{
		Checker:   a.Checker,
		Validator: a.Validator,
		Refresher: a.Updater,
		Store:     a.Store,
		Rules:     a.Rules,
		Auth:      authManager,
		Metrics:   promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}),
	})
	refresher := worker.NewRefreshWorker(a.Updater, worker.RefreshConfig{
		Interval:    a.Config.Blocklist.Interval(),
		SkipInitial: !a.Config.Blocklist.ShouldRefreshOnStart(),
	})

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("API server listening on %s", a.Config.Server.Addr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		refresher.Start(ctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Printf("app: stopped with error: %v", err)
		return err
	}
	log.Println("app: stopped gracefully")
	return nil
}

func openPostgres(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnLifetime())

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	log.Println("Connected to database")
	return db, nil
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	log.Println("Connected to Redis")
	return rdb, nil
}

// newFetcher builds the scheme-routing fetcher. The AWS SDK is only loaded
// when the blocklist lives in S3.
func newFetcher(ctx context.Context, cfg config.BlocklistConfig) (blocklist.Fetcher, error) {
	httpFetcher := blocklist.NewHTTPFetcher(nil, blocklist.HTTPFetcherConfig{
		Timeout:      cfg.Timeout(),
		MaxRetries:   cfg.MaxRetries,
		MaxBodyBytes: cfg.MaxBodyBytes,
	}, nil)

	var s3Fetcher blocklist.Fetcher
	if u, err := url.Parse(cfg.URL); err == nil && strings.EqualFold(u.Scheme, "s3") {
		f, err := blocklist.NewS3FetcherFromConfig(ctx, cfg.S3Region, cfg.AWSProfile, cfg.MaxBodyBytes)
		if err != nil {
			return nil, err
		}
		s3Fetcher = f
	}
	return blocklist.NewMultiFetcher(httpFetcher, s3Fetcher), nil
}
