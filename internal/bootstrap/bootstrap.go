// Package bootstrap assembles the store, caches, services and router from configuration.
// Both the HTTP server and the Lambda handler start from here.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"

	"github.com/SigNoz/pcparts-store/internal/api"
	"github.com/SigNoz/pcparts-store/internal/auth"
	"github.com/SigNoz/pcparts-store/internal/build"
	"github.com/SigNoz/pcparts-store/internal/cache"
	"github.com/SigNoz/pcparts-store/internal/cart"
	"github.com/SigNoz/pcparts-store/internal/catalog"
	"github.com/SigNoz/pcparts-store/internal/db"
	"github.com/SigNoz/pcparts-store/internal/metrics"
	"github.com/SigNoz/pcparts-store/internal/models"
	"github.com/SigNoz/pcparts-store/internal/pricing"
	"github.com/SigNoz/pcparts-store/internal/services"
	"github.com/SigNoz/pcparts-store/internal/store"
	"github.com/SigNoz/pcparts-store/internal/store/gormstore"
	"github.com/SigNoz/pcparts-store/internal/store/memory"
	"github.com/SigNoz/pcparts-store/internal/store/sqlstore"
	"github.com/SigNoz/pcparts-store/pkg/config"
)

// Runtime is a fully wired application
type Runtime struct {
	Router  *mux.Router
	Store   store.Store
	Metrics *metrics.AppMetrics

	meterProvider *sdkmetric.MeterProvider
	redis         *cache.RedisClient
	log           *zap.Logger
}

// migrator is implemented by the SQL backends
type migrator interface {
	Migrate(ctx context.Context) error
	Seed(ctx context.Context, components []models.Component) error
}

// New wires every component selected by cfg
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Runtime, error) {
	rt := &Runtime{log: log}

	var meter metric.Meter
	if cfg.MetricsEnabled {
		appMetrics, mp, err := metrics.InitMetrics(ctx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
		rt.Metrics, rt.meterProvider = appMetrics, mp
		meter = mp.Meter(cfg.OTELServiceName)
	} else {
		log.Info("Metrics export disabled")
		rt.Metrics = metrics.NewNoop(cfg.OTELServiceName)
		meter = noop.NewMeterProvider().Meter(cfg.OTELServiceName)
	}

	seed, err := catalog.Default()
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	if !cfg.SeedCatalog {
		seed = nil
	}

	s, err := openStore(ctx, cfg, seed, meter, rt.Metrics, log)
	if err != nil {
		rt.Shutdown(ctx)
		return nil, err
	}
	rt.Store = s

	var lists *cache.ComponentLists
	storageFor := sharedStorage(cart.NewMemoryStorage())
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, log)
		if err != nil {
			rt.Shutdown(ctx)
			return nil, err
		}
		rt.redis = rc
		lists = cache.NewComponentLists(rc.GetClient(), cfg.CacheTTL)
		storageFor = func(session string) cart.Storage {
			return cart.NewRedisStorage(rc.GetClient(), session, cfg.CartTTL)
		}
	} else {
		log.Info("REDIS_ADDR not set, using in-process carts and no listing cache")
	}

	rules := build.DefaultRules()
	if cfg.BuildRulesPath != "" {
		rules, err = build.LoadRules(cfg.BuildRulesPath)
		if err != nil {
			rt.Shutdown(ctx)
			return nil, err
		}
		log.Info("Loaded build rules", zap.String("path", cfg.BuildRulesPath))
	}

	var priceClient *pricing.Client
	if cfg.PriceServiceURL != "" {
		priceClient = pricing.NewClient(cfg.PriceServiceURL, cfg.PriceServiceTimeout, log)
	}

	demo := models.User{ID: cfg.DemoUserID, Email: cfg.DemoUserEmail, Name: cfg.DemoUserName}

	componentService := services.NewComponentService(s, rt.Metrics, log, cfg.CacheTTL, lists)
	app := api.NewApp(cfg, s, rt.Metrics, log,
		componentService,
		services.NewBuildService(s, componentService, build.NewAggregator(rules), rt.Metrics, log),
		services.NewCartService(componentService, storageFor, rt.Metrics, log),
		services.NewUserService(auth.NewIssuer(cfg.JWTSigningKey, cfg.JWTExpiration), demo, log),
		services.NewPriceService(priceClient, rt.Metrics, log),
	)

	rt.Router = mux.NewRouter()
	app.SetupRoutes(rt.Router)
	return rt, nil
}

func sharedStorage(inner cart.Storage) services.StorageFactory {
	return func(session string) cart.Storage {
		return cart.ForSession(inner, session)
	}
}

func openStore(ctx context.Context, cfg *config.Config, seed []models.Component, meter metric.Meter, m *metrics.AppMetrics, log *zap.Logger) (store.Store, error) {
	log.Info("Opening store", zap.String("backend", cfg.StoreBackend))

	var (
		s   store.Store
		mig migrator
	)
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return memory.New(seed), nil

	case config.BackendMySQL, config.BackendPostgres:
		dialect, dsn := db.MySQL, cfg.GetMySQLDSN()
		if cfg.StoreBackend == config.BackendPostgres {
			dialect, dsn = db.Postgres, cfg.DatabaseURL
		}
		database, err := db.NewDB(ctx, dialect, dsn, meter, cfg.OTELServiceName, log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		sq := sqlstore.New(database, m, log)
		s, mig = sq, sq

	case config.BackendGormPostgres, config.BackendSQLite:
		opts := gormstore.Options{LogLevel: gormLogLevel(cfg.LogLevel)}
		var (
			gs  *gormstore.Store
			err error
		)
		if cfg.StoreBackend == config.BackendSQLite {
			gs, err = gormstore.OpenSQLite(cfg.SQLitePath, opts, m, log)
		} else {
			gs, err = gormstore.OpenPostgres(cfg.DatabaseURL, opts, m, log)
		}
		if err != nil {
			return nil, err
		}
		s, mig = gs, gs

	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	if err := mig.Migrate(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to migrate %s store: %w", cfg.StoreBackend, err)
	}
	if len(seed) > 0 {
		if err := mig.Seed(ctx, seed); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to seed %s store: %w", cfg.StoreBackend, err)
		}
	}
	return s, nil
}

func gormLogLevel(level string) string {
	switch level {
	case "debug":
		return "info"
	case "error":
		return "error"
	default:
		return "warn"
	}
}

// Shutdown releases the store, Redis and the meter provider
func (rt *Runtime) Shutdown(ctx context.Context) {
	if rt.Store != nil {
		if err := rt.Store.Close(); err != nil {
			rt.log.Error("Error closing store", zap.Error(err))
		}
	}
	if rt.redis != nil {
		rt.redis.Close()
	}
	if rt.meterProvider != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rt.meterProvider.Shutdown(shutdownCtx); err != nil {
			rt.log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}
}
