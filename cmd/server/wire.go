package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"

	"drone-fleet/config"
	"drone-fleet/internal/events"
	"drone-fleet/internal/fleet"
	"drone-fleet/internal/jwt"
	"drone-fleet/internal/lifecycle"
	"drone-fleet/internal/observability"
	"drone-fleet/internal/order"
	"drone-fleet/internal/redis"
	"drone-fleet/internal/store"
	"drone-fleet/internal/store/memory"
	"drone-fleet/internal/store/postgres"
)

type AppContext struct {
	Config *config.Config
	Logger *slog.Logger
	Router *gin.Engine

	Store       store.Store
	Postgres    *postgres.Store
	Redis       goredis.UniversalClient
	Publisher   events.Publisher
	Instruments *observability.Instruments

	// Infrastructure
	JWTService       *jwt.Service
	LocationCache    *redis.LocationCache
	IdempotencyStore *redis.IdempotencyStore
	RateLimiter      *redis.RateLimiter

	Coordinator *fleet.Coordinator
	Manager     *lifecycle.Manager
	Dispatcher  *fleet.Dispatcher

	FleetHandler *fleet.Handler
	OrderHandler *lifecycle.Handler
}

func wireApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, inst *observability.Instruments) (*AppContext, error) {
	app := &AppContext{
		Config:      cfg,
		Logger:      logger,
		Instruments: inst,
		JWTService:  jwt.NewService(cfg.JWT.Secret),
	}

	// ── Store ──
	switch cfg.Store.Driver {
	case config.StorePostgres:
		db, err := postgres.Connect(ctx, cfg.Postgres.DSN(), postgres.PoolConfig{
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Postgres.ConnMaxIdleTime,
		})
		if err != nil {
			return nil, err
		}
		if err := postgres.MigrateUp(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
		app.Postgres = postgres.New(db)
		app.Store = app.Postgres
	default:
		app.Store = memory.New()
	}
	logger.Info("store ready", slog.String("driver", cfg.Store.Driver))

	// ── Redis ──
	fleetOpts := []fleet.Option{
		fleet.WithTracer(inst.Tracer("drone-fleet/fleet")),
		fleet.WithMeter(inst.Meter("drone-fleet/fleet")),
		fleet.WithLogger(logger),
	}
	if cfg.Redis.Enabled {
		rdb, err := newRedisClient(ctx, cfg.Redis)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.Redis = rdb
		app.LocationCache = redis.NewLocationCache(rdb, time.Duration(cfg.Drone.LocationCacheTTLSec)*time.Second)
		app.IdempotencyStore = redis.NewIdempotencyStore(rdb, time.Duration(cfg.Drone.IdempotencyTTLSec)*time.Second)
		app.RateLimiter = redis.NewRateLimiter(rdb, cfg.RateLimiter.MaxRequests, time.Duration(cfg.RateLimiter.WindowSeconds)*time.Second)
		fleetOpts = append(fleetOpts, fleet.WithLocationCache(app.LocationCache))
	}

	// ── Events ──
	if len(cfg.Kafka.Brokers) > 0 {
		app.Publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		logger.Info("publishing events to kafka", slog.String("topic", cfg.Kafka.Topic))
	} else {
		app.Publisher = events.Noop{}
	}

	// ── Domain ──
	app.Coordinator = fleet.NewCoordinator(app.Store, fleetOpts...)
	app.Manager = lifecycle.NewManager(app.Store, app.Coordinator,
		lifecycle.WithPricing(order.Pricing{
			BasePrice:   cfg.Pricing.BasePrice,
			PerKgRate:   cfg.Pricing.PerKgRate,
			DistanceFee: cfg.Pricing.DistanceFee,
		}),
		lifecycle.WithTracer(inst.Tracer("drone-fleet/lifecycle")),
		lifecycle.WithMeter(inst.Meter("drone-fleet/lifecycle")),
		lifecycle.WithLogger(logger),
	)
	if cfg.Dispatcher.Enabled {
		app.Dispatcher = fleet.NewDispatcher(app.Coordinator, app.Publisher,
			cfg.Dispatcher.Schedule, cfg.Dispatcher.Operator, cfg.Dispatcher.Batch, logger)
	}

	// ── Handlers ──
	app.FleetHandler = fleet.NewHandler(app.Coordinator, app.Publisher)
	app.OrderHandler = lifecycle.NewHandler(app.Manager, app.Publisher)

	gin.SetMode(cfg.Server.GinMode)
	app.Router = gin.New()

	return app, nil
}

func newRedisClient(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	var rdb *goredis.Client
	if cfg.URL != "" {
		opts, err := goredis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("redis parse url: %w", err)
		}
		rdb = goredis.NewClient(opts)
	} else {
		rdb = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Addr(),
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	return rdb, nil
}

// Close releases everything wireApp opened. Safe on a partially built app.
func (a *AppContext) Close() error {
	var errs []error
	if a.Dispatcher != nil {
		a.Dispatcher.Stop()
	}
	if a.Publisher != nil {
		errs = append(errs, a.Publisher.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}

func (a *AppContext) healthCheck(c *gin.Context) {
	ctx := c.Request.Context()
	checks := gin.H{"store": "ok"}
	healthy := true

	if a.Postgres != nil {
		db := a.Postgres.DB()
		if err := db.PingContext(ctx); err != nil {
			checks["store"] = err.Error()
			healthy = false
		} else if version, dirty, err := postgres.SchemaVersion(ctx, db); err != nil {
			checks["schema"] = err.Error()
			healthy = false
		} else {
			checks["schema"] = gin.H{"version": version, "dirty": dirty}
			healthy = healthy && !dirty
		}
		checks["pool"] = a.Postgres.PoolMetrics()
	}

	if a.Redis != nil {
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status": checks,
	})
}
