// Package app wires configuration into the running service.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/ubi-africa/ride-core/config"
	"github.com/ubi-africa/ride-core/core/driver"
	"github.com/ubi-africa/ride-core/core/matching"
	coremetrics "github.com/ubi-africa/ride-core/core/metrics"
	corenotify "github.com/ubi-africa/ride-core/core/notify"
	"github.com/ubi-africa/ride-core/core/prediction"
	"github.com/ubi-africa/ride-core/core/pricing"
	coreregistry "github.com/ubi-africa/ride-core/core/registry"
	"github.com/ubi-africa/ride-core/core/ride"
	"github.com/ubi-africa/ride-core/infra/logger"
	"github.com/ubi-africa/ride-core/infra/metrics"
	"github.com/ubi-africa/ride-core/infra/notify"
	infraregistry "github.com/ubi-africa/ride-core/infra/registry"
	"github.com/ubi-africa/ride-core/infra/store"
	"github.com/ubi-africa/ride-core/internal/eventbus"
)

// Service owns every wired component and their shared resources.
type Service struct {
	Rides      *ride.Service
	Drivers    *driver.Service
	Matcher    *matching.Engine
	Prediction *prediction.Service
	Surge      *pricing.Tracker

	bus         eventbus.EventBus
	log         logger.Logger
	promEnabled bool
	promAddr    string

	redisClient *redis.Client
	pgPool      *pgxpool.Pool
	mqttSink    *notify.MQTTSink
}

// New builds the full service graph from the configuration. Disabled
// backends fall back to in-memory implementations.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	logger.Configure(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.New("service")

	svc := &Service{
		log:         log,
		promEnabled: cfg.Metrics.Enabled,
		promAddr:    cfg.Metrics.Addr,
	}

	var sink coremetrics.MetricsSink = coremetrics.NopSink{}
	if cfg.Metrics.Enabled {
		s, err := metrics.NewPromSink()
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sink = s
	}

	var (
		reg        coreregistry.Registry
		rideCache  ride.Cache
		surgeStore pricing.SurgeStore
		histStore  prediction.HistoryStore
		err        error
	)
	if cfg.Redis.Enabled {
		svc.redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := svc.redisClient.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		if reg, err = infraregistry.NewRedisRegistry(svc.redisClient, logger.New("registry")); err != nil {
			return nil, err
		}
		if rideCache, err = infraregistry.NewRideCache(svc.redisClient); err != nil {
			return nil, err
		}
		if surgeStore, err = infraregistry.NewSurgeStore(svc.redisClient); err != nil {
			return nil, err
		}
		if histStore, err = infraregistry.NewHistoryStore(svc.redisClient); err != nil {
			return nil, err
		}
	} else {
		log.Warnf("redis disabled, using in-memory registry")
		reg = coreregistry.NewMemoryRegistry()
		rideCache = ride.NewMemoryCache()
		surgeStore = pricing.NewMemorySurgeStore()
		histStore = prediction.NewMemoryHistoryStore()
	}

	var (
		rideStore   ride.Store
		driverStore driver.Store
	)
	if cfg.Postgres.Enabled {
		svc.pgPool, err = store.Connect(ctx, cfg.Postgres.DSN, log)
		if err != nil {
			return nil, err
		}
		if rideStore, err = store.NewRideStore(svc.pgPool); err != nil {
			return nil, err
		}
		if driverStore, err = store.NewDriverStore(svc.pgPool); err != nil {
			return nil, err
		}
	} else {
		log.Warnf("postgres disabled, rides will not survive a restart")
		rideStore = ride.NewMemoryStore()
		driverStore = driver.NewMemoryStore()
	}

	var notifier corenotify.Sink = corenotify.NopSink{}
	if cfg.MQTT.Enabled {
		svc.mqttSink, err = notify.NewMQTTSink(cfg.MQTT.Transport(), logger.New("notify"))
		if err != nil {
			return nil, err
		}
		notifier = svc.mqttSink
	}

	svc.Surge, err = pricing.NewTracker(surgeStore, cfg.Surge.Core(), logger.New("pricing"))
	if err != nil {
		return nil, err
	}
	quoter, err := pricing.NewEngine(pricing.DefaultRateCards(), svc.Surge, logger.New("pricing"))
	if err != nil {
		return nil, err
	}

	svc.Prediction, err = prediction.NewService(histStore, prediction.DefaultPopularPlaces, cfg.Prediction.Core(), logger.New("prediction"))
	if err != nil {
		return nil, err
	}

	svc.bus = eventbus.New()
	svc.Rides, err = ride.NewService(ride.Config{
		Store:    rideStore,
		Cache:    rideCache,
		Registry: reg,
		Quoter:   quoter,
		Promos:   pricing.NopPromoSource{},
		Notifier: notifier,
		Metrics:  sink,
		Trips:    svc.Prediction,
		Bus:      svc.bus,
		Logger:   logger.New("ride"),
	})
	if err != nil {
		return nil, err
	}

	svc.Drivers, err = driver.NewService(driver.Config{
		Store:    driverStore,
		Registry: reg,
		Rides:    svc.Rides,
		Metrics:  sink,
		Logger:   logger.New("driver"),
	})
	if err != nil {
		return nil, err
	}

	svc.Matcher, err = matching.NewEngine(cfg.Matching.Core(), matching.Deps{
		Registry: reg,
		Drivers:  driverStore,
		Notifier: notifier,
		Bus:      svc.bus,
		Metrics:  sink,
		Logger:   logger.New("matching"),
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// Run starts the background workers and blocks until the context is
// cancelled.
func (s *Service) Run(ctx context.Context) error {
	go s.Matcher.Run(ctx)
	if s.promEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promAddr, s.log); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	s.log.Infof("ride core running")
	<-ctx.Done()
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.bus != nil {
		s.bus.Close()
	}
	if s.mqttSink != nil {
		s.mqttSink.Close()
	}
	if s.pgPool != nil {
		s.pgPool.Close()
	}
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			return err
		}
	}
	return nil
}
