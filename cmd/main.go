package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/dig"
	"go.uber.org/zap"

	cachememory "github.com/mvfy/verify/internal/cache/memory"
	"github.com/mvfy/verify/internal/config"
	"github.com/mvfy/verify/internal/domain"
	"github.com/mvfy/verify/internal/extractor/insight"
	"github.com/mvfy/verify/internal/http"
	"github.com/mvfy/verify/internal/http/middleware"
	"github.com/mvfy/verify/internal/index"
	"github.com/mvfy/verify/internal/observability"
	"github.com/mvfy/verify/internal/scheduler"
	storememory "github.com/mvfy/verify/internal/store/memory"
	storeredis "github.com/mvfy/verify/internal/store/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	container := buildContainer()

	err := container.Invoke(func(server *http.Server, sched *scheduler.Scheduler, logger *zap.Logger) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sched.Start(ctx)
		defer sched.Stop()

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start()
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			if err != nil {
				logger.Fatal("server failed", zap.Error(err))
			}
		case sig := <-sigCh:
			logger.Info("shutting down", zap.String("signal", sig.String()))
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer shutdownCancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error("shutdown failed", zap.Error(err))
			}
		}
	})
	if err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}
}

func buildContainer() *dig.Container {
	container := dig.New()

	// Configuration
	if err := container.Provide(config.Load); err != nil {
		log.Fatalf("Failed to provide config: %v", err)
	}
	if err := container.Provide(config.ParseDependenciesConfig); err != nil {
		log.Fatalf("Failed to provide config dependencies: %v", err)
	}

	// Observability
	if err := container.Provide(observability.InitLogger); err != nil {
		log.Fatalf("Failed to provide logger: %v", err)
	}
	if err := container.Provide(func(logger *zap.Logger) domain.EventPublisher {
		return observability.NewEventBus(logger)
	}); err != nil {
		log.Fatalf("Failed to provide event bus: %v", err)
	}

	// Persistence: Redis when configured, in-memory otherwise.
	if err := container.Provide(storeredis.NewClient); err != nil {
		log.Fatalf("Failed to provide redis client: %v", err)
	}
	if err := container.Provide(func(client *goredis.Client) domain.IdentityStore {
		if client == nil {
			return storememory.NewIdentityStore()
		}
		return storeredis.NewIdentityStore(client)
	}); err != nil {
		log.Fatalf("Failed to provide identity store: %v", err)
	}
	if err := container.Provide(func(client *goredis.Client) domain.VisitorStore {
		if client == nil {
			return storememory.NewVisitorStore()
		}
		return storeredis.NewVisitorStore(client)
	}); err != nil {
		log.Fatalf("Failed to provide visitor store: %v", err)
	}

	// Verification cache
	if err := container.Provide(func(cfg *config.CacheConfig) domain.VerificationCache {
		return cachememory.New(cfg.Capacity)
	}); err != nil {
		log.Fatalf("Failed to provide verification cache: %v", err)
	}

	// Candidate index (optional)
	if err := container.Provide(func(cfg *config.MatchConfig) *index.HNSW {
		if !cfg.UseIndex {
			return nil
		}
		return index.NewHNSW(domain.Metric(cfg.Metric))
	}); err != nil {
		log.Fatalf("Failed to provide candidate index: %v", err)
	}

	// Extractor
	if err := container.Provide(func(cfg *insight.Config) domain.Extractor {
		return insight.NewClient(*cfg)
	}); err != nil {
		log.Fatalf("Failed to provide extractor: %v", err)
	}

	// Domain services
	if err := container.Provide(func(
		store domain.IdentityStore,
		cache domain.VerificationCache,
		idx *index.HNSW,
		cfg *config.MatchConfig,
	) (*domain.RegistryService, error) {
		var indexer domain.SnapshotIndexer
		if idx != nil {
			indexer = idx
		}
		return domain.NewRegistryService(context.Background(), store, cache, indexer, cfg.Dimension)
	}); err != nil {
		log.Fatalf("Failed to provide registry service: %v", err)
	}
	if err := container.Provide(func(
		registry *domain.RegistryService,
		cache domain.VerificationCache,
		idx *index.HNSW,
		cfg *config.MatchConfig,
		cacheCfg *config.CacheConfig,
	) (*domain.MatchService, error) {
		var finder domain.CandidateFinder
		if idx != nil {
			finder = idx
		}
		return domain.NewMatchService(registry, cache, finder, domain.MatchConfig{
			Metric:     domain.Metric(cfg.Metric),
			Threshold:  cfg.Threshold,
			Epsilon:    cfg.Epsilon,
			Dimension:  cfg.Dimension,
			Precision:  cfg.Precision,
			CacheTTL:   cacheCfg.TTL,
			CandidateK: cfg.CandidateK,
		})
	}); err != nil {
		log.Fatalf("Failed to provide match service: %v", err)
	}
	if err := container.Provide(func(
		store domain.VisitorStore,
		registry *domain.RegistryService,
		matchCfg *config.MatchConfig,
		cfg *config.VisitorConfig,
	) (*domain.VisitorService, error) {
		return domain.NewVisitorService(store, registry, domain.VisitorConfig{
			Metric:           domain.Metric(matchCfg.Metric),
			Threshold:        matchCfg.Threshold,
			Dimension:        matchCfg.Dimension,
			MinKnowledgeDays: cfg.MinKnowledgeDays,
			MinFrequency:     cfg.MinFrequency,
		})
	}); err != nil {
		log.Fatalf("Failed to provide visitor service: %v", err)
	}

	// Maintenance scheduler
	if err := container.Provide(func(
		cache domain.VerificationCache,
		registry *domain.RegistryService,
		visitors *domain.VisitorService,
		events domain.EventPublisher,
		cfg *config.MaintenanceConfig,
		visitorCfg *config.VisitorConfig,
	) *scheduler.Scheduler {
		jobs := []scheduler.Job{
			scheduler.CacheSweep(cache),
			scheduler.RegistryMaintenance(registry, cfg.DisableGrace),
		}
		if visitorCfg.Enabled {
			jobs = append(jobs, scheduler.VisitorEvaluation(visitors))
		}
		return scheduler.New(cfg.Interval, events, jobs...)
	}); err != nil {
		log.Fatalf("Failed to provide scheduler: %v", err)
	}

	// HTTP layer
	if err := container.Provide(middleware.BuildMiddlewareChain); err != nil {
		log.Fatalf("Failed to provide middleware chain: %v", err)
	}
	if err := container.Provide(http.NewHandler); err != nil {
		log.Fatalf("Failed to provide HTTP handler: %v", err)
	}
	if err := container.Provide(http.NewServer); err != nil {
		log.Fatalf("Failed to provide HTTP server: %v", err)
	}

	return container
}
