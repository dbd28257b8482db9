package scheduler

import (
	"context"
	"time"

	"github.com/mvfy/verify/internal/domain"
	"github.com/mvfy/verify/internal/observability"
)

// CacheSweep proactively removes expired verification-cache entries,
// bounding memory growth even under low query volume.
func CacheSweep(cache domain.VerificationCache) Job {
	return Job{
		Name: "cache_sweep",
		Run: func(ctx context.Context) error {
			removed := cache.Sweep()
			observability.FromContext(ctx).Debug("cache sweep finished",
				observability.Int("removed", removed),
				observability.Int("remaining", cache.Len()))
			return nil
		},
	}
}

// RegistryMaintenance prunes reference embeddings of identities disabled
// beyond the grace period and recomputes registry summary statistics.
func RegistryMaintenance(registry *domain.RegistryService, grace time.Duration) Job {
	return Job{
		Name: "registry_maintenance",
		Run: func(ctx context.Context) error {
			pruned, stats, err := registry.Maintain(ctx, grace)
			if err != nil {
				return err
			}
			observability.FromContext(ctx).Info("registry maintenance finished",
				observability.Int("pruned_embeddings", pruned),
				observability.Int("active", stats.Active),
				observability.Int("disabled", stats.Disabled))
			return nil
		},
	}
}

// VisitorEvaluation promotes unknown visitors that have been seen often
// enough for long enough into registry identities.
func VisitorEvaluation(visitors *domain.VisitorService) Job {
	return Job{
		Name: "visitor_evaluation",
		Run: func(ctx context.Context) error {
			promoted, err := visitors.Evaluate(ctx)
			if err != nil {
				return err
			}
			if promoted > 0 {
				observability.FromContext(ctx).Info("visitors promoted",
					observability.Int("promoted", promoted))
			}
			return nil
		},
	}
}
