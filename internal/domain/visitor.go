package domain

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mvfy/verify/internal/observability"
)

// VisitorConfig tunes unknown-visitor tracking and promotion.
type VisitorConfig struct {
	Metric    Metric
	Threshold float64
	Dimension int

	// MinKnowledgeDays is the minimum age of a visitor before it can be
	// promoted to a registry identity.
	MinKnowledgeDays int

	// MinFrequency is the minimum fraction of days within the knowledge
	// window on which the visitor must have been seen.
	MinFrequency float64
}

// Registrar is the slice of the registry the visitor service needs for
// promotions.
type Registrar interface {
	Register(ctx context.Context, id, displayName string, embeddings []Embedding) (*Identity, error)
}

// VisitorService tracks unknown faces. Repeated sightings of the same face
// bump its frequency; the maintenance pass promotes visitors seen often
// enough over a long enough window into registry identities.
type VisitorService struct {
	store     VisitorStore
	registrar Registrar
	cfg       VisitorConfig

	mu  sync.Mutex
	now func() time.Time
}

// NewVisitorService creates a visitor service (DI constructor).
func NewVisitorService(store VisitorStore, registrar Registrar, cfg VisitorConfig) (*VisitorService, error) {
	if !cfg.Metric.Valid() {
		return nil, ValidationError("unknown distance metric %q", cfg.Metric)
	}
	if cfg.MinKnowledgeDays < 1 {
		cfg.MinKnowledgeDays = 1
	}
	if cfg.MinFrequency <= 0 || cfg.MinFrequency > 1 {
		cfg.MinFrequency = 0.7
	}

	return &VisitorService{
		store:     store,
		registrar: registrar,
		cfg:       cfg,
		now:       time.Now,
	}, nil
}

// Observe records a sighting of an unmatched face. The nearest tracked
// visitor within the threshold absorbs the sighting; otherwise a new visitor
// is created under a fresh author ID.
func (v *VisitorService) Observe(ctx context.Context, embedding Embedding, cameraID string) (*Visitor, error) {
	if err := ValidateDimension(embedding, v.cfg.Dimension); err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	visitors, err := v.store.List(ctx)
	if err != nil {
		return nil, err
	}

	now := v.now().UTC()

	if visitor := v.nearest(visitors, embedding); visitor != nil {
		if !sameDay(visitor.LastSeen, now) {
			visitor.SightingDays++
		}
		visitor.LastSeen = now
		if err := v.store.Save(ctx, visitor); err != nil {
			return nil, err
		}
		return visitor, nil
	}

	visitor := &Visitor{
		Author:       uuid.NewString(),
		Embedding:    embedding,
		CameraID:     cameraID,
		FirstSeen:    now,
		LastSeen:     now,
		SightingDays: 1,
	}
	if err := v.store.Save(ctx, visitor); err != nil {
		return nil, err
	}

	observability.FromContext(ctx).Info("new visitor tracked",
		observability.String("author", visitor.Author),
		observability.String("camera_id", cameraID))

	return visitor, nil
}

// Evaluate promotes qualifying visitors into registry identities and expires
// visitors gone quiet for two knowledge windows. Called by the maintenance
// scheduler; each run is independent and idempotent.
func (v *VisitorService) Evaluate(ctx context.Context) (promoted int, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	visitors, err := v.store.List(ctx)
	if err != nil {
		return 0, err
	}

	logger := observability.FromContext(ctx)
	now := v.now().UTC()
	window := time.Duration(v.cfg.MinKnowledgeDays) * 24 * time.Hour

	for _, visitor := range visitors {
		if now.Sub(visitor.LastSeen) >= 2*window {
			if delErr := v.store.Delete(ctx, visitor.Author); delErr != nil {
				return promoted, delErr
			}
			logger.Info("stale visitor expired",
				observability.String("author", visitor.Author),
				observability.Time("last_seen", visitor.LastSeen))
			continue
		}

		if now.Sub(visitor.FirstSeen) < window {
			continue
		}

		frequency := float64(visitor.SightingDays) / float64(v.cfg.MinKnowledgeDays)
		if frequency < v.cfg.MinFrequency {
			continue
		}

		name := fmt.Sprintf("visitor %s", visitor.Author[:8])
		if _, regErr := v.registrar.Register(ctx, visitor.Author, name, []Embedding{visitor.Embedding}); regErr != nil {
			logger.Warn("visitor promotion failed",
				observability.String("author", visitor.Author),
				observability.Error(regErr))
			continue
		}
		if delErr := v.store.Delete(ctx, visitor.Author); delErr != nil {
			return promoted, delErr
		}

		promoted++
		logger.Info("visitor promoted to identity",
			observability.String("author", visitor.Author),
			observability.Float64("frequency", frequency))
	}

	return promoted, nil
}

// nearest returns the tracked visitor closest to the embedding within the
// threshold, or nil.
func (v *VisitorService) nearest(visitors []*Visitor, embedding Embedding) *Visitor {
	var best *Visitor
	bestDistance := v.cfg.Threshold

	for _, visitor := range visitors {
		d := v.cfg.Metric.Distance(embedding, visitor.Embedding)
		if d <= bestDistance {
			best = visitor
			bestDistance = d
		}
	}

	return best
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
