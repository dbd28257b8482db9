package domain

import (
	"context"
	"math"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mvfy/verify/internal/observability"
)

// MatchConfig carries the deployment-specific matching constants. Metric,
// threshold, dimension and fingerprint precision come from configuration,
// never from code.
type MatchConfig struct {
	Metric     Metric
	Threshold  float64
	Epsilon    float64
	Dimension  int
	Precision  int
	CacheTTL   time.Duration
	CandidateK int
}

// MatchService decides match/no-match for query embeddings against the
// registry snapshot, memoizing recent decisions in the verification cache.
type MatchService struct {
	snapshots Snapshotter
	cache     VerificationCache
	finder    CandidateFinder
	cfg       MatchConfig
	group     singleflight.Group
	now       func() time.Time
}

// NewMatchService creates a match service (DI constructor). finder may be nil;
// the engine then always performs a full linear scan.
func NewMatchService(
	snapshots Snapshotter,
	cache VerificationCache,
	finder CandidateFinder,
	cfg MatchConfig,
) (*MatchService, error) {
	if !cfg.Metric.Valid() {
		return nil, ValidationError("unknown distance metric %q", cfg.Metric)
	}
	if cfg.Threshold <= 0 {
		return nil, ValidationError("threshold must be positive, got %v", cfg.Threshold)
	}
	if cfg.Dimension <= 0 {
		return nil, ValidationError("embedding dimension must be positive, got %d", cfg.Dimension)
	}
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = 1e-9
	}

	return &MatchService{
		snapshots: snapshots,
		cache:     cache,
		finder:    finder,
		cfg:       cfg,
		now:       time.Now,
	}, nil
}

// Match decides whether the query embedding belongs to a registered identity.
// Cache hits return immediately with Source=cache; misses scan the registry
// snapshot, with concurrent scans for the same fingerprint collapsed into one.
func (s *MatchService) Match(ctx context.Context, query MatchQuery) (MatchResult, error) {
	if err := ValidateDimension(query.Embedding, s.cfg.Dimension); err != nil {
		return MatchResult{}, err
	}

	logger := observability.FromContext(ctx)
	fp := Fingerprint(query.Embedding, query.CameraID, s.cfg.Precision)

	if entry, ok := s.cache.Get(fp); ok {
		result := entry.Result
		result.Source = SourceCache
		logger.Debug("verification cache hit",
			observability.String("fingerprint", fp),
			observability.Bool("matched", result.Matched))
		return result, nil
	}

	v, _, shared := s.group.Do(fp, func() (any, error) {
		// A concurrent caller may have populated the cache between our miss
		// and acquiring the flight.
		if entry, ok := s.cache.Get(fp); ok {
			result := entry.Result
			result.Source = SourceCache
			return result, nil
		}

		result := s.decide(query)
		s.cache.Put(fp, result, s.cfg.CacheTTL)
		return result, nil
	})

	result := v.(MatchResult)
	logger.Info("match decided",
		observability.String("fingerprint", fp),
		observability.Bool("matched", result.Matched),
		observability.Float64("distance", result.Distance),
		observability.Bool("shared_scan", shared))

	return result, nil
}

// decide runs the scan and applies the threshold and tie-break policy.
func (s *MatchService) decide(query MatchQuery) MatchResult {
	snap := s.snapshots.Snapshot()

	identities := snap.Identities
	if s.finder != nil && s.cfg.CandidateK > 0 {
		if ids := s.finder.Candidates(query.Embedding, s.cfg.CandidateK); len(ids) > 0 {
			identities = filterSnapshot(identities, ids)
		}
	}

	best, runnerUp := scanNearest(s.cfg.Metric, identities, query.Embedding)

	result := MatchResult{
		Distance:  best.distance,
		DecidedAt: s.now(),
		Source:    SourceRegistry,
	}

	if best.identityID == "" || best.distance > s.cfg.Threshold {
		result.Distance = best.distance
		if math.IsInf(best.distance, 1) {
			result.Distance = 0
		}
		return result
	}

	// Two identities tied at the minimal distance: ambiguity never resolves
	// to an identity.
	if runnerUp.identityID != "" && runnerUp.distance-best.distance <= s.cfg.Epsilon {
		return result
	}

	result.Matched = true
	result.IdentityID = best.identityID
	return result
}

type nearest struct {
	identityID string
	distance   float64
}

// scanNearest returns the globally nearest identity and the nearest distinct
// runner-up identity, for tie-break detection.
func scanNearest(metric Metric, identities []SnapshotIdentity, query Embedding) (nearest, nearest) {
	best := nearest{distance: math.Inf(1)}
	runnerUp := nearest{distance: math.Inf(1)}

	for _, id := range identities {
		for _, ref := range id.Embeddings {
			d := metric.Distance(query, ref)
			switch {
			case d < best.distance:
				if best.identityID != id.ID {
					runnerUp = best
				}
				best = nearest{identityID: id.ID, distance: d}
			case id.ID != best.identityID && d < runnerUp.distance:
				runnerUp = nearest{identityID: id.ID, distance: d}
			}
		}
	}

	return best, runnerUp
}

func filterSnapshot(identities []SnapshotIdentity, ids []string) []SnapshotIdentity {
	keep := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		keep[id] = struct{}{}
	}

	filtered := make([]SnapshotIdentity, 0, len(ids))
	for _, identity := range identities {
		if _, ok := keep[identity.ID]; ok {
			filtered = append(filtered, identity)
		}
	}
	return filtered
}
