package domain

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mvfy/verify/internal/observability"
)

// SnapshotIndexer is notified whenever the registry publishes a new snapshot,
// so a candidate index can rebuild off the write path.
type SnapshotIndexer interface {
	Rebuild(snapshot *Snapshot)
}

// RegistryService owns identity records: registration, embedding additions,
// disablement, listing. It publishes an immutable snapshot of matchable
// identities after every mutation so the match path never takes a lock.
type RegistryService struct {
	store   IdentityStore
	cache   VerificationCache
	indexer SnapshotIndexer
	dim     int

	mu      sync.Mutex // serializes mutations; readers use the snapshot
	snap    atomic.Pointer[Snapshot]
	version atomic.Int64
	stats   atomic.Pointer[RegistryStats]
}

// NewRegistryService creates the registry and loads the initial snapshot from
// the store (DI constructor). indexer may be nil.
func NewRegistryService(
	ctx context.Context,
	store IdentityStore,
	cache VerificationCache,
	indexer SnapshotIndexer,
	dimension int,
) (*RegistryService, error) {
	if dimension <= 0 {
		return nil, ValidationError("embedding dimension must be positive, got %d", dimension)
	}

	r := &RegistryService{
		store:   store,
		cache:   cache,
		indexer: indexer,
		dim:     dimension,
	}

	if err := r.refresh(ctx); err != nil {
		return nil, err
	}

	return r, nil
}

// Register creates a new identity with the given reference embeddings.
// Fails with ErrValidation when no embeddings are supplied or a dimension
// mismatches, and with ErrConflict on a duplicate ID.
func (r *RegistryService) Register(ctx context.Context, id, displayName string, embeddings []Embedding) (*Identity, error) {
	if id == "" {
		return nil, ValidationError("identity id is required")
	}
	if len(embeddings) == 0 {
		return nil, ValidationError("identity %q needs at least one reference embedding", id)
	}
	for _, e := range embeddings {
		if err := ValidateDimension(e, r.dim); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	identity := &Identity{
		ID:          id,
		DisplayName: displayName,
		Embeddings:  embeddings,
		Status:      StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Insert(ctx, identity); err != nil {
		return nil, err
	}
	if err := r.refresh(ctx); err != nil {
		return nil, err
	}

	observability.FromContext(ctx).Info("identity registered",
		observability.String("identity_id", id),
		observability.Int("embeddings", len(embeddings)))

	return identity, nil
}

// AddEmbedding appends a reference embedding to an existing identity.
func (r *RegistryService) AddEmbedding(ctx context.Context, id string, embedding Embedding) (*Identity, error) {
	if err := ValidateDimension(embedding, r.dim); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	identity, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	identity.Embeddings = append(identity.Embeddings, embedding)
	identity.UpdatedAt = time.Now().UTC()

	if err := r.store.Save(ctx, identity); err != nil {
		return nil, err
	}
	if err := r.refresh(ctx); err != nil {
		return nil, err
	}

	return identity, nil
}

// Disable flips an identity to disabled and drops every cached decision that
// references it, before returning. Disabling an already-disabled identity is
// an idempotent success.
func (r *RegistryService) Disable(ctx context.Context, id string) (*Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if identity.Status == StatusDisabled {
		return identity, nil
	}

	identity.Status = StatusDisabled
	identity.UpdatedAt = time.Now().UTC()

	if err := r.store.Save(ctx, identity); err != nil {
		return nil, err
	}
	if err := r.refresh(ctx); err != nil {
		return nil, err
	}

	// Invalidation happens under the mutation lock: no later cache read can
	// observe a positive match for a disabled identity.
	dropped := r.cache.InvalidateByIdentity(id)

	observability.FromContext(ctx).Info("identity disabled",
		observability.String("identity_id", id),
		observability.Int("cache_entries_dropped", dropped))

	return identity, nil
}

// Get retrieves an identity by ID.
func (r *RegistryService) Get(ctx context.Context, id string) (*Identity, error) {
	return r.store.Get(ctx, id)
}

// List returns identities filtered by status; empty status means all.
func (r *RegistryService) List(ctx context.Context, status Status) ([]*Identity, error) {
	return r.store.List(ctx, status)
}

// Snapshot returns the current immutable scan snapshot.
func (r *RegistryService) Snapshot() *Snapshot {
	return r.snap.Load()
}

// Stats returns the registry summary, recomputed on every mutation and
// maintenance pass.
func (r *RegistryService) Stats() RegistryStats {
	if s := r.stats.Load(); s != nil {
		return *s
	}
	return RegistryStats{}
}

// Maintain prunes reference embeddings of identities disabled for longer than
// the grace period and recomputes summary statistics. Idempotent; called by
// the maintenance scheduler.
func (r *RegistryService) Maintain(ctx context.Context, grace time.Duration) (pruned int, stats RegistryStats, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	identities, err := r.store.List(ctx, "")
	if err != nil {
		return 0, RegistryStats{}, err
	}

	cutoff := time.Now().UTC().Add(-grace)
	stats.ComputedAt = time.Now().UTC()

	for _, identity := range identities {
		if identity.Status == StatusDisabled && len(identity.Embeddings) > 0 && identity.UpdatedAt.Before(cutoff) {
			pruned += len(identity.Embeddings)
			identity.Embeddings = nil
			identity.UpdatedAt = time.Now().UTC()
			if saveErr := r.store.Save(ctx, identity); saveErr != nil {
				return pruned, stats, saveErr
			}
		}

		switch identity.Status {
		case StatusDisabled:
			stats.Disabled++
		default:
			stats.Active++
		}
		stats.Embeddings += len(identity.Embeddings)
	}

	r.stats.Store(&stats)

	if pruned > 0 {
		if err := r.refresh(ctx); err != nil {
			return pruned, stats, err
		}
	}

	return pruned, stats, nil
}

// refresh rebuilds the scan snapshot and summary stats from the store.
// Callers hold r.mu except during construction.
func (r *RegistryService) refresh(ctx context.Context) error {
	identities, err := r.store.List(ctx, "")
	if err != nil {
		return err
	}

	snap := &Snapshot{
		Identities: make([]SnapshotIdentity, 0, len(identities)),
		Version:    r.version.Add(1),
		TakenAt:    time.Now().UTC(),
	}
	stats := RegistryStats{ComputedAt: snap.TakenAt}

	for _, identity := range identities {
		switch identity.Status {
		case StatusDisabled:
			stats.Disabled++
		default:
			stats.Active++
		}
		stats.Embeddings += len(identity.Embeddings)

		if !identity.Matchable() {
			continue
		}
		snap.Identities = append(snap.Identities, SnapshotIdentity{
			ID:         identity.ID,
			Embeddings: identity.Embeddings,
		})
	}

	r.snap.Store(snap)
	r.stats.Store(&stats)

	if r.indexer != nil {
		r.indexer.Rebuild(snap)
	}

	observability.FromContext(ctx).Debug("snapshot published",
		observability.Int64("version", snap.Version),
		observability.Int("identities", len(snap.Identities)),
		observability.Int("embeddings", snap.EmbeddingCount()))

	return nil
}
