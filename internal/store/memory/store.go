// Package memory provides in-memory document stores, used in tests and
// single-node deployments without Redis.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mvfy/verify/internal/domain"
)

// IdentityStore is an in-memory implementation of domain.IdentityStore.
type IdentityStore struct {
	mu         sync.RWMutex
	identities map[string]domain.Identity
}

// NewIdentityStore creates an empty in-memory identity store.
func NewIdentityStore() *IdentityStore {
	return &IdentityStore{
		identities: make(map[string]domain.Identity),
	}
}

// Insert stores a new identity. Fails with ErrConflict if the ID exists.
func (s *IdentityStore) Insert(_ context.Context, identity *domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.identities[identity.ID]; ok {
		return domain.ConflictError(identity.ID)
	}

	s.identities[identity.ID] = cloneIdentity(identity)
	return nil
}

// Save atomically replaces the identity document.
func (s *IdentityStore) Save(_ context.Context, identity *domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.identities[identity.ID] = cloneIdentity(identity)
	return nil
}

// Get retrieves an identity by ID. Fails with ErrNotFound.
func (s *IdentityStore) Get(_ context.Context, id string) (*domain.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	identity, ok := s.identities[id]
	if !ok {
		return nil, domain.NotFoundError(id)
	}

	out := cloneIdentity(&identity)
	return &out, nil
}

// List returns identities filtered by status; empty status means all.
// Results are ordered by ID for stable pagination upstream.
func (s *IdentityStore) List(_ context.Context, status domain.Status) ([]*domain.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Identity, 0, len(s.identities))
	for _, identity := range s.identities {
		if status != "" && identity.Status != status {
			continue
		}
		clone := cloneIdentity(&identity)
		out = append(out, &clone)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// VisitorStore is an in-memory implementation of domain.VisitorStore.
type VisitorStore struct {
	mu       sync.RWMutex
	visitors map[string]domain.Visitor
}

// NewVisitorStore creates an empty in-memory visitor store.
func NewVisitorStore() *VisitorStore {
	return &VisitorStore{
		visitors: make(map[string]domain.Visitor),
	}
}

// Save upserts a visitor document keyed by author.
func (s *VisitorStore) Save(_ context.Context, visitor *domain.Visitor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.visitors[visitor.Author] = *visitor
	return nil
}

// List returns all tracked visitors ordered by first sighting.
func (s *VisitorStore) List(_ context.Context) ([]*domain.Visitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Visitor, 0, len(s.visitors))
	for _, visitor := range s.visitors {
		clone := visitor
		out = append(out, &clone)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].FirstSeen.Before(out[j].FirstSeen) })
	return out, nil
}

// Delete removes a visitor. Deleting an unknown author is a no-op.
func (s *VisitorStore) Delete(_ context.Context, author string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.visitors, author)
	return nil
}

// cloneIdentity deep-copies the embeddings so callers can't mutate stored
// documents through the returned slice.
func cloneIdentity(identity *domain.Identity) domain.Identity {
	clone := *identity
	clone.Embeddings = make([]domain.Embedding, len(identity.Embeddings))
	for i, e := range identity.Embeddings {
		clone.Embeddings[i] = append(domain.Embedding(nil), e...)
	}
	return clone
}
