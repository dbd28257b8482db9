package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mvfy/verify/internal/domain"
	"github.com/mvfy/verify/internal/store/memory"
)

func identity(id string, status domain.Status) *domain.Identity {
	now := time.Now().UTC()
	return &domain.Identity{
		ID:          id,
		DisplayName: id,
		Embeddings:  []domain.Embedding{{0.1, 0.2, 0.3}},
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestIdentityStore_InsertGet(t *testing.T) {
	ctx := context.Background()
	store := memory.NewIdentityStore()

	require.NoError(t, store.Insert(ctx, identity("alice", domain.StatusActive)))

	got, err := store.Get(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "alice", got.ID)

	_, err = store.Get(ctx, "ghost")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIdentityStore_InsertConflict(t *testing.T) {
	ctx := context.Background()
	store := memory.NewIdentityStore()

	require.NoError(t, store.Insert(ctx, identity("alice", domain.StatusActive)))
	require.ErrorIs(t, store.Insert(ctx, identity("alice", domain.StatusActive)), domain.ErrConflict)
}

func TestIdentityStore_ListFiltersByStatus(t *testing.T) {
	ctx := context.Background()
	store := memory.NewIdentityStore()

	require.NoError(t, store.Insert(ctx, identity("alice", domain.StatusActive)))
	require.NoError(t, store.Insert(ctx, identity("bob", domain.StatusDisabled)))

	active, err := store.List(ctx, domain.StatusActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "alice", active[0].ID)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	// Ordered by ID.
	require.Equal(t, "alice", all[0].ID)
	require.Equal(t, "bob", all[1].ID)
}

func TestIdentityStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := memory.NewIdentityStore()

	require.NoError(t, store.Insert(ctx, identity("alice", domain.StatusActive)))

	got, err := store.Get(ctx, "alice")
	require.NoError(t, err)

	// Mutating the returned document must not touch the stored one.
	got.Embeddings[0][0] = 99
	got.Status = domain.StatusDisabled

	fresh, err := store.Get(ctx, "alice")
	require.NoError(t, err)
	require.InDelta(t, 0.1, float64(fresh.Embeddings[0][0]), 1e-6)
	require.Equal(t, domain.StatusActive, fresh.Status)
}

func TestVisitorStore_SaveListDelete(t *testing.T) {
	ctx := context.Background()
	store := memory.NewVisitorStore()

	now := time.Now().UTC()
	require.NoError(t, store.Save(ctx, &domain.Visitor{
		Author:    "v-1",
		Embedding: domain.Embedding{0.1, 0.2, 0.3},
		FirstSeen: now.Add(-time.Hour),
		LastSeen:  now,
	}))
	require.NoError(t, store.Save(ctx, &domain.Visitor{
		Author:    "v-2",
		Embedding: domain.Embedding{0.4, 0.5, 0.6},
		FirstSeen: now,
		LastSeen:  now,
	}))

	visitors, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, visitors, 2)
	// Ordered by first sighting.
	require.Equal(t, "v-1", visitors[0].Author)

	require.NoError(t, store.Delete(ctx, "v-1"))
	require.NoError(t, store.Delete(ctx, "v-1")) // no-op

	visitors, err = store.List(ctx)
	require.NoError(t, err)
	require.Len(t, visitors, 1)
}
