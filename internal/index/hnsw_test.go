package index_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mvfy/verify/internal/domain"
	"github.com/mvfy/verify/internal/index"
)

func snapshotOf(identities ...domain.SnapshotIdentity) *domain.Snapshot {
	return &domain.Snapshot{
		Identities: identities,
		Version:    1,
		TakenAt:    time.Now().UTC(),
	}
}

func TestHNSW_EmptyIndex(t *testing.T) {
	idx := index.NewHNSW(domain.MetricEuclidean)
	require.Nil(t, idx.Candidates(domain.Embedding{1, 0, 0}, 5))

	idx.Rebuild(snapshotOf())
	require.Nil(t, idx.Candidates(domain.Embedding{1, 0, 0}, 5))
}

func TestHNSW_NearestFirst(t *testing.T) {
	idx := index.NewHNSW(domain.MetricEuclidean)
	idx.Rebuild(snapshotOf(
		domain.SnapshotIdentity{ID: "near", Embeddings: []domain.Embedding{{1, 0, 0}}},
		domain.SnapshotIdentity{ID: "far", Embeddings: []domain.Embedding{{0, 0, 9}}},
	))

	got := idx.Candidates(domain.Embedding{0.9, 0.1, 0}, 1)
	require.Equal(t, []string{"near"}, got)
}

func TestHNSW_DeduplicatesIdentities(t *testing.T) {
	idx := index.NewHNSW(domain.MetricEuclidean)
	idx.Rebuild(snapshotOf(
		// Two embeddings of the same identity cluster around the query.
		domain.SnapshotIdentity{ID: "alice", Embeddings: []domain.Embedding{{1, 0, 0}, {1.01, 0, 0}}},
		domain.SnapshotIdentity{ID: "bob", Embeddings: []domain.Embedding{{0, 1, 0}}},
		domain.SnapshotIdentity{ID: "carol", Embeddings: []domain.Embedding{{0, 0, 1}}},
	))

	got := idx.Candidates(domain.Embedding{1, 0, 0}, 2)
	require.Len(t, got, 2)
	require.Equal(t, "alice", got[0])
	require.NotContains(t, got[1:], "alice")
}

func TestHNSW_RebuildReplacesGraph(t *testing.T) {
	idx := index.NewHNSW(domain.MetricEuclidean)
	idx.Rebuild(snapshotOf(
		domain.SnapshotIdentity{ID: "old", Embeddings: []domain.Embedding{{1, 0, 0}}},
	))

	idx.Rebuild(snapshotOf(
		domain.SnapshotIdentity{ID: "new", Embeddings: []domain.Embedding{{1, 0, 0}}},
	))

	got := idx.Candidates(domain.Embedding{1, 0, 0}, 5)
	require.Equal(t, []string{"new"}, got)
}

func TestHNSW_CosineMetric(t *testing.T) {
	idx := index.NewHNSW(domain.MetricCosine)
	idx.Rebuild(snapshotOf(
		// Same direction, different magnitude: cosine treats these as close.
		domain.SnapshotIdentity{ID: "aligned", Embeddings: []domain.Embedding{{10, 0, 0}}},
		domain.SnapshotIdentity{ID: "orthogonal", Embeddings: []domain.Embedding{{0, 1, 0}}},
	))

	got := idx.Candidates(domain.Embedding{0.5, 0, 0}, 1)
	require.Equal(t, []string{"aligned"}, got)
}
