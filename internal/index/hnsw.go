// Package index provides an approximate-nearest-neighbor candidate index
// over the registry snapshot, for deployments too large for a full linear
// scan per query.
//
// The index only narrows the scan: the match engine re-scores every returned
// candidate with the exact distance function, so the threshold and tie-break
// policy are identical to the full scan. Recall is that of HNSW search with
// the parameters below (graph-local, not guaranteed 100% against the full
// scan); deployments that cannot tolerate missed neighbors should leave the
// index disabled.
package index

import (
	"fmt"
	"sync"

	"github.com/coder/hnsw"

	"github.com/mvfy/verify/internal/domain"
)

const maxNeighbors = 16 // HNSW M parameter

// HNSW maintains a graph over every reference embedding of the current
// snapshot. Rebuilt wholesale on snapshot publication; reads take a shared
// lock only.
type HNSW struct {
	metric domain.Metric

	mu      sync.RWMutex
	graph   *hnsw.Graph[string]
	nodeIDs map[string]string // graph node key -> identity ID
}

// NewHNSW creates an empty candidate index using the given metric.
func NewHNSW(metric domain.Metric) *HNSW {
	return &HNSW{
		metric:  metric,
		nodeIDs: make(map[string]string),
	}
}

// Rebuild replaces the graph with one built from the snapshot. Called by the
// registry after every mutation, off the match path.
func (h *HNSW) Rebuild(snapshot *domain.Snapshot) {
	g := hnsw.NewGraph[string]()
	g.M = maxNeighbors
	g.Ml = 1.0 / float64(maxNeighbors)
	g.Distance = hnsw.EuclideanDistance
	if h.metric == domain.MetricCosine {
		g.Distance = hnsw.CosineDistance
	}

	nodeIDs := make(map[string]string, len(snapshot.Identities))
	for _, identity := range snapshot.Identities {
		for i, embedding := range identity.Embeddings {
			key := fmt.Sprintf("%s/%d", identity.ID, i)
			g.Add(hnsw.MakeNode(key, embedding))
			nodeIDs[key] = identity.ID
		}
	}

	h.mu.Lock()
	h.graph = g
	h.nodeIDs = nodeIDs
	h.mu.Unlock()
}

// Candidates returns up to k distinct identity IDs nearest the query. An
// empty result means the index holds no vectors.
func (h *HNSW) Candidates(query domain.Embedding, k int) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil || h.graph.Len() == 0 {
		return nil
	}

	// Neighboring embeddings may belong to the same identity; search wider
	// so k distinct identities survive deduplication.
	neighbors := h.graph.Search(query, k*2)

	seen := make(map[string]struct{}, k)
	ids := make([]string, 0, k)
	for _, n := range neighbors {
		id := h.nodeIDs[n.Key]
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
		if len(ids) == k {
			break
		}
	}

	return ids
}
