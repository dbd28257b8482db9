package domain

import (
	"context"
	"time"
)

// Extractor is the face-extraction capability. It is external: the core
// consumes it behind this interface and never implements the model itself.
type Extractor interface {
	// Extract returns every face found in the image, with bounding boxes and
	// embeddings. An image with no faces yields an empty slice and no error.
	// Undecodable input fails with ErrUnsupportedImage; sidecar failures and
	// timeouts fail with ErrUpstream.
	Extract(ctx context.Context, image []byte, format string) ([]Detection, error)
}

// IdentityStore is the document-store boundary for identity records.
type IdentityStore interface {
	// Insert stores a new identity. Fails with ErrConflict if the ID exists.
	Insert(ctx context.Context, identity *Identity) error

	// Save atomically replaces the identity document.
	Save(ctx context.Context, identity *Identity) error

	// Get retrieves an identity by ID. Fails with ErrNotFound.
	Get(ctx context.Context, id string) (*Identity, error)

	// List returns identities filtered by status; empty status means all.
	List(ctx context.Context, status Status) ([]*Identity, error)
}

// VisitorStore is the document-store boundary for unknown-visitor records.
type VisitorStore interface {
	// Save upserts a visitor document keyed by author.
	Save(ctx context.Context, visitor *Visitor) error

	// List returns all tracked visitors.
	List(ctx context.Context) ([]*Visitor, error)

	// Delete removes a visitor. Deleting an unknown author is a no-op.
	Delete(ctx context.Context, author string) error
}

// VerificationCache memoizes recent match decisions by query fingerprint.
// Implementations are in-process and must be safe for concurrent use without
// a global lock on the read path.
type VerificationCache interface {
	// Get returns the live entry for a fingerprint. Expired entries are never
	// returned; they are lazily purged on read.
	Get(fingerprint string) (*CacheEntry, bool)

	// Put stores a decision under the fingerprint with the given TTL.
	Put(fingerprint string, result MatchResult, ttl time.Duration)

	// InvalidateByIdentity drops every entry whose decision references the
	// identity, returning the number removed.
	InvalidateByIdentity(identityID string) int

	// Sweep removes all expired entries, returning the number removed.
	Sweep() int

	// Len reports the current number of live entries.
	Len() int
}

// Snapshotter supplies the immutable identity snapshot the match engine scans.
type Snapshotter interface {
	Snapshot() *Snapshot
}

// CandidateFinder narrows a scan to the identities nearest a query, for
// deployments where the registry is too large for a full linear pass.
type CandidateFinder interface {
	// Candidates returns up to k identity IDs nearest the query embedding.
	// An empty result means the finder holds no vectors yet.
	Candidates(query Embedding, k int) []string
}

// EventPublisher publishes operational events for observability.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data map[string]any)
}
