package domain

import "time"

// Embedding is a fixed-length face descriptor produced by the extraction
// sidecar. Immutable once produced; dimension is validated at registration.
type Embedding []float32

// Status describes whether an identity participates in matching.
type Status string

const (
	// StatusActive marks an identity as matchable.
	StatusActive Status = "active"

	// StatusDisabled excludes an identity from matching. Disabled identities
	// keep their reference embeddings until the maintenance grace period ends.
	StatusDisabled Status = "disabled"
)

// Identity is a registered person with one or more reference embeddings.
type Identity struct {
	ID          string      `json:"id"`
	DisplayName string      `json:"display_name"`
	Embeddings  []Embedding `json:"embeddings"`
	Status      Status      `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Matchable reports whether the identity can produce a match decision.
func (i *Identity) Matchable() bool {
	return i.Status == StatusActive && len(i.Embeddings) > 0
}

// MatchQuery is a single verification request. Transient; never persisted
// beyond the cache lifetime of its decision.
type MatchQuery struct {
	Embedding Embedding `json:"embedding"`
	CameraID  string    `json:"camera_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Source tells where a match decision came from.
type Source string

const (
	// SourceCache marks a decision served from the verification cache.
	SourceCache Source = "cache"

	// SourceRegistry marks a decision computed against the registry.
	SourceRegistry Source = "registry"
)

// MatchResult is the decision for one query embedding.
type MatchResult struct {
	Matched    bool      `json:"matched"`
	IdentityID string    `json:"identity_id,omitempty"`
	Distance   float64   `json:"distance"`
	DecidedAt  time.Time `json:"decided_at"`
	Source     Source    `json:"source"`
}

// CacheEntry is a memoized match decision keyed by query fingerprint.
type CacheEntry struct {
	Fingerprint string
	Result      MatchResult
	ExpiresAt   time.Time
}

// Expired reports whether the entry is past its TTL at the given instant.
func (e *CacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// BoundingBox locates a detected face within the source image.
type BoundingBox struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// Detection is one face found by the extraction sidecar.
type Detection struct {
	Box       BoundingBox `json:"box"`
	Embedding Embedding   `json:"embedding"`
}

// Visitor tracks an unknown face seen by the system. Visitors seen often
// enough over a long enough window are promoted to registry identities by
// the maintenance pass.
type Visitor struct {
	Author       string    `json:"author"`
	Embedding    Embedding `json:"embedding"`
	CameraID     string    `json:"camera_id,omitempty"`
	FirstSeen    time.Time `json:"first_seen"`
	LastSeen     time.Time `json:"last_seen"`
	SightingDays int       `json:"sighting_days"`
}

// SnapshotIdentity is the scan-path projection of an active identity.
type SnapshotIdentity struct {
	ID         string
	Embeddings []Embedding
}

// Snapshot is an immutable copy of all matchable identities. Readers scan it
// without taking any registry lock; writers publish a fresh snapshot after
// every mutation.
type Snapshot struct {
	Identities []SnapshotIdentity
	Version    int64
	TakenAt    time.Time
}

// EmbeddingCount returns the total number of reference embeddings in the snapshot.
func (s *Snapshot) EmbeddingCount() int {
	n := 0
	for _, id := range s.Identities {
		n += len(id.Embeddings)
	}
	return n
}

// RegistryStats summarizes registry contents, recomputed by the maintenance pass.
type RegistryStats struct {
	Active     int       `json:"active"`
	Disabled   int       `json:"disabled"`
	Embeddings int       `json:"embeddings"`
	ComputedAt time.Time `json:"computed_at"`
}
