package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

// Metric selects the distance function used for matching. Fixed per
// deployment; lower distance always means more similar.
type Metric string

const (
	MetricEuclidean Metric = "euclidean"
	MetricCosine    Metric = "cosine"
)

// Distance computes the distance between two equal-length vectors under the
// metric. Callers validate dimensions before reaching here.
func (m Metric) Distance(a, b Embedding) float64 {
	if m == MetricCosine {
		return CosineDistance(a, b)
	}
	return EuclideanDistance(a, b)
}

// Valid reports whether the metric is one of the supported values.
func (m Metric) Valid() bool {
	return m == MetricEuclidean || m == MetricCosine
}

// EuclideanDistance returns the L2 distance between two vectors.
func EuclideanDistance(a, b Embedding) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}

	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// CosineDistance returns 1 - cosine similarity, in [0, 2]. Zero vectors and
// mismatched lengths map to the maximum distance.
func CosineDistance(a, b Embedding) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 2.0
	}

	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp to handle floating point drift.
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}

	return 1 - similarity
}

// ValidateDimension rejects embeddings whose length differs from the
// configured model dimension. Checked at registration and query entry,
// never during a scan.
func ValidateDimension(e Embedding, dim int) error {
	if len(e) == 0 {
		return ValidationError("embedding is empty")
	}
	if len(e) != dim {
		return ValidationError("embedding dimension %d, want %d", len(e), dim)
	}
	return nil
}

// Fingerprint derives the cache key for a query: each component is quantized
// to `precision` decimal digits so near-identical embeddings from consecutive
// frames collapse to the same key, then hashed together with the camera
// context. The quantization width is the collapsing radius.
func Fingerprint(e Embedding, cameraID string, precision int) string {
	scale := math.Pow10(precision)

	h := sha256.New()
	buf := make([]byte, 8)
	for _, v := range e {
		q := int64(math.Round(float64(v) * scale))
		binary.LittleEndian.PutUint64(buf, uint64(q))
		h.Write(buf)
	}
	if cameraID != "" {
		h.Write([]byte{0})
		h.Write([]byte(cameraID))
	}

	return hex.EncodeToString(h.Sum(nil))
}
