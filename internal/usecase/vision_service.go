package usecase

import (
	"math"

	"github.com/ryanzhouuu/Vintdex/internal/domain"
)

// Vector normalization constants
const (
	sparsityThreshold = 0.15 // components below this fraction of max are zeroed
	compressionPower  = 0.7  // power-law compression exponent
)

// Similarity scoring constants
const (
	strongFeatureThreshold = 0.3 // magnitude above which a component counts as strong
	magnitudeAgreement     = 0.3 // max magnitude difference for a strong-feature match
	cosineWeight           = 0.6
	matchQualityWeight     = 0.4
	scoreCompressionPower  = 0.7
)

// ConfidenceBuckets maps a raw similarity score to a coarse reliability
// level. The boundaries are hand-tuned; treat as configuration rather
// than invariants.
type ConfidenceBuckets struct {
	High float64 // score above this -> confidence 1.0
	Mid  float64 // score above this -> confidence 0.8
	Low  float64 // score above this -> confidence 0.6, else 0
}

// DefaultConfidenceBuckets are the production boundaries.
func DefaultConfidenceBuckets() ConfidenceBuckets {
	return ConfidenceBuckets{High: 0.85, Mid: 0.75, Low: 0.65}
}

// VisionService computes similarity between image feature embeddings.
// The embeddings themselves come from a FeatureExtractor; the service
// owns the normalization and comparison math only.
type VisionService struct {
	buckets ConfidenceBuckets
}

// NewVisionService creates a vision service. Zero-valued buckets fall
// back to the production defaults.
func NewVisionService(buckets ConfidenceBuckets) *VisionService {
	if buckets.High <= 0 && buckets.Mid <= 0 && buckets.Low <= 0 {
		buckets = DefaultConfidenceBuckets()
	}
	return &VisionService{buckets: buckets}
}

// Normalize applies the sparsifying normalization to a raw embedding:
// scale by the maximum absolute component, zero out near-zero components,
// and power-compress the remainder. Suppresses noise and compresses
// dynamic range before comparison. Returns a new vector.
func (s *VisionService) Normalize(v domain.FeatureVector) domain.FeatureVector {
	out := make(domain.FeatureVector, len(v))

	maxAbs := 0.0
	for _, x := range v {
		if a := math.Abs(x); a > maxAbs {
			maxAbs = a
		}
	}
	if maxAbs == 0 {
		return out
	}

	for i, x := range v {
		scaled := x / maxAbs
		abs := math.Abs(scaled)
		if abs < sparsityThreshold {
			continue
		}
		out[i] = math.Copysign(math.Pow(abs, compressionPower), scaled)
	}
	return out
}

// Similarity returns a bounded score in [0,1] for two normalized vectors.
// It blends cosine similarity with a strong-feature match quality, then
// power-compresses the result. NaN (e.g. a zero-norm vector) maps to 0.
func (s *VisionService) Similarity(a, b domain.FeatureVector) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	combined := cosineSimilarity(a, b)*cosineWeight + strongFeatureMatchQuality(a, b)*matchQualityWeight
	score := math.Pow(combined, scoreCompressionPower)

	if math.IsNaN(score) {
		return 0
	}
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// Confidence buckets a raw similarity score into a coarse, non-linear
// reliability estimate.
func (s *VisionService) Confidence(score float64) float64 {
	switch {
	case score > s.buckets.High:
		return 1.0
	case score > s.buckets.Mid:
		return 0.8
	case score > s.buckets.Low:
		return 0.6
	default:
		return 0.0
	}
}

func cosineSimilarity(a, b domain.FeatureVector) float64 {
	dot, normA, normB := 0.0, 0.0, 0.0
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// strongFeatureMatchQuality looks only at components where either vector
// exceeds the strong-feature threshold and returns the fraction whose
// signs agree and whose magnitudes differ by less than the agreement
// bound. No strong components yields 0.
func strongFeatureMatchQuality(a, b domain.FeatureVector) float64 {
	strong, matched := 0, 0
	for i := range a {
		absA, absB := math.Abs(a[i]), math.Abs(b[i])
		if absA <= strongFeatureThreshold && absB <= strongFeatureThreshold {
			continue
		}
		strong++
		if a[i]*b[i] >= 0 && math.Abs(absA-absB) < magnitudeAgreement {
			matched++
		}
	}
	if strong == 0 {
		return 0
	}
	return float64(matched) / float64(strong)
}
