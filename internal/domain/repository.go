package domain

import (
	"context"
	"time"
)

// ListingSource discovers completed sales on an external marketplace.
// Implementations own the source-specific parsing so the orchestrator
// never sees raw HTML; the scraping strategy can be swapped for an
// official API client behind this interface.
type ListingSource interface {
	SearchSoldListings(ctx context.Context, keywords string, opts SearchOptions) ([]SoldListing, error)
}

// FeatureExtractor turns image bytes into a fixed-length embedding.
// Any backing model satisfies the contract as long as the vector length
// is stable and the output is deterministic for a given image.
type FeatureExtractor interface {
	Embed(ctx context.Context, image []byte) (FeatureVector, error)
}

// ImageFetcher downloads a candidate listing's image.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// CacheRepository defines the interface for caching operations.
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// ValuationStore persists one finalized valuation plus its supporting
// sale records. The write is atomic from the pipeline's perspective:
// either the whole valuation-plus-comparables set is recorded or none
// of it is.
type ValuationStore interface {
	SaveValuation(ctx context.Context, job TrackingJob, result ValuationResult) (*ValuationRecord, error)
}
