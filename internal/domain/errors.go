package domain

import "errors"

var (
	// ErrDiscoveryUnavailable is returned when the marketplace search call
	// itself fails; the job aborts because there is nothing to score.
	ErrDiscoveryUnavailable = errors.New("sold listing discovery unavailable")

	// ErrImageUnreadable is returned when the reference image fails to
	// decode or embed.
	ErrImageUnreadable = errors.New("reference image unreadable")

	// ErrCandidateFetchFailed marks a single comparable whose image fetch
	// or scoring failed. It degrades that one candidate to a zero score
	// and never fails the batch.
	ErrCandidateFetchFailed = errors.New("candidate image fetch failed")

	// ErrNoQualifyingComparables is returned when filtering leaves zero
	// survivors. Distinct from a low-confidence success.
	ErrNoQualifyingComparables = errors.New("no qualifying comparable sales found")

	// ErrEmptyProjectionInput is returned when the projection model is
	// called with zero listings.
	ErrEmptyProjectionInput = errors.New("no sold listings provided for projection")

	// ErrExtractorUnavailable is returned when the feature extractor
	// cannot be initialized or reached.
	ErrExtractorUnavailable = errors.New("feature extractor unavailable")

	// ErrInvalidRequest is returned when request parameters are invalid.
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache.
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable is returned when the cache backend is unreachable.
	ErrCacheUnavailable = errors.New("cache service unavailable")

	// ErrStorageFailure is returned when the valuation store rejects a write.
	ErrStorageFailure = errors.New("valuation storage failed")
)
