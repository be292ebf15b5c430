package domain

import "time"

// PriceProjection is the terminal output of the projection model:
// a time-decay-weighted average of comparable sale prices and a
// confidence value in [0,1].
type PriceProjection struct {
	ProjectedPrice float64 `json:"projectedPrice"`
	Confidence     float64 `json:"confidence"`
}

// PricePoint is the slice of a sold listing the projection model needs.
type PricePoint struct {
	Price    float64
	SoldDate time.Time
}

// TrackingJob is the input of one pipeline run. Category, Decade and
// Brand are descriptive strings passed through to persistence unmodified.
type TrackingJob struct {
	ReferenceImage []byte
	QueryTitle     string
	Category       string
	Decade         string
	Brand          string
}

// ValuationResult is what one successful pipeline run emits: the price
// projection plus the ranked comparable set that produced it.
type ValuationResult struct {
	ProjectedPrice float64       `json:"projectedPrice"`
	Confidence     float64       `json:"confidence"`
	Comparables    []MatchResult `json:"comparables"`
}

// ValuationRecord is the persisted parent row returned by the store.
type ValuationRecord struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Category       string    `json:"category,omitempty"`
	Decade         string    `json:"decade,omitempty"`
	Brand          string    `json:"brand,omitempty"`
	ProjectedPrice float64   `json:"projectedPrice"`
	Confidence     float64   `json:"confidence"`
	ListingCount   int       `json:"listingCount"`
	CreatedAt      time.Time `json:"createdAt"`
}
