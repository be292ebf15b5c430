package domain

import "time"

// Price is the sale price of a completed listing.
type Price struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// SoldListing is an immutable record of one historical completed sale,
// produced by the discovery layer. Listings that fail price or date
// extraction are dropped at parse time, so Amount is always > 0 here.
type SoldListing struct {
	Title      string    `json:"title"`
	Price      Price     `json:"price"`
	ImageURL   string    `json:"imageUrl,omitempty"`
	ListingURL string    `json:"listingUrl,omitempty"`
	SoldDate   time.Time `json:"soldDate"`
	Condition  string    `json:"condition,omitempty"`
}

// SearchOptions controls a sold-listing discovery call.
type SearchOptions struct {
	ResultCount int    `json:"resultCount,omitempty"` // page size: 60, 120 or 240
	CategoryID  string `json:"categoryId,omitempty"`
	Condition   string `json:"condition,omitempty"`
	Page        int    `json:"page,omitempty"`
}

// FeatureVector is the fixed-length embedding of one image. It is held
// only long enough to compute similarity values and then released.
type FeatureVector []float64

// SimilarityScore is the per-candidate scoring result. Listing is a
// back-reference into the discovery result set, not a copy.
type SimilarityScore struct {
	Listing     *SoldListing `json:"-"`
	VisualScore float64      `json:"visualScore"`
	Confidence  float64      `json:"confidence"`
	TextScore   float64      `json:"textScore"`
}

// MatchResult is one comparable sale that survived filtering, paired with
// the scores that admitted it.
type MatchResult struct {
	SoldListing SoldListing `json:"soldListing"`
	VisualScore float64     `json:"visualScore"`
	TextScore   float64     `json:"textScore"`
}
