package usecase

import (
	"math"
	"time"

	"github.com/ryanzhouuu/Vintdex/internal/domain"
)

// PriceProjector computes a time-decay-weighted market price projection
// from a set of comparable sales.
//
// Weight model: w_i = e^(-d_i/h) where d_i is the number of days between
// sale i and now, and the half-life h is half the span between the oldest
// and most recent sale in the set. Tying the decay rate to the observed
// spread makes the model self-scaling across item categories with very
// different sale frequencies. Note the two time bases are intentionally
// different: d_i is measured against now, h against the sale span.
type PriceProjector struct {
	now func() time.Time
}

// NewPriceProjector creates a projector using the wall clock.
func NewPriceProjector() *PriceProjector {
	return &PriceProjector{now: time.Now}
}

// NewPriceProjectorAt creates a projector with an injected clock.
func NewPriceProjectorAt(now func() time.Time) *PriceProjector {
	return &PriceProjector{now: now}
}

// Project returns the weighted average price and a confidence value in
// [0,1]. Fails with ErrEmptyProjectionInput on an empty set; this is the
// one place the pipeline hard-fails rather than degrades, since a
// projection from zero comparables is meaningless.
func (p *PriceProjector) Project(points []domain.PricePoint) (domain.PriceProjection, error) {
	if len(points) == 0 {
		return domain.PriceProjection{}, domain.ErrEmptyProjectionInput
	}

	now := p.now()

	oldest := points[0].SoldDate
	recent := points[0].SoldDate
	days := make([]float64, len(points))
	for i, pt := range points {
		if pt.SoldDate.Before(oldest) {
			oldest = pt.SoldDate
		}
		if pt.SoldDate.After(recent) {
			recent = pt.SoldDate
		}
		days[i] = daysBetween(pt.SoldDate, now)
	}

	halfLife := 0.5 * daysBetween(oldest, recent)

	weights := make([]float64, len(points))
	totalWeight := 0.0
	for i := range points {
		// Identical sale dates collapse the half-life to zero; fall back
		// to uniform weights instead of dividing by it.
		w := 1.0
		if halfLife > 0 {
			w = math.Exp(-days[i] / halfLife)
		}
		weights[i] = w
		totalWeight += w
	}

	projection := 0.0
	for i, pt := range points {
		projection += pt.Price * (weights[i] / totalWeight)
	}

	variance := 0.0
	for i, pt := range points {
		diff := pt.Price - projection
		variance += (weights[i] / totalWeight) * diff * diff
	}
	stdDev := math.Sqrt(variance)

	confidence := 0.0
	if projection > 0 {
		confidence = 1 / (1 + stdDev/projection)
	}

	return domain.PriceProjection{
		ProjectedPrice: projection,
		Confidence:     confidence,
	}, nil
}

// daysBetween returns the whole number of days between two instants.
func daysBetween(a, b time.Time) float64 {
	diff := b.Sub(a)
	if diff < 0 {
		diff = -diff
	}
	return math.Floor(diff.Hours() / 24)
}
