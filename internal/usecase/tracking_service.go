package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ryanzhouuu/Vintdex/internal/domain"
	"github.com/ryanzhouuu/Vintdex/internal/metrics"
)

// Package-level compiled regex patterns for performance
var (
	nonAlphanumericRegex = regexp.MustCompile(`[^a-z0-9\s]`)
	multipleSpacesRegex  = regexp.MustCompile(`\s+`)
)

// pipelineStage names the linear states of one valuation run.
type pipelineStage string

const (
	stageDiscovering pipelineStage = "discovering"
	stageScoring     pipelineStage = "scoring"
	stageFiltering   pipelineStage = "filtering"
	stageProjecting  pipelineStage = "projecting"
	stagePersisting  pipelineStage = "persisting"
)

// TrackingConfig holds configuration for the valuation pipeline.
type TrackingConfig struct {
	// AcceptanceThreshold is the minimum visual similarity a candidate
	// needs to survive filtering. The single most important tuning knob:
	// too low admits unrelated items, too high starves the projection
	// model of input.
	AcceptanceThreshold float64
	ConfidenceBuckets   ConfidenceBuckets
	ResultCount         int
	CategoryID          string
	ScoringConcurrency  int
	// PhaseTimeout bounds the discovering+scoring phases together.
	PhaseTimeout time.Duration
	CacheTTL     time.Duration
}

// TrackingService orchestrates one valuation run: discover candidates,
// score each on vision and text, filter by similarity, rank, project a
// price and hand the result to the persistence collaborator.
type TrackingService struct {
	source    domain.ListingSource
	extractor domain.FeatureExtractor
	fetcher   domain.ImageFetcher
	vision    *VisionService
	matcher   *QueryMatcher
	projector *PriceProjector
	store     domain.ValuationStore
	cache     domain.CacheRepository
	cfg       TrackingConfig
	logger    zerolog.Logger
}

// NewTrackingService creates the pipeline orchestrator. store may be nil
// when persistence is not configured; the pipeline then returns results
// without recording them. Zero config values fall back to production
// defaults.
func NewTrackingService(
	source domain.ListingSource,
	extractor domain.FeatureExtractor,
	fetcher domain.ImageFetcher,
	store domain.ValuationStore,
	cache domain.CacheRepository,
	cfg TrackingConfig,
	logger zerolog.Logger,
) *TrackingService {
	if cfg.AcceptanceThreshold <= 0 {
		cfg.AcceptanceThreshold = 0.7
	}
	if cfg.ResultCount <= 0 {
		cfg.ResultCount = 60
	}
	if cfg.CategoryID == "" {
		cfg.CategoryID = "11450"
	}
	if cfg.ScoringConcurrency <= 0 {
		cfg.ScoringConcurrency = 8
	}
	if cfg.PhaseTimeout <= 0 {
		cfg.PhaseTimeout = 2 * time.Minute
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}

	metrics.Register()

	return &TrackingService{
		source:    source,
		extractor: extractor,
		fetcher:   fetcher,
		vision:    NewVisionService(cfg.ConfidenceBuckets),
		matcher:   NewQueryMatcher(),
		projector: NewPriceProjector(),
		store:     store,
		cache:     cache,
		cfg:       cfg,
		logger:    logger.With().Str("component", "tracking").Logger(),
	}
}


// TrackItem runs the full pipeline for one job. Fatal failures return a
// typed error and no partial result.
func (s *TrackingService) TrackItem(ctx context.Context, job domain.TrackingJob) (domain.ValuationResult, *domain.ValuationRecord, error) {
	if len(job.ReferenceImage) == 0 || strings.TrimSpace(job.QueryTitle) == "" {
		return domain.ValuationResult{}, nil, domain.ErrInvalidRequest
	}

	// Discovering and scoring share one deadline; exceeding it is a
	// fatal job failure, not a degraded result.
	phaseCtx, cancel := context.WithTimeout(ctx, s.cfg.PhaseTimeout)
	defer cancel()

	candidates, err := s.discover(phaseCtx, job.QueryTitle)
	if err != nil {
		metrics.PipelineRunsTotal.WithLabelValues("discovery_failed").Inc()
		return domain.ValuationResult{}, nil, err
	}
	s.logger.Info().Str("title", job.QueryTitle).Int("candidates", len(candidates)).Msg("discovery completed")

	reference, err := s.embedReference(phaseCtx, job.ReferenceImage)
	if err != nil {
		metrics.PipelineRunsTotal.WithLabelValues("image_unreadable").Inc()
		return domain.ValuationResult{}, nil, err
	}

	scored := s.scoreCandidates(phaseCtx, reference, job.QueryTitle, candidates)

	survivors := s.filterAndRank(scored)
	if len(survivors) == 0 {
		metrics.PipelineRunsTotal.WithLabelValues("no_comparables").Inc()
		return domain.ValuationResult{}, nil, fmt.Errorf("%w: %d candidates below threshold %.2f",
			domain.ErrNoQualifyingComparables, len(candidates), s.cfg.AcceptanceThreshold)
	}
	metrics.ComparablesRetained.Observe(float64(len(survivors)))

	projection, err := s.project(survivors)
	if err != nil {
		metrics.PipelineRunsTotal.WithLabelValues("projection_failed").Inc()
		return domain.ValuationResult{}, nil, err
	}

	result := domain.ValuationResult{
		ProjectedPrice: projection.ProjectedPrice,
		Confidence:     projection.Confidence,
		Comparables:    survivors,
	}

	record, err := s.persist(ctx, job, result)
	if err != nil {
		metrics.PipelineRunsTotal.WithLabelValues("storage_failed").Inc()
		return domain.ValuationResult{}, nil, err
	}

	metrics.PipelineRunsTotal.WithLabelValues("success").Inc()
	s.logger.Info().
		Str("title", job.QueryTitle).
		Int("comparables", len(survivors)).
		Float64("projected_price", result.ProjectedPrice).
		Float64("confidence", result.Confidence).
		Msg("valuation completed")

	return result, record, nil
}

// SearchListings exposes raw sold-listing discovery for the search
// passthrough endpoint, with the same caching as the pipeline.
func (s *TrackingService) SearchListings(ctx context.Context, keywords string, opts domain.SearchOptions) ([]domain.SoldListing, error) {
	if strings.TrimSpace(keywords) == "" {
		return nil, domain.ErrInvalidRequest
	}
	return s.searchCached(ctx, keywords, opts)
}

// discover runs the Discovering stage with the pipeline's fixed
// category and result-count policy. A discovery error is fatal: there
// is nothing to score without candidates.
func (s *TrackingService) discover(ctx context.Context, title string) ([]domain.SoldListing, error) {
	defer s.observeStage(stageDiscovering)()

	listings, err := s.searchCached(ctx, title, domain.SearchOptions{
		ResultCount: s.cfg.ResultCount,
		CategoryID:  s.cfg.CategoryID,
	})
	if err != nil {
		if errors.Is(err, domain.ErrDiscoveryUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrDiscoveryUnavailable, err)
	}
	return listings, nil
}

// searchCached consults the cache before hitting the marketplace.
func (s *TrackingService) searchCached(ctx context.Context, keywords string, opts domain.SearchOptions) ([]domain.SoldListing, error) {
	key := discoveryCacheKey(keywords, opts)

	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil {
			var cached []domain.SoldListing
			if err := json.Unmarshal(data, &cached); err == nil {
				s.logger.Debug().Str("keywords", keywords).Msg("discovery cache hit")
				return cached, nil
			}
		}
	}

	listings, err := s.source.SearchSoldListings(ctx, keywords, opts)
	if err != nil {
		metrics.DiscoveryRequestsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.DiscoveryRequestsTotal.WithLabelValues("ok").Inc()

	if s.cache != nil {
		if data, err := json.Marshal(listings); err == nil {
			if err := s.cache.Set(ctx, key, data, s.cfg.CacheTTL); err != nil {
				s.logger.Warn().Err(err).Msg("discovery cache write failed")
			}
		}
	}

	return listings, nil
}

// embedReference embeds and normalizes the query image. Failure here is
// fatal: without a reference vector nothing can be scored.
func (s *TrackingService) embedReference(ctx context.Context, image []byte) (domain.FeatureVector, error) {
	raw, err := s.extractor.Embed(ctx, image)
	if err != nil {
		if errors.Is(err, domain.ErrExtractorUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrImageUnreadable, err)
	}
	return s.vision.Normalize(raw), nil
}

// scoreCandidates runs the Scoring stage: every candidate scores
// independently and in parallel over immutable inputs. A failure on one
// candidate degrades that candidate to a zero score and never cancels
// its siblings.
func (s *TrackingService) scoreCandidates(ctx context.Context, reference domain.FeatureVector, queryTitle string, candidates []domain.SoldListing) []domain.SimilarityScore {
	defer s.observeStage(stageScoring)()

	scored := make([]domain.SimilarityScore, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.ScoringConcurrency)

	for i := range candidates {
		g.Go(func() error {
			scored[i] = s.scoreOne(gctx, reference, queryTitle, &candidates[i])
			return nil
		})
	}
	_ = g.Wait()

	return scored
}

// scoreOne computes one candidate's visual and text scores and the
// bucketed confidence of the visual score. All failure paths collapse
// to a zero visual score and zero confidence with the error recorded
// for diagnostics.
func (s *TrackingService) scoreOne(ctx context.Context, reference domain.FeatureVector, queryTitle string, candidate *domain.SoldListing) domain.SimilarityScore {
	result := domain.SimilarityScore{
		Listing:   candidate,
		TextScore: s.matcher.Match(queryTitle, candidate.Title),
	}

	if candidate.ImageURL == "" {
		metrics.CandidatesScoredTotal.WithLabelValues("no_image").Inc()
		return result
	}

	image, err := s.fetcher.Fetch(ctx, candidate.ImageURL)
	if err != nil {
		s.logger.Warn().Err(err).Str("image_url", candidate.ImageURL).Msg("candidate degraded to zero score")
		metrics.CandidatesScoredTotal.WithLabelValues("degraded").Inc()
		return result
	}

	raw, err := s.extractor.Embed(ctx, image)
	if err != nil {
		s.logger.Warn().Err(err).Str("image_url", candidate.ImageURL).Msg("candidate degraded to zero score")
		metrics.CandidatesScoredTotal.WithLabelValues("degraded").Inc()
		return result
	}

	result.VisualScore = s.vision.Similarity(reference, s.vision.Normalize(raw))
	result.Confidence = s.vision.Confidence(result.VisualScore)
	metrics.CandidatesScoredTotal.WithLabelValues("scored").Inc()
	metrics.CandidateConfidence.Observe(result.Confidence)
	s.logger.Debug().
		Str("title", candidate.Title).
		Float64("visual_score", result.VisualScore).
		Float64("confidence", result.Confidence).
		Msg("candidate scored")
	return result
}

// filterAndRank runs the Filtering and Ranking stages: retain candidates
// whose visual similarity meets the acceptance threshold (inclusive
// boundary), then stable-sort descending so ties keep discovery order.
func (s *TrackingService) filterAndRank(scored []domain.SimilarityScore) []domain.MatchResult {
	defer s.observeStage(stageFiltering)()

	var survivors []domain.MatchResult
	for _, c := range scored {
		if c.VisualScore >= s.cfg.AcceptanceThreshold {
			survivors = append(survivors, domain.MatchResult{
				SoldListing: *c.Listing,
				VisualScore: c.VisualScore,
				TextScore:   c.TextScore,
			})
		}
	}

	sort.SliceStable(survivors, func(i, j int) bool {
		return survivors[i].VisualScore > survivors[j].VisualScore
	})

	return survivors
}

// project runs the Projecting stage on the surviving, ranked listings.
func (s *TrackingService) project(survivors []domain.MatchResult) (domain.PriceProjection, error) {
	defer s.observeStage(stageProjecting)()

	points := make([]domain.PricePoint, len(survivors))
	for i, m := range survivors {
		points[i] = domain.PricePoint{
			Price:    m.SoldListing.Price.Amount,
			SoldDate: m.SoldListing.SoldDate,
		}
	}
	return s.projector.Project(points)
}

// persist hands the finalized valuation to the storage collaborator.
func (s *TrackingService) persist(ctx context.Context, job domain.TrackingJob, result domain.ValuationResult) (*domain.ValuationRecord, error) {
	if s.store == nil {
		return nil, nil
	}

	defer s.observeStage(stagePersisting)()

	record, err := s.store.SaveValuation(ctx, job, result)
	if err != nil {
		if errors.Is(err, domain.ErrStorageFailure) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageFailure, err)
	}
	return record, nil
}

func (s *TrackingService) observeStage(stage pipelineStage) func() {
	start := time.Now()
	return func() {
		metrics.StageDuration.WithLabelValues(string(stage)).Observe(time.Since(start).Seconds())
	}
}

// discoveryCacheKey builds a normalized cache key for one search.
func discoveryCacheKey(keywords string, opts domain.SearchOptions) string {
	normalized := strings.ToLower(keywords)
	normalized = nonAlphanumericRegex.ReplaceAllString(normalized, "")
	normalized = multipleSpacesRegex.ReplaceAllString(normalized, " ")
	normalized = strings.TrimSpace(normalized)

	return fmt.Sprintf("discovery:%s:%s:%s:%d:%d",
		normalized, opts.CategoryID, opts.Condition, opts.ResultCount, opts.Page)
}
