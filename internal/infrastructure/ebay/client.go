package ebay

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ryanzhouuu/Vintdex/internal/domain"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// Client fetches completed-sale listings from the eBay search results page.
// One outbound call per invocation, no internal retries; retry policy
// belongs to the caller.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *rate.Limiter
	logger      zerolog.Logger
}

// NewClient creates an eBay search client. requestsPerSec throttles
// outbound calls so scraping stays polite.
func NewClient(baseURL string, requestsPerSec float64, burst int, logger zerolog.Logger) *Client {
	if requestsPerSec <= 0 {
		requestsPerSec = 1
	}
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:     baseURL,
		rateLimiter: rate.NewLimiter(rate.Limit(requestsPerSec), burst),
		logger:      logger.With().Str("component", "ebay").Logger(),
	}
}

// SearchSoldListings queries the sold/completed view of the marketplace
// and returns parsed listings in the marketplace's most-recent-sold-first
// order. Individual listings that fail parsing are dropped silently;
// only the call itself erroring is a failure.
func (c *Client) SearchSoldListings(ctx context.Context, keywords string, opts domain.SearchOptions) ([]domain.SoldListing, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	searchURL := c.buildSearchURL(keywords, opts)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrDiscoveryUnavailable, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDiscoveryUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", domain.ErrDiscoveryUnavailable, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", domain.ErrDiscoveryUnavailable, err)
	}

	listings := parseSoldListings(doc)
	c.logger.Debug().
		Str("keywords", keywords).
		Int("results", len(listings)).
		Msg("sold listing search completed")

	return listings, nil
}

// buildSearchURL encodes the search deterministically: sold-only filter
// always applied, sorted most-recent-sold-first.
func (c *Client) buildSearchURL(keywords string, opts domain.SearchOptions) string {
	params := url.Values{}
	params.Set("_nkw", keywords)
	params.Set("LH_Sold", "1") // sold items only
	params.Set("_sop", "13")   // sort by end date, recent first
	params.Set("rt", "nc")     // no "did you mean" rewrites

	if opts.CategoryID != "" {
		params.Set("_sacat", opts.CategoryID)
	}
	if opts.Condition != "" {
		params.Set("LH_ItemCondition", opts.Condition)
	}
	if opts.Page > 0 {
		params.Set("_pgn", strconv.Itoa(opts.Page))
	}
	if opts.ResultCount > 0 {
		params.Set("_ipg", strconv.Itoa(opts.ResultCount))
	}

	return c.baseURL + "?" + params.Encode()
}
