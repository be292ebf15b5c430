package extractor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ryanzhouuu/Vintdex/internal/domain"
)

// maxImageBytes caps candidate image downloads.
const maxImageBytes = 8 << 20

// HTTPFetcher downloads candidate listing images.
type HTTPFetcher struct {
	httpClient *http.Client
}

// NewHTTPFetcher creates an image fetcher.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &HTTPFetcher{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads one image. Failures here are per-candidate: the caller
// degrades that candidate rather than cancelling siblings.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty image url", domain.ErrCandidateFetchFailed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCandidateFetchFailed, err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCandidateFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d for %s", domain.ErrCandidateFetchFailed, resp.StatusCode, url)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCandidateFetchFailed, err)
	}
	return data, nil
}
