package extractor

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ryanzhouuu/Vintdex/internal/domain"
)

// Client talks to a remote embedding inference service. The backing
// model is an opaque pre-trained feature extractor: image in, fixed
// length vector out, deterministic per image.
//
// The model is loaded lazily on the serving side. Warm-up runs exactly
// once per process with single-flight semantics: concurrent callers that
// arrive before initialization completes all await the same in-flight
// warm-up rather than triggering redundant loads. A failed warm-up is
// not cached; the next call retries it.
type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
	dimensions int
	ready      atomic.Bool
	warmup     singleflight.Group
	logger     zerolog.Logger
}

// Config holds the embedding service settings.
type Config struct {
	BaseURL    string
	Model      string
	Dimensions int
	Timeout    time.Duration
}

// NewClient creates an embedding inference client.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		logger:     logger.With().Str("component", "extractor").Logger(),
	}
}

type embedRequest struct {
	Model string `json:"model"`
	Image string `json:"image"` // base64 JPEG, resized to model input
}

type embedResponse struct {
	Vector []float64 `json:"vector"`
}

type modelInfo struct {
	Name       string `json:"name"`
	Dimensions int    `json:"dimensions"`
	Status     string `json:"status"`
}

// Embed resizes the image to the model input, runs inference once and
// returns the raw feature vector.
func (c *Client) Embed(ctx context.Context, imageData []byte) (domain.FeatureVector, error) {
	if err := c.ensureReady(ctx); err != nil {
		return nil, err
	}

	prepared, err := prepareImage(imageData)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(embedRequest{
		Model: c.model,
		Image: base64.StdEncoding.EncodeToString(prepared),
	})
	if err != nil {
		return nil, fmt.Errorf("encode embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/embeddings/image", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrExtractorUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExtractorUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrExtractorUnavailable, resp.StatusCode, payload)
	}

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}

	if len(result.Vector) == 0 {
		return nil, fmt.Errorf("%w: empty feature vector", domain.ErrExtractorUnavailable)
	}
	if c.dimensions > 0 && len(result.Vector) != c.dimensions {
		return nil, fmt.Errorf("%w: vector length %d, expected %d",
			domain.ErrExtractorUnavailable, len(result.Vector), c.dimensions)
	}

	return domain.FeatureVector(result.Vector), nil
}

// Ready reports whether warm-up has completed, for health reporting.
func (c *Client) Ready() bool {
	return c.ready.Load()
}

// ensureReady blocks until the one-time warm-up has succeeded or
// propagates its failure.
func (c *Client) ensureReady(ctx context.Context) error {
	if c.ready.Load() {
		return nil
	}

	_, err, _ := c.warmup.Do("warmup", func() (interface{}, error) {
		if c.ready.Load() {
			return nil, nil
		}
		if err := c.loadModel(ctx); err != nil {
			return nil, err
		}
		c.ready.Store(true)
		return nil, nil
	})
	return err
}

// loadModel asks the serving side to load the model and verifies its
// reported output width.
func (c *Client) loadModel(ctx context.Context) error {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/models/"+c.model, nil)
	if err != nil {
		return fmt.Errorf("%w: build warmup request: %v", domain.ErrExtractorUnavailable, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrExtractorUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: model load status %d", domain.ErrExtractorUnavailable, resp.StatusCode)
	}

	var info modelInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return fmt.Errorf("decode model info: %w", err)
	}
	if c.dimensions > 0 && info.Dimensions != 0 && info.Dimensions != c.dimensions {
		return fmt.Errorf("%w: model reports %d dimensions, configured %d",
			domain.ErrExtractorUnavailable, info.Dimensions, c.dimensions)
	}

	c.logger.Info().
		Str("model", c.model).
		Dur("elapsed", time.Since(start)).
		Msg("feature extractor warmed up")
	return nil
}
