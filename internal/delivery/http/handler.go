package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ryanzhouuu/Vintdex/internal/domain"
)

// maxUploadBytes caps the reference image upload.
const maxUploadBytes = 16 << 20

// TrackingUsecase is the pipeline surface the HTTP layer consumes.
type TrackingUsecase interface {
	TrackItem(ctx context.Context, job domain.TrackingJob) (domain.ValuationResult, *domain.ValuationRecord, error)
	SearchListings(ctx context.Context, keywords string, opts domain.SearchOptions) ([]domain.SoldListing, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	tracking TrackingUsecase
	ready    func() bool
	logger   zerolog.Logger
}

// NewHandler creates a new HTTP handler. ready reports feature extractor
// readiness for the health endpoint and may be nil.
func NewHandler(tracking TrackingUsecase, ready func() bool, logger zerolog.Logger) *Handler {
	return &Handler{
		tracking: tracking,
		ready:    ready,
		logger:   logger.With().Str("component", "http").Logger(),
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	extractorReady := true
	if h.ready != nil {
		extractorReady = h.ready()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"service":        "vintdex-backend",
		"version":        "1.0.0",
		"extractorReady": extractorReady,
	})
}

// TrackItem accepts a multipart job (reference image + title + optional
// descriptors), runs the valuation pipeline and returns the projection
// with its ranked comparables.
func (h *Handler) TrackItem(c *gin.Context) {
	file, _, err := c.Request.FormFile("image")
	if err != nil {
		h.fail(c, http.StatusBadRequest, "reference image is required")
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		h.fail(c, http.StatusBadRequest, "could not read reference image")
		return
	}

	title := c.PostForm("title")
	if title == "" {
		h.fail(c, http.StatusBadRequest, "title is required")
		return
	}

	job := domain.TrackingJob{
		ReferenceImage: imageData,
		QueryTitle:     title,
		Category:       c.PostForm("category"),
		Decade:         c.PostForm("decade"),
		Brand:          c.PostForm("brand"),
	}

	result, record, err := h.tracking.TrackItem(c.Request.Context(), job)
	if err != nil {
		h.failFromError(c, err)
		return
	}

	response := gin.H{
		"success": true,
		"data":    result,
		"count":   len(result.Comparables),
	}
	if record != nil {
		response["record"] = record
	}
	c.JSON(http.StatusOK, response)
}

// SearchSoldListings is the raw discovery passthrough.
func (h *Handler) SearchSoldListings(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		h.fail(c, http.StatusBadRequest, "query is required")
		return
	}

	opts := domain.SearchOptions{
		CategoryID: c.Query("category"),
		Condition:  c.Query("condition"),
	}
	if v := c.Query("resultsPerPage"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || (n != 60 && n != 120 && n != 240) {
			h.fail(c, http.StatusBadRequest, "resultsPerPage must be 60, 120 or 240")
			return
		}
		opts.ResultCount = n
	}
	if v := c.Query("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.fail(c, http.StatusBadRequest, "page must be a positive integer")
			return
		}
		opts.Page = n
	}

	listings, err := h.tracking.SearchListings(c.Request.Context(), query, opts)
	if err != nil {
		h.failFromError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       listings,
		"count":      len(listings),
		"queryTerms": query,
		"options":    opts,
	})
}

// failFromError maps the pipeline error taxonomy to HTTP statuses.
// Callers always get {success:false, message}, never a bare error payload.
func (h *Handler) failFromError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		h.fail(c, http.StatusBadRequest, "invalid request parameters")
	case errors.Is(err, domain.ErrImageUnreadable):
		h.fail(c, http.StatusUnprocessableEntity, "reference image could not be decoded")
	case errors.Is(err, domain.ErrNoQualifyingComparables):
		h.fail(c, http.StatusNotFound, "no comparable sales found for this item")
	case errors.Is(err, domain.ErrDiscoveryUnavailable):
		h.fail(c, http.StatusBadGateway, "sold listing search is currently unavailable")
	case errors.Is(err, domain.ErrExtractorUnavailable):
		h.fail(c, http.StatusServiceUnavailable, "image analysis is currently unavailable")
	default:
		h.logger.Error().Err(err).Msg("unhandled pipeline error")
		h.fail(c, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"message": message,
	})
}
