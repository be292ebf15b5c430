package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ryanzhouuu/Vintdex/config"
	"github.com/ryanzhouuu/Vintdex/internal/domain"
)

type stubTracking struct {
	result   domain.ValuationResult
	record   *domain.ValuationRecord
	listings []domain.SoldListing
	err      error

	lastJob  domain.TrackingJob
	lastOpts domain.SearchOptions
}

func (s *stubTracking) TrackItem(ctx context.Context, job domain.TrackingJob) (domain.ValuationResult, *domain.ValuationRecord, error) {
	s.lastJob = job
	if s.err != nil {
		return domain.ValuationResult{}, nil, s.err
	}
	return s.result, s.record, nil
}

func (s *stubTracking) SearchListings(ctx context.Context, keywords string, opts domain.SearchOptions) ([]domain.SoldListing, error) {
	s.lastOpts = opts
	if s.err != nil {
		return nil, s.err
	}
	return s.listings, nil
}

func newTestRouter(stub *stubTracking) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{}
	cfg.Server.Environment = "test"
	handler := NewHandler(stub, func() bool { return true }, zerolog.Nop())
	return SetupRouter(cfg, handler, zerolog.Nop())
}

func multipartJob(t *testing.T, fields map[string]string, withImage bool) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if withImage {
		part, err := writer.CreateFormFile("image", "ref.jpg")
		if err != nil {
			t.Fatal(err)
		}
		_, _ = part.Write([]byte("fake-image-bytes"))
	}
	for k, v := range fields {
		_ = writer.WriteField(k, v)
	}
	_ = writer.Close()
	return body, writer.FormDataContentType()
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(&stubTracking{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", resp["status"])
	}
	if resp["extractorReady"] != true {
		t.Errorf("extractorReady = %v, want true", resp["extractorReady"])
	}
}

func TestTrackItemEndpoint(t *testing.T) {
	t.Run("success returns projection and comparables", func(t *testing.T) {
		stub := &stubTracking{
			result: domain.ValuationResult{
				ProjectedPrice: 87.5,
				Confidence:     0.9,
				Comparables: []domain.MatchResult{
					{SoldListing: domain.SoldListing{Title: "comp", SoldDate: time.Now()}, VisualScore: 0.9},
				},
			},
			record: &domain.ValuationRecord{ID: "rec-1"},
		}
		router := newTestRouter(stub)

		body, contentType := multipartJob(t, map[string]string{
			"title": "vintage tee", "category": "T-Shirts", "decade": "90s", "brand": "Nike",
		}, true)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/tracking/track", body)
		req.Header.Set("Content-Type", contentType)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
		}

		var resp struct {
			Success bool                   `json:"success"`
			Data    domain.ValuationResult `json:"data"`
			Count   int                    `json:"count"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if !resp.Success || resp.Count != 1 || resp.Data.ProjectedPrice != 87.5 {
			t.Errorf("response = %+v, want success with one comparable at 87.5", resp)
		}

		// Descriptors pass through to the job unmodified.
		if stub.lastJob.Category != "T-Shirts" || stub.lastJob.Decade != "90s" || stub.lastJob.Brand != "Nike" {
			t.Errorf("job descriptors = %+v, want passthrough", stub.lastJob)
		}
	})

	t.Run("missing image is 400", func(t *testing.T) {
		router := newTestRouter(&stubTracking{})
		body, contentType := multipartJob(t, map[string]string{"title": "x"}, false)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/tracking/track", body)
		req.Header.Set("Content-Type", contentType)
		router.ServeHTTP(w, req)

		assertFailure(t, w, http.StatusBadRequest)
	})

	t.Run("missing title is 400", func(t *testing.T) {
		router := newTestRouter(&stubTracking{})
		body, contentType := multipartJob(t, nil, true)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/tracking/track", body)
		req.Header.Set("Content-Type", contentType)
		router.ServeHTTP(w, req)

		assertFailure(t, w, http.StatusBadRequest)
	})

	t.Run("error taxonomy maps to statuses", func(t *testing.T) {
		cases := []struct {
			err  error
			want int
		}{
			{domain.ErrNoQualifyingComparables, http.StatusNotFound},
			{domain.ErrDiscoveryUnavailable, http.StatusBadGateway},
			{domain.ErrImageUnreadable, http.StatusUnprocessableEntity},
			{domain.ErrExtractorUnavailable, http.StatusServiceUnavailable},
			{fmt.Errorf("wrapped: %w", domain.ErrNoQualifyingComparables), http.StatusNotFound},
			{fmt.Errorf("unexpected"), http.StatusInternalServerError},
		}

		for _, tc := range cases {
			router := newTestRouter(&stubTracking{err: tc.err})
			body, contentType := multipartJob(t, map[string]string{"title": "x"}, true)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/tracking/track", body)
			req.Header.Set("Content-Type", contentType)
			router.ServeHTTP(w, req)

			assertFailure(t, w, tc.want)
		}
	})
}

func TestSearchEndpoint(t *testing.T) {
	t.Run("requires query", func(t *testing.T) {
		router := newTestRouter(&stubTracking{})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/tracking/ebay_search", nil)
		router.ServeHTTP(w, req)

		assertFailure(t, w, http.StatusBadRequest)
	})

	t.Run("validates page size", func(t *testing.T) {
		router := newTestRouter(&stubTracking{})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/tracking/ebay_search?query=tee&resultsPerPage=77", nil)
		router.ServeHTTP(w, req)

		assertFailure(t, w, http.StatusBadRequest)
	})

	t.Run("passes options through", func(t *testing.T) {
		stub := &stubTracking{listings: []domain.SoldListing{{Title: "one"}, {Title: "two"}}}
		router := newTestRouter(stub)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet,
			"/api/v1/tracking/ebay_search?query=vintage+tee&category=11450&resultsPerPage=120&page=2", nil)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
		}
		if stub.lastOpts.CategoryID != "11450" || stub.lastOpts.ResultCount != 120 || stub.lastOpts.Page != 2 {
			t.Errorf("options = %+v, want passthrough", stub.lastOpts)
		}

		var resp struct {
			Success bool `json:"success"`
			Count   int  `json:"count"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if !resp.Success || resp.Count != 2 {
			t.Errorf("response = %+v, want success with count 2", resp)
		}
	})
}

func assertFailure(t *testing.T, w *httptest.ResponseRecorder, wantStatus int) {
	t.Helper()
	if w.Code != wantStatus {
		t.Fatalf("status = %d, want %d, body %s", w.Code, wantStatus, w.Body.String())
	}

	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Success {
		t.Errorf("success = true, want false")
	}
	if resp.Message == "" {
		t.Errorf("message empty, want human-readable failure message")
	}
}
