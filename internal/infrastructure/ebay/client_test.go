package ebay

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryanzhouuu/Vintdex/internal/domain"
)

func TestSearchSoldListings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "vintage levis jacket", q.Get("_nkw"))
		assert.Equal(t, "1", q.Get("LH_Sold"))
		assert.Equal(t, "13", q.Get("_sop"))
		assert.Equal(t, "nc", q.Get("rt"))
		assert.Equal(t, "11450", q.Get("_sacat"))
		assert.Equal(t, "60", q.Get("_ipg"))
		assert.Equal(t, "2", q.Get("_pgn"))

		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(resultsPageFixture))
	}))
	defer server.Close()

	client := NewClient(server.URL, 100, 10, zerolog.Nop())

	listings, err := client.SearchSoldListings(context.Background(), "vintage levis jacket", domain.SearchOptions{
		ResultCount: 60,
		CategoryID:  "11450",
		Page:        2,
	})
	require.NoError(t, err)
	assert.Len(t, listings, 2)
}

func TestSearchSoldListings_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, 100, 10, zerolog.Nop())

	_, err := client.SearchSoldListings(context.Background(), "anything", domain.SearchOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDiscoveryUnavailable))
}

func TestSearchSoldListings_NetworkFailure(t *testing.T) {
	// Point at a server that is already closed.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL, 100, 10, zerolog.Nop())

	_, err := client.SearchSoldListings(context.Background(), "anything", domain.SearchOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDiscoveryUnavailable))
}

func TestSearchSoldListings_ContextCancelled(t *testing.T) {
	client := NewClient("http://127.0.0.1:0", 100, 10, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.SearchSoldListings(ctx, "anything", domain.SearchOptions{})
	require.Error(t, err)
}

func TestBuildSearchURL_Deterministic(t *testing.T) {
	client := NewClient("https://www.ebay.com/sch/i.html", 1, 1, zerolog.Nop())

	opts := domain.SearchOptions{ResultCount: 120, CategoryID: "11450", Condition: "3000", Page: 1}
	a := client.buildSearchURL("vintage tee", opts)
	b := client.buildSearchURL("vintage tee", opts)
	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "https://www.ebay.com/sch/i.html?"),
		"search URL must target the completed-sales search page, got %s", a)
	assert.Contains(t, a, "LH_Sold=1")
	assert.Contains(t, a, "_sop=13")
	assert.Contains(t, a, "LH_ItemCondition=3000")
}
