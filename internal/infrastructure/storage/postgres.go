package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/ryanzhouuu/Vintdex/internal/domain"
)

// PostgresStore persists finalized valuations: one parent tracked item
// row, N child sold-listing rows and a join between them, written in a
// single transaction so the set is recorded atomically or not at all.
type PostgresStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewPostgresStore opens a connection pool and verifies it.
func NewPostgresStore(dsn string, logger zerolog.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{
		db:     db,
		logger: logger.With().Str("component", "storage").Logger(),
	}, nil
}

// NewPostgresStoreWithDB wraps an existing connection, used by tests.
func NewPostgresStoreWithDB(db *sql.DB, logger zerolog.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

// Close closes the underlying pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the tables if they do not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS tracked_items (
	id UUID PRIMARY KEY,
	title TEXT NOT NULL,
	category TEXT,
	decade TEXT,
	brand TEXT,
	projected_price DOUBLE PRECISION NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS sold_listings (
	id UUID PRIMARY KEY,
	listing_id TEXT,
	title TEXT NOT NULL,
	price DOUBLE PRECISION NOT NULL,
	currency TEXT NOT NULL,
	sold_date DATE NOT NULL,
	condition TEXT,
	listing_url TEXT,
	image_url TEXT
);
CREATE TABLE IF NOT EXISTS tracked_item_listings (
	item_id UUID NOT NULL REFERENCES tracked_items(id) ON DELETE CASCADE,
	listing_id UUID NOT NULL REFERENCES sold_listings(id) ON DELETE CASCADE,
	visual_score DOUBLE PRECISION NOT NULL,
	text_score DOUBLE PRECISION NOT NULL,
	rank INT NOT NULL,
	PRIMARY KEY (item_id, listing_id)
);`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// SaveValuation writes the valuation and its comparables in one
// transaction and returns the persisted parent record.
func (s *PostgresStore) SaveValuation(ctx context.Context, job domain.TrackingJob, result domain.ValuationResult) (*domain.ValuationRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %v", domain.ErrStorageFailure, err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	itemID := uuid.NewString()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO tracked_items (id, title, category, decade, brand, projected_price, confidence, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		itemID, job.QueryTitle, nullable(job.Category), nullable(job.Decade), nullable(job.Brand),
		result.ProjectedPrice, result.Confidence, now,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: insert tracked item: %v", domain.ErrStorageFailure, err)
	}

	for rank, comp := range result.Comparables {
		listingRowID := uuid.NewString()
		listing := comp.SoldListing

		_, err = tx.ExecContext(ctx,
			`INSERT INTO sold_listings (id, listing_id, title, price, currency, sold_date, condition, listing_url, image_url)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			listingRowID, nullable(listingID(listing.ListingURL)), listing.Title,
			listing.Price.Amount, listing.Price.Currency, listing.SoldDate,
			nullable(listing.Condition), nullable(listing.ListingURL), nullable(listing.ImageURL),
		)
		if err != nil {
			return nil, fmt.Errorf("%w: insert sold listing: %v", domain.ErrStorageFailure, err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO tracked_item_listings (item_id, listing_id, visual_score, text_score, rank)
			 VALUES ($1, $2, $3, $4, $5)`,
			itemID, listingRowID, comp.VisualScore, comp.TextScore, rank,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: insert join row: %v", domain.ErrStorageFailure, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit: %v", domain.ErrStorageFailure, err)
	}

	s.logger.Info().
		Str("item_id", itemID).
		Int("comparables", len(result.Comparables)).
		Float64("projected_price", result.ProjectedPrice).
		Msg("valuation persisted")

	return &domain.ValuationRecord{
		ID:             itemID,
		Title:          job.QueryTitle,
		Category:       job.Category,
		Decade:         job.Decade,
		Brand:          job.Brand,
		ProjectedPrice: result.ProjectedPrice,
		Confidence:     result.Confidence,
		ListingCount:   len(result.Comparables),
		CreatedAt:      now,
	}, nil
}

// listingID extracts the marketplace's own item identifier from a
// canonical listing URL tail.
func listingID(listingURL string) string {
	if listingURL == "" {
		return ""
	}
	parts := strings.Split(strings.TrimRight(listingURL, "/"), "/")
	return parts[len(parts)-1]
}

// nullable maps empty strings to SQL NULL.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
