package domain

import (
	"context"
	"time"
)

// RawListing is one untyped feed item exactly as returned by the provider.
// It is consumed once by the normalizer and never stored.
type RawListing map[string]any

// FeedPage is one page of the provider's paginated feed response.
type FeedPage struct {
	LastPage int
	Items    []RawListing
}

// FeedClient fetches pages from one transaction-type endpoint (sale or
// rent). Implementations own the retry policy; an error returned here means
// retries are already exhausted.
type FeedClient interface {
	// Discover issues the pageless warm-up request used to read the
	// partition's reported last-page count.
	Discover(ctx context.Context, region RegionCode) (FeedPage, error)

	// Page fetches one page of a partition's feed.
	Page(ctx context.Context, region RegionCode, page int) (FeedPage, error)
}

// CensusSource loads the locality/population reference table. Spelling
// corrections are applied on the census side before the table is returned.
type CensusSource interface {
	Load(ctx context.Context) ([]CensusCity, error)
}

// DatasetWriter persists one full dataset. Each run replaces the previous
// dataset wholesale; there is no incremental merge.
type DatasetWriter interface {
	WriteDataset(ctx context.Context, rows []EnrichedListing) error
}

// Cache is a byte-level cache with JSON encoding, used to avoid re-fetching
// the census spreadsheet on every run.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}
