package yad2

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"yad2_listings/internal/adapters/observability"
	"yad2_listings/internal/domain"
)

// RetryPolicy bounds transient-failure retries on a single page fetch.
// Fixed delay, no jitter, no circuit breaking across partitions.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultRetry matches the feed's observed tolerance: three attempts total
// with one second between them.
var DefaultRetry = RetryPolicy{Attempts: 3, Delay: time.Second}

// Client fetches one transaction-type endpoint (sale or rent) of the
// listings feed. The property-group filter and price range are fixed per
// client; partition and page vary per request.
type Client struct {
	base     string
	params   url.Values
	hc       *http.Client
	retry    RetryPolicy
	endpoint string // metrics label, e.g. "forsale" or "rent"
}

func New(base, priceRange string, retry RetryPolicy) (*Client, error) {
	if base == "" {
		return nil, fmt.Errorf("yad2: base URL is required")
	}
	if retry.Attempts <= 0 {
		retry = DefaultRetry
	}
	params := url.Values{}
	params.Set("propertyGroup", "apartments,houses")
	params.Set("property", "1,25,3,32,39,4,5,51,55,6,7")
	params.Set("forceLdLoad", "true")
	if priceRange != "" {
		params.Set("price", priceRange)
	}
	return &Client{
		base:     strings.TrimRight(base, "/"),
		params:   params,
		hc:       &http.Client{Timeout: 30 * time.Second},
		retry:    retry,
		endpoint: endpointLabel(base),
	}, nil
}

func endpointLabel(base string) string {
	if i := strings.LastIndexByte(strings.TrimRight(base, "/"), '/'); i >= 0 {
		return strings.TrimRight(base, "/")[i+1:]
	}
	return base
}

// Discover fetches the pageless warm-up response for a partition.
func (c *Client) Discover(ctx context.Context, region domain.RegionCode) (domain.FeedPage, error) {
	return c.fetch(ctx, region, -1)
}

// Page fetches one page of a partition's feed.
func (c *Client) Page(ctx context.Context, region domain.RegionCode, page int) (domain.FeedPage, error) {
	return c.fetch(ctx, region, page)
}

// feedResponse is the provider's JSON envelope.
type feedResponse struct {
	Data struct {
		Pagination struct {
			LastPage int `json:"last_page"`
		} `json:"pagination"`
		Feed struct {
			FeedItems []domain.RawListing `json:"feed_items"`
		} `json:"feed"`
	} `json:"data"`
}

func (c *Client) fetch(ctx context.Context, region domain.RegionCode, page int) (domain.FeedPage, error) {
	q := url.Values{}
	for k, vs := range c.params {
		q[k] = vs
	}
	q.Set("topArea", strconv.Itoa(int(region)))
	if page >= 0 {
		q.Set("page", strconv.Itoa(page))
	}
	reqURL := c.base + "?" + q.Encode()

	var lastErr error
	for attempt := 1; attempt <= c.retry.Attempts; attempt++ {
		if attempt > 1 {
			if !sleepCtx(ctx, c.retry.Delay) {
				return domain.FeedPage{}, ctx.Err()
			}
			log.Warn().
				Str("endpoint", c.endpoint).
				Str("region", region.String()).
				Int("page", page).
				Int("attempt", attempt).
				Err(lastErr).
				Msg("retrying page fetch")
		}

		fp, err := c.get(ctx, reqURL)
		if err == nil {
			return fp, nil
		}
		if ctx.Err() != nil {
			return domain.FeedPage{}, ctx.Err()
		}
		lastErr = err
	}
	return domain.FeedPage{}, fmt.Errorf("yad2: %s region %s page %d: %w",
		c.endpoint, region, page, lastErr)
}

func (c *Client) get(ctx context.Context, reqURL string) (domain.FeedPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return domain.FeedPage{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "yad2-listings/1.0")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveFeed(c.endpoint, 0, time.Since(start))
		return domain.FeedPage{}, err
	}
	defer resp.Body.Close()
	observability.ObserveFeed(c.endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// small body excerpt for diagnostics
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.FeedPage{}, fmt.Errorf("bad status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var fr feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&fr); err != nil {
		return domain.FeedPage{}, fmt.Errorf("decode feed response: %w", err)
	}
	return domain.FeedPage{
		LastPage: fr.Data.Pagination.LastPage,
		Items:    fr.Data.Feed.FeedItems,
	}, nil
}

// sleepCtx waits for d or returns false if ctx is done first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
