package app

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"yad2_listings/internal/adapters/observability"
	"yad2_listings/internal/domain"
)

// FetchStats summarizes one acquisition pass over an endpoint.
type FetchStats struct {
	Pages     int
	Seen      int
	Kept      int
	Discarded map[domain.DiscardReason]int
}

func (s *FetchStats) merge(o FetchStats) {
	s.Pages += o.Pages
	s.Seen += o.Seen
	s.Kept += o.Kept
	if s.Discarded == nil {
		s.Discarded = make(map[domain.DiscardReason]int)
	}
	for k, v := range o.Discarded {
		s.Discarded[k] += v
	}
}

// RunStats is the per-run summary logged when a pipeline run completes.
type RunStats struct {
	Fetch    FetchStats
	Assembly AssembleStats
	Rows     int
}

// Pipeline is one scheduled acquisition run: paginate both feed endpoints
// across all partitions, normalize, assemble against the census table, and
// persist the full fresh dataset. There is no checkpointing; the run either
// completes or aborts on the first unrecoverable error.
type Pipeline struct {
	sale    domain.FeedClient
	rent    domain.FeedClient
	norm    *Normalizer
	census  domain.CensusSource
	writers []domain.DatasetWriter

	pageEvery time.Duration // per-partition spacing between page requests
	workers   int           // concurrent partitions; 1 = sequential
	now       func() time.Time
}

func NewPipeline(sale, rent domain.FeedClient, norm *Normalizer, census domain.CensusSource,
	writers []domain.DatasetWriter, pageEvery time.Duration, workers int) *Pipeline {
	if pageEvery <= 0 {
		pageEvery = 100 * time.Millisecond
	}
	if workers <= 0 {
		workers = 1
	}
	return &Pipeline{
		sale:      sale,
		rent:      rent,
		norm:      norm,
		census:    census,
		writers:   writers,
		pageEvery: pageEvery,
		workers:   workers,
		now:       time.Now,
	}
}

// Run executes one full pipeline run.
func (p *Pipeline) Run(ctx context.Context) (RunStats, error) {
	var stats RunStats

	saleListings, saleStats, err := p.FetchAll(ctx, p.sale, true)
	if err != nil {
		return stats, err
	}
	stats.Fetch.merge(saleStats)

	rentListings, rentStats, err := p.FetchAll(ctx, p.rent, false)
	if err != nil {
		return stats, err
	}
	stats.Fetch.merge(rentStats)

	census, err := p.census.Load(ctx)
	if err != nil {
		return stats, err
	}

	rows, assembleStats := Assemble(saleListings, rentListings, census, p.now())
	stats.Assembly = assembleStats
	stats.Rows = len(rows)

	for _, w := range p.writers {
		if err := w.WriteDataset(ctx, rows); err != nil {
			return stats, fmt.Errorf("write dataset: %w", err)
		}
	}

	log.Info().
		Int("seen", stats.Fetch.Seen).
		Int("kept", stats.Fetch.Kept).
		Int("pages", stats.Fetch.Pages).
		Int("census_misses", assembleStats.CensusMisses).
		Int("stale", assembleStats.Stale).
		Int("area_outliers", assembleStats.AreaOutliers).
		Int("low_volume_city", assembleStats.LowVolumeCity).
		Int("duplicates", assembleStats.Duplicates).
		Int("rows", stats.Rows).
		Interface("discard_reasons", stats.Fetch.Discarded).
		Msg("pipeline run complete")
	return stats, nil
}

// FetchAll walks every partition of one endpoint and returns the normalized
// listings merged in fixed partition order. A partition whose page fetch
// exhausts its retries aborts the whole pass.
func (p *Pipeline) FetchAll(ctx context.Context, client domain.FeedClient, forSale bool) ([]domain.Listing, FetchStats, error) {
	endpoint := "rent"
	if forSale {
		endpoint = "forsale"
	}

	// Warm-up pass: sum last-page counts so progress is reported against a
	// known total before the main loop starts.
	totalPages := 0
	for _, region := range domain.Regions {
		fp, err := client.Discover(ctx, region)
		if err != nil {
			return nil, FetchStats{}, fmt.Errorf("%w: %s discovery %s: %v",
				domain.ErrPartitionFetch, endpoint, region, err)
		}
		totalPages += fp.LastPage
	}
	log.Info().Str("endpoint", endpoint).Int("total_pages", totalPages).Msg("pagination discovered")

	buffers := make([][]domain.Listing, len(domain.Regions))
	partStats := make([]FetchStats, len(domain.Regions))
	var fetched atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, region := range domain.Regions {
		i, region := i, region
		g.Go(func() error {
			st, listings, err := p.fetchPartition(ctx, client, endpoint, region, forSale, totalPages, &fetched)
			if err != nil {
				return err
			}
			buffers[i] = listings
			partStats[i] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, FetchStats{}, err
	}

	var out []domain.Listing
	var stats FetchStats
	for i := range buffers {
		out = append(out, buffers[i]...)
		stats.merge(partStats[i])
	}
	return out, stats, nil
}

func (p *Pipeline) fetchPartition(ctx context.Context, client domain.FeedClient, endpoint string,
	region domain.RegionCode, forSale bool, totalPages int, fetched *atomic.Int64) (FetchStats, []domain.Listing, error) {

	stats := FetchStats{Discarded: make(map[domain.DiscardReason]int)}

	first, err := client.Discover(ctx, region)
	if err != nil {
		return stats, nil, fmt.Errorf("%w: %s region %s: %v", domain.ErrPartitionFetch, endpoint, region, err)
	}

	// One request token every pageEvery keeps ≥100ms between page fetches
	// within this partition. Partitions pace themselves independently.
	lim := rate.NewLimiter(rate.Every(p.pageEvery), 1)

	var listings []domain.Listing
	// The reported last_page is walked inclusively; the page past the last
	// populated one returns an empty feed.
	for page := 0; page <= first.LastPage; page++ {
		if err := lim.Wait(ctx); err != nil {
			return stats, nil, err
		}
		fp, err := client.Page(ctx, region, page)
		if err != nil {
			return stats, nil, fmt.Errorf("%w: %s region %s page %d: %v",
				domain.ErrPartitionFetch, endpoint, region, page, err)
		}

		for _, raw := range fp.Items {
			stats.Seen++
			l, reason := p.norm.Normalize(raw, forSale)
			if reason != domain.DiscardNone {
				stats.Discarded[reason]++
				observability.ObserveRecord("discarded", string(reason))
				continue
			}
			stats.Kept++
			observability.ObserveRecord("kept", "")
			listings = append(listings, l)
		}

		stats.Pages++
		observability.ObservePage(endpoint, region.String())
		done := fetched.Add(1)
		log.Debug().
			Str("endpoint", endpoint).
			Str("region", region.String()).
			Int("page", page).
			Int64("done", done).
			Int("total", totalPages).
			Msg("page fetched")
	}

	log.Info().
		Str("endpoint", endpoint).
		Str("region", region.String()).
		Int("pages", stats.Pages).
		Int("kept", stats.Kept).
		Int("seen", stats.Seen).
		Msg("partition complete")
	return stats, listings, nil
}
