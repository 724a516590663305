package app

import (
	"time"

	"yad2_listings/internal/domain"
)

const (
	// Listings older than this are treated as stale and dropped.
	stalenessWindow = 16 * 7 * 24 * time.Hour

	// Cities contributing fewer surviving listings than this are too thin
	// to analyze and are dropped whole.
	minListingsPerCity = 9

	areaTrimUpperFactor = 5.0
	areaTrimLowerDivide = 10.0
)

// AssembleStats counts what each assembly step removed.
type AssembleStats struct {
	In            int
	CensusMisses  int
	Stale         int
	AreaOutliers  int
	LowVolumeCity int
	Duplicates    int
	Out           int
}

// Assemble merges the sale and rent listing sets into the final dataset.
// Sale rows precede rent rows, and on a duplicate link the FIRST occurrence
// wins, so a listing cross-posted to both feeds survives as its sale form.
// The area outlier trim is a single pass: the mean is computed once over the
// rows that survived the staleness filter, never recomputed.
//
// The census table must already carry its spelling corrections; the join is
// exact. Output ordering is dense and deterministic.
func Assemble(sale, rent []domain.Listing, census []domain.CensusCity, now time.Time) ([]domain.EnrichedListing, AssembleStats) {
	var stats AssembleStats

	byCity := make(map[string]domain.CensusCity, len(census))
	for _, c := range census {
		byCity[c.HebrewName] = c
	}

	all := make([]domain.Listing, 0, len(sale)+len(rent))
	all = append(all, sale...)
	all = append(all, rent...)
	stats.In = len(all)

	cutoff := now.Add(-stalenessWindow)
	rows := make([]domain.EnrichedListing, 0, len(all))
	for _, l := range all {
		c, ok := byCity[l.City]
		if !ok {
			stats.CensusMisses++
			continue
		}
		if !l.DateListed.After(cutoff) {
			stats.Stale++
			continue
		}
		rows = append(rows, domain.EnrichedListing{
			Listing:        l,
			HebrewCity:     c.HebrewName,
			EnglishCity:    c.EnglishName,
			CityPopulation: c.Population,
		})
	}

	rows, stats.AreaOutliers = trimAreaOutliers(rows)

	counts := make(map[string]int, 64)
	for _, r := range rows {
		counts[r.HebrewCity]++
	}
	kept := rows[:0]
	for _, r := range rows {
		if counts[r.HebrewCity] < minListingsPerCity {
			stats.LowVolumeCity++
			continue
		}
		kept = append(kept, r)
	}
	rows = kept

	seen := make(map[string]struct{}, len(rows))
	out := make([]domain.EnrichedListing, 0, len(rows))
	for _, r := range rows {
		if _, dup := seen[r.Link]; dup {
			stats.Duplicates++
			continue
		}
		seen[r.Link] = struct{}{}
		out = append(out, r)
	}

	stats.Out = len(out)
	return out, stats
}

// trimAreaOutliers drops rows whose area falls outside the open interval
// (mean/10, mean*5) of the input set's area mean.
func trimAreaOutliers(rows []domain.EnrichedListing) ([]domain.EnrichedListing, int) {
	if len(rows) == 0 {
		return rows, 0
	}
	var sum float64
	for _, r := range rows {
		sum += float64(r.Area)
	}
	mean := sum / float64(len(rows))
	lo := mean / areaTrimLowerDivide
	hi := mean * areaTrimUpperFactor

	dropped := 0
	out := make([]domain.EnrichedListing, 0, len(rows))
	for _, r := range rows {
		a := float64(r.Area)
		if a > lo && a < hi {
			out = append(out, r)
		} else {
			dropped++
		}
	}
	return out, dropped
}
