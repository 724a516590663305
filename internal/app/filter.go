package app

import "yad2_listings/internal/domain"

// FilterDataset applies user-selected dashboard filters to a finalized
// dataset. Pure: the input slice is never mutated and row order is kept.
func FilterDataset(rows []domain.EnrichedListing, p domain.FilterParams) []domain.EnrichedListing {
	var cities map[string]struct{}
	if len(p.Cities) > 0 {
		cities = make(map[string]struct{}, len(p.Cities))
		for _, c := range p.Cities {
			cities[c] = struct{}{}
		}
	}

	out := make([]domain.EnrichedListing, 0, len(rows))
	for _, r := range rows {
		if p.MinPrice != nil && r.Price < *p.MinPrice {
			continue
		}
		if p.MaxPrice != nil && r.Price > *p.MaxPrice {
			continue
		}
		if cities != nil {
			if _, ok := cities[r.HebrewCity]; !ok {
				continue
			}
		}
		if p.MinDateListed != nil && r.DateListed.Before(*p.MinDateListed) {
			continue
		}
		out = append(out, r)
	}
	return out
}
