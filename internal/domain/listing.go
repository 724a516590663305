package domain

import "time"

// RegionCode is one of the provider's fixed geographic partition codes. The
// provider shards its listing inventory by these codes; they are stable and
// known at compile time.
type RegionCode int

const (
	RegionSharon        RegionCode = 19
	RegionHaMerkaz      RegionCode = 2
	RegionShfela        RegionCode = 41
	RegionYehudaShomron RegionCode = 75
	RegionSouth         RegionCode = 43
	RegionJerusalem     RegionCode = 100
	RegionHadera        RegionCode = 101
	RegionNorth         RegionCode = 25
)

// Regions fixes the partition iteration order for a pipeline run.
var Regions = []RegionCode{
	RegionSharon,
	RegionHaMerkaz,
	RegionShfela,
	RegionYehudaShomron,
	RegionSouth,
	RegionJerusalem,
	RegionHadera,
	RegionNorth,
}

func (r RegionCode) String() string {
	switch r {
	case RegionSharon:
		return "sharon"
	case RegionHaMerkaz:
		return "hamerkaz"
	case RegionShfela:
		return "shfela"
	case RegionYehudaShomron:
		return "yehuda_shomron"
	case RegionSouth:
		return "south"
	case RegionJerusalem:
		return "jerusalem"
	case RegionHadera:
		return "hadera"
	case RegionNorth:
		return "north"
	}
	return "unknown"
}

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Listing is one validated feed record. Link is the natural key used for
// deduplication. DistanceFromBeach is present iff Coordinates is present.
type Listing struct {
	DateListed        time.Time    `json:"date_listed"`
	City              string       `json:"city"`
	Neighborhood      *string      `json:"neighborhood,omitempty"`
	Street            *string      `json:"street,omitempty"`
	Coordinates       *Coordinates `json:"coordinates,omitempty"`
	Floor             int          `json:"floor"`
	Rooms             float64      `json:"rooms"`
	Area              int          `json:"area"`
	Price             int          `json:"price"`
	ForSale           bool         `json:"for_sale"`
	DistanceFromBeach *int         `json:"distance_from_beach,omitempty"`
	PropertyType      string       `json:"property_type"`
	Link              string       `json:"link"`
}

// CensusCity is one row of the population reference table, with spelling
// corrections already applied to HebrewName.
type CensusCity struct {
	HebrewName  string `json:"hebrew_city"`
	EnglishName string `json:"english_city"`
	Population  int    `json:"city_population"`
}

// EnrichedListing is a Listing joined with its census row. Listings whose
// city has no census match never become EnrichedListings.
type EnrichedListing struct {
	Listing
	HebrewCity     string `json:"hebrew_city"`
	EnglishCity    string `json:"english_city"`
	CityPopulation int    `json:"city_population"`
}

// FilterParams are the user-selected dashboard filters applied to a
// finalized dataset. A nil bound means unbounded; empty Cities means all.
type FilterParams struct {
	MinPrice      *int
	MaxPrice      *int
	Cities        []string
	MinDateListed *time.Time
}
