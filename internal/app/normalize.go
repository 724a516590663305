package app

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"yad2_listings/internal/domain"
	"yad2_listings/internal/geo"
)

const (
	listingURLTemplate = "https://www.yad2.co.il/item/%s"
	groundFloorToken   = "קרקע"
)

// Normalizer turns one raw feed item into a validated Listing. Every check
// is a discard point: a record missing any required field is dropped whole,
// never emitted partially filled. Discards are reasons, not errors; the
// caller tallies them and the run continues.
type Normalizer struct {
	coast *geo.CoastlineIndex
}

func NewNormalizer(coast *geo.CoastlineIndex) *Normalizer {
	return &Normalizer{coast: coast}
}

// Normalize validates raw and returns the typed listing, or the reason it
// was discarded (DiscardNone when kept).
func (n *Normalizer) Normalize(raw domain.RawListing, forSale bool) (domain.Listing, domain.DiscardReason) {
	var l domain.Listing
	l.ForSale = forSale

	floor, reason := parseFloor(raw)
	if reason != domain.DiscardNone {
		return domain.Listing{}, reason
	}
	l.Floor = floor

	rooms, ok := asFloat(raw["Rooms_text"])
	if !ok {
		return domain.Listing{}, domain.DiscardBadRooms
	}
	l.Rooms = rooms

	area, ok := asInt(raw["square_meters"])
	if !ok {
		return domain.Listing{}, domain.DiscardBadArea
	}
	l.Area = area

	city, ok := asString(raw["city"])
	if !ok || strings.TrimSpace(city) == "" {
		return domain.Listing{}, domain.DiscardMissingCity
	}
	l.City = city

	price, ok := parsePrice(raw["price"])
	if !ok {
		return domain.Listing{}, domain.DiscardBadPrice
	}
	l.Price = price

	date, ok := parseDate(raw["date_added"])
	if !ok {
		return domain.Listing{}, domain.DiscardBadDate
	}
	l.DateListed = date

	coords, ok := parseCoordinates(raw["coordinates"])
	if !ok {
		return domain.Listing{}, domain.DiscardBadCoordinates
	}
	l.Coordinates = coords

	propertyType, ok := asString(raw["HomeTypeID_text"])
	if !ok || propertyType == "" {
		return domain.Listing{}, domain.DiscardMissingType
	}
	l.PropertyType = propertyType

	token, ok := asString(raw["link_token"])
	if !ok || token == "" {
		return domain.Listing{}, domain.DiscardMissingLinkToken
	}
	l.Link = fmt.Sprintf(listingURLTemplate, token)

	if s, ok := asString(raw["neighborhood"]); ok && s != "" {
		l.Neighborhood = &s
	}
	if s, ok := asString(raw["street"]); ok && s != "" {
		l.Street = &s
	}

	if l.Coordinates != nil {
		d := n.coast.NearestDistanceMeters(l.Coordinates.Latitude, l.Coordinates.Longitude)
		l.DistanceFromBeach = &d
	}
	return l, domain.DiscardNone
}

// parseFloor scans the row_4 attribute list for the floor entry. The Hebrew
// "ground" token maps to floor 0. A listing without the attribute is
// discarded.
func parseFloor(raw domain.RawListing) (int, domain.DiscardReason) {
	attrs, ok := raw["row_4"].([]any)
	if !ok {
		return 0, domain.DiscardMissingFloor
	}
	for _, a := range attrs {
		attr, ok := a.(map[string]any)
		if !ok {
			continue
		}
		key, _ := asString(attr["key"])
		if key != "floor" {
			continue
		}
		if s, ok := asString(attr["value"]); ok && strings.TrimSpace(s) == groundFloorToken {
			return 0, domain.DiscardNone
		}
		floor, ok := asInt(attr["value"])
		if !ok {
			return 0, domain.DiscardBadFloor
		}
		return floor, domain.DiscardNone
	}
	return 0, domain.DiscardMissingFloor
}

// parsePrice handles the provider's "<number> <currency-suffix>" strings,
// e.g. "1,250,000 ₪".
func parsePrice(v any) (int, bool) {
	s, ok := asString(v)
	if !ok {
		return 0, false
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(strings.ReplaceAll(fields[0], ",", ""))
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseDate(v any) (time.Time, bool) {
	s, ok := asString(v)
	if !ok {
		return time.Time{}, false
	}
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseCoordinates treats a missing or falsy coordinates field as "absent"
// (nil, true); a present field must carry parseable latitude and longitude.
func parseCoordinates(v any) (*domain.Coordinates, bool) {
	switch c := v.(type) {
	case nil:
		return nil, true
	case string:
		if c == "" {
			return nil, true
		}
		return nil, false
	case []any:
		if len(c) == 0 {
			return nil, true
		}
		return nil, false
	case map[string]any:
		if len(c) == 0 {
			return nil, true
		}
		lat, okLat := asFloat(c["latitude"])
		lon, okLon := asFloat(c["longitude"])
		if !okLat || !okLon {
			return nil, false
		}
		return &domain.Coordinates{Latitude: lat, Longitude: lon}, true
	}
	return nil, false
}

// ---- tolerant scalar coercion (feed fields arrive as strings or numbers) ----

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func asInt(v any) (int, bool) {
	f, ok := asFloat(v)
	if !ok {
		return 0, false
	}
	if f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}
