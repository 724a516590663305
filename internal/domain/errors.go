package domain

import "errors"

var (
	// ErrPartitionFetch marks a partition whose page fetches exhausted their
	// retries. It is fatal to the whole run; no partial dataset is written.
	ErrPartitionFetch = errors.New("partition fetch failed")

	// ErrCensusLoad marks an unreachable or unparseable census source. Fatal
	// to assembly; there is no fallback table.
	ErrCensusLoad = errors.New("census table load failed")
)

// DiscardReason classifies why a single raw feed record was rejected during
// normalization. Discards are counted, never surfaced as run errors.
type DiscardReason string

const (
	DiscardNone             DiscardReason = ""
	DiscardMissingFloor     DiscardReason = "missing_floor"
	DiscardBadFloor         DiscardReason = "bad_floor"
	DiscardBadRooms         DiscardReason = "bad_rooms"
	DiscardBadArea          DiscardReason = "bad_area"
	DiscardMissingCity      DiscardReason = "missing_city"
	DiscardBadPrice         DiscardReason = "bad_price"
	DiscardBadCoordinates   DiscardReason = "bad_coordinates"
	DiscardBadDate          DiscardReason = "bad_date"
	DiscardMissingType      DiscardReason = "missing_property_type"
	DiscardMissingLinkToken DiscardReason = "missing_link_token"
)
