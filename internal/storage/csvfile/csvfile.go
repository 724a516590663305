// Package csvfile persists the assembled dataset as the flat tabular file
// the downstream dashboard reads.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"yad2_listings/internal/domain"
)

var header = []string{
	"date_listed", "hebrew_city", "english_city", "city_population",
	"neighborhood", "street", "latitude", "longitude",
	"floor", "rooms", "area", "price", "for_sale",
	"distance_from_beach", "property_type", "link",
}

const dateLayout = time.RFC3339

// Writer writes one full dataset to a CSV file, replacing any previous one.
type Writer struct{ path string }

func NewWriter(path string) *Writer { return &Writer{path: path} }

func (w *Writer) WriteDataset(ctx context.Context, rows []domain.EnrichedListing) error {
	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("csvfile: create output dir: %w", err)
		}
	}
	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("csvfile: create %q: %w", w.path, err)
	}
	if err := WriteRows(f, rows); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// WriteRows emits the header and all rows to out. Shared by the file writer
// and the CSV download endpoint.
func WriteRows(out io.Writer, rows []domain.EnrichedListing) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("csvfile: write header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(record(r)); err != nil {
			return fmt.Errorf("csvfile: write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read loads a previously written dataset file.
func Read(path string) ([]domain.EnrichedListing, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csvfile: open %q: %w", path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = len(header)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csvfile: read %q: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csvfile: %q has no header", path)
	}

	rows := make([]domain.EnrichedListing, 0, len(records)-1)
	for i, rec := range records[1:] {
		row, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("csvfile: %q row %d: %w", path, i+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func record(r domain.EnrichedListing) []string {
	rec := []string{
		r.DateListed.Format(dateLayout),
		r.HebrewCity,
		r.EnglishCity,
		strconv.Itoa(r.CityPopulation),
		strOrEmpty(r.Neighborhood),
		strOrEmpty(r.Street),
		"", "", // latitude, longitude
		strconv.Itoa(r.Floor),
		strconv.FormatFloat(r.Rooms, 'f', -1, 64),
		strconv.Itoa(r.Area),
		strconv.Itoa(r.Price),
		strconv.FormatBool(r.ForSale),
		"", // distance_from_beach
		r.PropertyType,
		r.Link,
	}
	if r.Coordinates != nil {
		rec[6] = strconv.FormatFloat(r.Coordinates.Latitude, 'f', -1, 64)
		rec[7] = strconv.FormatFloat(r.Coordinates.Longitude, 'f', -1, 64)
	}
	if r.DistanceFromBeach != nil {
		rec[13] = strconv.Itoa(*r.DistanceFromBeach)
	}
	return rec
}

func parseRecord(rec []string) (domain.EnrichedListing, error) {
	var r domain.EnrichedListing
	var err error

	if r.DateListed, err = time.Parse(dateLayout, rec[0]); err != nil {
		return r, fmt.Errorf("date_listed: %w", err)
	}
	r.HebrewCity = rec[1]
	r.City = rec[1]
	r.EnglishCity = rec[2]
	if r.CityPopulation, err = strconv.Atoi(rec[3]); err != nil {
		return r, fmt.Errorf("city_population: %w", err)
	}
	r.Neighborhood = emptyToNil(rec[4])
	r.Street = emptyToNil(rec[5])
	if rec[6] != "" && rec[7] != "" {
		lat, err := strconv.ParseFloat(rec[6], 64)
		if err != nil {
			return r, fmt.Errorf("latitude: %w", err)
		}
		lon, err := strconv.ParseFloat(rec[7], 64)
		if err != nil {
			return r, fmt.Errorf("longitude: %w", err)
		}
		r.Coordinates = &domain.Coordinates{Latitude: lat, Longitude: lon}
	}
	if r.Floor, err = strconv.Atoi(rec[8]); err != nil {
		return r, fmt.Errorf("floor: %w", err)
	}
	if r.Rooms, err = strconv.ParseFloat(rec[9], 64); err != nil {
		return r, fmt.Errorf("rooms: %w", err)
	}
	if r.Area, err = strconv.Atoi(rec[10]); err != nil {
		return r, fmt.Errorf("area: %w", err)
	}
	if r.Price, err = strconv.Atoi(rec[11]); err != nil {
		return r, fmt.Errorf("price: %w", err)
	}
	if r.ForSale, err = strconv.ParseBool(rec[12]); err != nil {
		return r, fmt.Errorf("for_sale: %w", err)
	}
	if rec[13] != "" {
		d, err := strconv.Atoi(rec[13])
		if err != nil {
			return r, fmt.Errorf("distance_from_beach: %w", err)
		}
		r.DistanceFromBeach = &d
	}
	r.PropertyType = rec[14]
	r.Link = rec[15]
	return r, nil
}

func strOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func emptyToNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
