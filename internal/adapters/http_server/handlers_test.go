package httpserver_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httpserver "yad2_listings/internal/adapters/http_server"
	"yad2_listings/internal/domain"
)

func testDataset() []domain.EnrichedListing {
	return []domain.EnrichedListing{
		{
			Listing: domain.Listing{
				DateListed:   time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
				City:         "תל אביב יפו",
				Floor:        3,
				Rooms:        3.5,
				Area:         85,
				Price:        2500000,
				ForSale:      true,
				PropertyType: "דירה",
				Link:         "https://www.yad2.co.il/item/aaa",
			},
			HebrewCity:     "תל אביב יפו",
			EnglishCity:    "TEL AVIV - YAFO",
			CityPopulation: 451523,
		},
		{
			Listing: domain.Listing{
				DateListed:   time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
				City:         "ירושלים",
				Floor:        1,
				Rooms:        4,
				Area:         100,
				Price:        8000,
				ForSale:      false,
				PropertyType: "דירה",
				Link:         "https://www.yad2.co.il/item/bbb",
			},
			HebrewCity:     "ירושלים",
			EnglishCity:    "JERUSALEM",
			CityPopulation: 936425,
		},
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httpserver.New()
	srv.MountHandlers(&httpserver.Handlers{Dataset: testDataset()})
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return ts
}

func getListings(t *testing.T, url string) (int, []domain.EnrichedListing, *http.Response) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	var body struct {
		Count int                      `json:"count"`
		Items []domain.EnrichedListing `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
	return body.Count, body.Items, resp
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestListListings_All(t *testing.T) {
	ts := newTestServer(t)
	count, items, resp := getListings(t, ts.URL+"/v1/listings")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if count != 2 || len(items) != 2 {
		t.Fatalf("count = %d, items = %d, want 2/2", count, len(items))
	}
	if resp.Header.Get("ETag") == "" {
		t.Fatal("missing ETag header")
	}
}

func TestListListings_Filters(t *testing.T) {
	ts := newTestServer(t)

	count, items, _ := getListings(t, ts.URL+"/v1/listings?min_price=1000000")
	if count != 1 || items[0].Link != "https://www.yad2.co.il/item/aaa" {
		t.Fatalf("min_price filter: count=%d items=%+v", count, items)
	}

	count, items, _ = getListings(t, ts.URL+"/v1/listings?cities=%D7%99%D7%A8%D7%95%D7%A9%D7%9C%D7%99%D7%9D")
	if count != 1 || items[0].HebrewCity != "ירושלים" {
		t.Fatalf("cities filter: count=%d items=%+v", count, items)
	}

	count, _, _ = getListings(t, ts.URL+"/v1/listings?min_date=2026-08-01")
	if count != 1 {
		t.Fatalf("min_date filter: count=%d, want 1", count)
	}

	count, items, _ = getListings(t, ts.URL+"/v1/listings?min_price=99999999")
	if count != 0 || items == nil || len(items) != 0 {
		t.Fatalf("empty result should be [], got count=%d items=%v", count, items)
	}
}

func TestListListings_BadFilter(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/v1/listings?min_price=abc")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("content type = %q", ct)
	}
}

func TestListListings_ETagNotModified(t *testing.T) {
	ts := newTestServer(t)
	_, _, first := getListings(t, ts.URL+"/v1/listings")
	etag := first.Header.Get("ETag")

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/v1/listings", nil)
	req.Header.Set("If-None-Match", etag)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("conditional GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotModified {
		t.Fatalf("status = %d, want 304", resp.StatusCode)
	}
}

func TestDownloadCSV(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/v1/listings.csv")
	if err != nil {
		t.Fatalf("GET csv: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("content type = %q", ct)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2 rows", len(lines))
	}
	if !strings.HasPrefix(lines[0], "date_listed,hebrew_city,") {
		t.Fatalf("unexpected header: %q", lines[0])
	}
}
