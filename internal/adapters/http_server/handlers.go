package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"yad2_listings/internal/app"
	"yad2_listings/internal/domain"
	"yad2_listings/internal/storage/csvfile"
)

// Handlers serves a dataset snapshot loaded at startup.
type Handlers struct{ Dataset []domain.EnrichedListing }

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type listingsResponse struct {
	Count int                      `json:"count"`
	Items []domain.EnrichedListing `json:"items"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/listings", h.listListings)
	s.mux.Get("/v1/listings.csv", h.downloadCSV)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func parseFilters(r *http.Request) (domain.FilterParams, error) {
	var p domain.FilterParams
	q := r.URL.Query()

	if v := q.Get("min_price"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, err
		}
		p.MinPrice = &n
	}
	if v := q.Get("max_price"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, err
		}
		p.MaxPrice = &n
	}
	if v := q.Get("cities"); v != "" {
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" {
				p.Cities = append(p.Cities, c)
			}
		}
	}
	if v := q.Get("min_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			t, err = time.Parse("2006-01-02", v)
			if err != nil {
				return p, err
			}
		}
		p.MinDateListed = &t
	}
	return p, nil
}

func (h *Handlers) listListings(w http.ResponseWriter, r *http.Request) {
	params, err := parseFilters(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid filter", err.Error())
		return
	}
	rows := app.FilterDataset(h.Dataset, params)
	resp := listingsResponse{Count: len(rows), Items: rows}
	if resp.Items == nil {
		resp.Items = []domain.EnrichedListing{}
	}

	etag, body := calcETagAndBody(resp)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write listings body")
	}
}

func (h *Handlers) downloadCSV(w http.ResponseWriter, r *http.Request) {
	params, err := parseFilters(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid filter", err.Error())
		return
	}
	rows := app.FilterDataset(h.Dataset, params)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="all_listings.csv"`)
	if err := csvfile.WriteRows(w, rows); err != nil {
		log.Error().Err(err).Msg("failed to stream listings csv")
	}
}
