package cbs_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/xuri/excelize/v2"

	"yad2_listings/internal/adapters/cbs"
	redisad "yad2_listings/internal/adapters/redis"
	"yad2_listings/internal/domain"
)

func testSpec() cbs.Spec {
	var s cbs.Spec
	s.Spreadsheet.HeaderRows = 2
	s.Spreadsheet.FooterRows = 1
	s.Spreadsheet.Columns.City = "A"
	s.Spreadsheet.Columns.Population = "B"
	s.Spreadsheet.Columns.English = "C"
	s.Typos = map[string]string{"הרצלייה": "הרצליה"}
	return s
}

// buildWorkbook renders a spreadsheet in the shape the loader expects:
// two header rows, data rows, one footer row.
func buildWorkbook(t *testing.T, data [][3]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][3]string{{"טבלה", "", ""}, {"שם יישוב", "אוכלוסייה", "שם באנגלית"}}
	rows = append(rows, data...)
	rows = append(rows, [3]string{"הערות שוליים", "", ""})
	for i, row := range rows {
		for j, v := range row {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+1)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func serveWorkbook(t *testing.T, body []byte, status int) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestLoader_ParsesAndCorrectsTypos(t *testing.T) {
	body := buildWorkbook(t, [][3]string{
		{"הרצלייה", "97470", "Herzliyya"},
		{"חיפה", "285316", "Haifa"},
		{"", "123", "Ignored"}, // no locality name
	})
	ts := serveWorkbook(t, body, 200)

	l := cbs.New(ts.URL, testSpec(), nil, 0)
	got, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 cities, got %d: %+v", len(got), got)
	}
	if got[0].HebrewName != "הרצליה" {
		t.Fatalf("typo not corrected: %q", got[0].HebrewName)
	}
	if got[0].Population != 97470 || got[0].EnglishName != "Herzliyya" {
		t.Fatalf("unexpected row: %+v", got[0])
	}
	if got[1].HebrewName != "חיפה" || got[1].Population != 285316 {
		t.Fatalf("unexpected row: %+v", got[1])
	}
}

func TestLoader_BadStatusIsCensusLoadFailure(t *testing.T) {
	ts := serveWorkbook(t, []byte("gone"), 502)
	l := cbs.New(ts.URL, testSpec(), nil, 0)
	if _, err := l.Load(context.Background()); !errors.Is(err, domain.ErrCensusLoad) {
		t.Fatalf("expected ErrCensusLoad, got %v", err)
	}
}

func TestLoader_GarbageBodyIsCensusLoadFailure(t *testing.T) {
	ts := serveWorkbook(t, []byte("not a workbook"), 200)
	l := cbs.New(ts.URL, testSpec(), nil, 0)
	if _, err := l.Load(context.Background()); !errors.Is(err, domain.ErrCensusLoad) {
		t.Fatalf("expected ErrCensusLoad, got %v", err)
	}
}

func TestLoader_SecondLoadHitsCache(t *testing.T) {
	var hits int
	body := buildWorkbook(t, [][3]string{{"חיפה", "285316", "Haifa"}})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(200)
		_, _ = w.Write(body)
	}))
	defer ts.Close()

	mr := miniredis.RunT(t)
	cache := redisad.New(mr.Addr(), "", 0)

	l := cbs.New(ts.URL, testSpec(), cache, time.Hour)
	for i := 0; i < 2; i++ {
		got, err := l.Load(context.Background())
		if err != nil {
			t.Fatalf("load %d: %v", i, err)
		}
		if len(got) != 1 || got[0].Population != 285316 {
			t.Fatalf("load %d: unexpected table %+v", i, got)
		}
	}
	if hits != 1 {
		t.Fatalf("expected 1 spreadsheet fetch, got %d", hits)
	}
}
