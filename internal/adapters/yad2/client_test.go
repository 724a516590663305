package yad2_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"yad2_listings/internal/adapters/yad2"
	"yad2_listings/internal/domain"
)

const feedBody = `{"data":{"pagination":{"last_page":4},"feed":{"feed_items":[{"city":"חיפה"},{"city":"חיפה"}]}}}`

func fastRetry() yad2.RetryPolicy {
	return yad2.RetryPolicy{Attempts: 3, Delay: 10 * time.Millisecond}
}

func TestClient_Page_QueryParams(t *testing.T) {
	var gotQuery atomic.Value
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.Query())
		w.WriteHeader(200)
		_, _ = w.Write([]byte(feedBody))
	}))
	defer ts.Close()

	cl, err := yad2.New(ts.URL, "600000-20000000", fastRetry())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	fp, err := cl.Page(context.Background(), domain.RegionNorth, 3)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if fp.LastPage != 4 || len(fp.Items) != 2 {
		t.Fatalf("unexpected page: %+v", fp)
	}

	q := gotQuery.Load().(url.Values)
	if q.Get("topArea") != "25" {
		t.Fatalf("topArea = %q", q.Get("topArea"))
	}
	if q.Get("page") != "3" {
		t.Fatalf("page = %q", q.Get("page"))
	}
	if q.Get("price") != "600000-20000000" {
		t.Fatalf("price = %q", q.Get("price"))
	}
	if q.Get("propertyGroup") != "apartments,houses" || q.Get("forceLdLoad") != "true" {
		t.Fatalf("fixed params missing: %v", q)
	}
}

func TestClient_Discover_OmitsPageParam(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("page") {
			t.Errorf("warm-up request carried a page param: %s", r.URL.RawQuery)
		}
		w.WriteHeader(200)
		_, _ = w.Write([]byte(feedBody))
	}))
	defer ts.Close()

	cl, _ := yad2.New(ts.URL, "", fastRetry())
	fp, err := cl.Discover(context.Background(), domain.RegionSharon)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if fp.LastPage != 4 {
		t.Fatalf("last_page = %d", fp.LastPage)
	}
}

func TestClient_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			w.WriteHeader(500)
		default:
			w.WriteHeader(200)
			_, _ = w.Write([]byte(feedBody))
		}
	}))
	defer ts.Close()

	cl, _ := yad2.New(ts.URL, "", fastRetry())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := cl.Page(ctx, domain.RegionHaMerkaz, 0); err != nil {
		t.Fatalf("expected recovery on third attempt: %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestClient_GivesUpAfterThreeAttempts(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(503)
	}))
	defer ts.Close()

	cl, _ := yad2.New(ts.URL, "", fastRetry())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := cl.Page(ctx, domain.RegionSouth, 1)
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", got)
	}
}
