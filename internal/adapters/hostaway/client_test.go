package hostaway_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"flex_reviews/internal/adapters/hostaway"
)

func TestClient_FetchReviews_SendsBearerAndDecodes(t *testing.T) {
	var gotAuth, gotPath, gotLimit string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotLimit = r.URL.Query().Get("limit")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","result":[{"id":1,"listingName":"A"},42]}`))
	}))
	defer ts.Close()

	cl, err := hostaway.New(ts.URL, "tok", 100) // high RPS for tests
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	got, err := cl.FetchReviews(ctx)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("authorization header = %q", gotAuth)
	}
	if gotPath != "/reviews" || gotLimit != "200" {
		t.Fatalf("unexpected request %s limit=%s", gotPath, gotLimit)
	}
	if len(got) != 2 || got[0]["listingName"] != "A" || len(got[1]) != 0 {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestClient_FetchReviews_ResultNotArray(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":{"oops":true}}`))
	}))
	defer ts.Close()

	cl, _ := hostaway.New(ts.URL, "tok", 100)
	got, err := cl.FetchReviews(context.Background())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no records, got %d", len(got))
	}
}

func TestClient_FetchReviews_NonJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer ts.Close()

	cl, _ := hostaway.New(ts.URL, "tok", 100)
	if _, err := cl.FetchReviews(context.Background()); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestClient_FetchReviews_Unauthorized(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	cl, _ := hostaway.New(ts.URL, "tok", 100)
	_, err := cl.FetchReviews(context.Background())
	if !errors.Is(err, hostaway.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestNew_RequiresToken(t *testing.T) {
	if _, err := hostaway.New("", "", 1); err == nil {
		t.Fatalf("expected error without token")
	}
}

func TestFallback_BundledDataset(t *testing.T) {
	recs := hostaway.Fallback()
	if len(recs) == 0 {
		t.Fatalf("bundled dataset is empty")
	}
	for i, r := range recs {
		if _, ok := r["id"]; !ok {
			t.Fatalf("record %d has no id", i)
		}
	}
}
