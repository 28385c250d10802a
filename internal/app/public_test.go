package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"flex_reviews/internal/adapters/memory"
	"flex_reviews/internal/app"
	"flex_reviews/internal/domain"
)

func TestComposePublicPage_Visibility(t *testing.T) {
	guest := review(1, "Flat", pfloat(9), 2*time.Hour)
	host := review(2, "Flat", pfloat(10), time.Hour)
	host.Type = domain.HostToGuest
	pending := review(3, "Flat", pfloat(4), time.Hour)
	pending.Status = "pending"
	untyped := review(4, "Flat", pfloat(4), time.Hour)
	untyped.Type = ""
	newer := review(5, "Flat", pfloat(8), time.Minute)

	rows := []domain.NormalizedReview{guest, host, pending, untyped, newer}
	appr := domain.Approvals{"1": true, "2": true, "3": true, "4": true, "5": true}

	p := app.ComposePublicPage("Flat", rows, appr)
	if len(p.Reviews) != 2 || p.Reviews[0].ReviewID != 5 || p.Reviews[1].ReviewID != 1 {
		t.Fatalf("want [5 1], got %+v", p.Reviews)
	}
	if p.Avg == nil || *p.Avg != 8.5 {
		t.Fatalf("avg=%v", p.Avg)
	}
	if p.Stars == nil || p.Stars.Value != 4.5 || p.Stars.Full != 4 || !p.Stars.Half || p.Stars.Empty != 0 {
		t.Fatalf("stars=%+v", p.Stars)
	}

	appr["5"] = false
	p = app.ComposePublicPage("Flat", rows, appr)
	if len(p.Reviews) != 1 || p.Reviews[0].ReviewID != 1 || *p.Avg != 9 {
		t.Fatalf("after unapprove: %+v", p)
	}
}

func TestComposePublicPage_EmptyAndTitle(t *testing.T) {
	p := app.ComposePublicPage("2B-N1-A---29-Shoreditch-Heights", nil, nil)
	if p.Title != "2B N1 A   29 Shoreditch Heights" {
		t.Fatalf("title=%q", p.Title)
	}
	if p.Avg != nil || p.Stars != nil || p.Reviews == nil || len(p.Reviews) != 0 {
		t.Fatalf("empty page: %+v", p)
	}
}

func TestComposePublicPage_UnratedCountsAsZero(t *testing.T) {
	rows := []domain.NormalizedReview{
		review(1, "Flat", pfloat(9), time.Hour),
		review(2, "Flat", nil, time.Hour),
	}
	p := app.ComposePublicPage("Flat", rows, domain.Approvals{"1": true, "2": true})
	if *p.Avg != 4.5 {
		t.Fatalf("avg=%v", *p.Avg)
	}
}

func TestStars(t *testing.T) {
	cases := []struct {
		score       float64
		value       float64
		full, empty int
		half        bool
	}{
		{10, 5, 5, 0, false},
		{9.4, 4.5, 4, 0, true},
		{9.5, 5, 5, 0, false},
		{7, 3.5, 3, 1, true},
		{0, 0, 0, 5, false},
		{-3, 0, 0, 5, false},
		{14, 5, 5, 0, false},
	}
	for _, tc := range cases {
		s := app.Stars(tc.score)
		if s.Value != tc.value || s.Full != tc.full || s.Half != tc.half || s.Empty != tc.empty {
			t.Errorf("Stars(%v)=%+v", tc.score, s)
		}
	}
}

func TestPublicService_Page(t *testing.T) {
	raw := []map[string]any{
		{"id": 10, "type": "guest-to-host", "status": "published", "rating": 8, "listingName": "Camden Yard", "submittedAt": "2025-05-03 14:00:00"},
		{"id": 11, "type": "guest-to-host", "rating": 6, "listingName": "Camden Yard", "submittedAt": "2025-05-04 14:00:00"},
		{"id": 12, "type": "guest-to-host", "status": "published", "rating": 2, "listingName": "Elsewhere"},
	}
	store := memory.NewApprovalStore()
	ctx := context.Background()
	for _, id := range []string{"10", "11", "12"} {
		if err := store.Set(ctx, id, true); err != nil {
			t.Fatalf("set: %v", err)
		}
	}

	reviews := app.NewReviewService(nil, fallbackOf(raw...), nil, 0)
	p, err := app.NewPublicService(reviews, store).Page(ctx, "Camden-Yard")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	// missing status reads as published
	if len(p.Reviews) != 2 || p.Reviews[0].ReviewID != 11 || *p.Avg != 7 {
		t.Fatalf("unexpected page: %+v", p)
	}
	if p.Title != "Camden Yard" {
		t.Fatalf("title=%q", p.Title)
	}
}

func TestPublicService_FetchFailureIsInlineError(t *testing.T) {
	reviews := app.NewReviewService(&fakeSource{err: errors.New("hostaway 503")}, nil, nil, 0)
	p, err := app.NewPublicService(reviews, memory.NewApprovalStore()).Page(context.Background(), "Camden-Yard")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if p.Error == "" || len(p.Reviews) != 0 || p.Avg != nil {
		t.Fatalf("unexpected page: %+v", p)
	}
	if p.Title != "Camden Yard" {
		t.Fatalf("title=%q", p.Title)
	}
}
