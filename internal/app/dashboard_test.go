package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"flex_reviews/internal/adapters/memory"
	"flex_reviews/internal/app"
	"flex_reviews/internal/domain"
)

var now = time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC)

func pfloat(f float64) *float64 { return &f }

func review(id int64, listing string, rating *float64, age time.Duration, cats ...domain.CategoryScore) domain.NormalizedReview {
	if cats == nil {
		cats = []domain.CategoryScore{}
	}
	return domain.NormalizedReview{
		ReviewID:      id,
		ListingID:     app.Slugify(listing),
		ListingName:   listing,
		Type:          domain.GuestToHost,
		Status:        domain.StatusPublished,
		RatingOverall: rating,
		Categories:    cats,
		Channel:       domain.ChannelFlex,
		Submitted:     now.Add(-age),
	}
}

func cat(name string, r float64) domain.CategoryScore {
	return domain.CategoryScore{Category: name, Rating: r}
}

func ids(rows []domain.DashboardRow) []int64 {
	out := make([]int64, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ReviewID)
	}
	return out
}

func sameIDs(a []int64, b ...int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestBuildDashboard_TopIssuesAscendingStableOnTies(t *testing.T) {
	rows := []domain.NormalizedReview{
		review(1, "Flat", pfloat(7), time.Hour, cat("A", 9), cat("B", 5), cat("C", 7), cat("D", 5)),
	}
	v := app.BuildDashboard(rows, domain.Approvals{"1": true}, domain.DefaultFilters(), now)

	got := v.Stats.Issues
	if len(got) != 3 || got[0].Category != "B" || got[1].Category != "D" || got[2].Category != "C" {
		t.Fatalf("unexpected issues: %+v", got)
	}
}

func TestBuildDashboard_IssuesOnlyFromApproved(t *testing.T) {
	rows := []domain.NormalizedReview{
		review(1, "Flat", pfloat(9), time.Hour, cat("wifi", 2)),
		review(2, "Flat", pfloat(9), time.Hour, cat("cleanliness", 9)),
	}
	v := app.BuildDashboard(rows, domain.Approvals{"2": true}, domain.DefaultFilters(), now)
	if len(v.Stats.Issues) != 1 || v.Stats.Issues[0].Category != "cleanliness" {
		t.Fatalf("unexpected issues: %+v", v.Stats.Issues)
	}
}

func TestBuildDashboard_TimeWindowAndSort(t *testing.T) {
	rows := []domain.NormalizedReview{
		review(1, "Flat", pfloat(6), 40*24*time.Hour),
		review(2, "Flat", pfloat(9), 5*24*time.Hour),
		review(3, "Flat", nil, 10*24*time.Hour),
		{ReviewID: 4, ListingID: "Flat", Categories: []domain.CategoryScore{}}, // unparseable date
	}

	f := domain.DefaultFilters()
	f.Time = domain.Window30d
	v := app.BuildDashboard(rows, nil, f, now)
	if !sameIDs(ids(v.Reviews), 2, 3) {
		t.Fatalf("30d newest-first: %v", ids(v.Reviews))
	}

	f = domain.DefaultFilters()
	f.Sort = domain.SortOldest
	if got := ids(app.BuildDashboard(rows, nil, f, now).Reviews); !sameIDs(got, 4, 1, 3, 2) {
		t.Fatalf("oldest-first: %v", got)
	}

	f.Sort = domain.SortHighest
	if got := ids(app.BuildDashboard(rows, nil, f, now).Reviews); !sameIDs(got, 2, 1, 3, 4) {
		t.Fatalf("highest-first: %v", got)
	}

	f.Sort = domain.SortLowest
	if got := ids(app.BuildDashboard(rows, nil, f, now).Reviews); !sameIDs(got, 3, 4, 1, 2) {
		t.Fatalf("lowest-first: %v", got)
	}
}

func TestBuildDashboard_SearchChannelCategory(t *testing.T) {
	a := review(1, "Shoreditch Heights", pfloat(9), time.Hour, cat("cleanliness", 10))
	a.GuestName = "Amelia Hart"
	b := review(2, "Camden Yard", pfloat(8), time.Hour, cat("value", 7))
	b.Channel = domain.ChannelGoogle
	b.Text = "Lovely WiFi"
	rows := []domain.NormalizedReview{a, b}

	cases := []struct {
		name string
		mod  func(*domain.Filters)
		want []int64
	}{
		{"guest name any case", func(f *domain.Filters) { f.Query = "  AMELIA " }, []int64{1}},
		{"text", func(f *domain.Filters) { f.Query = "wifi" }, []int64{2}},
		{"category pair", func(f *domain.Filters) { f.Query = "cleanliness:10" }, []int64{1}},
		{"channel", func(f *domain.Filters) { f.Channel = string(domain.ChannelGoogle) }, []int64{2}},
		{"category", func(f *domain.Filters) { f.Category = "cleanliness" }, []int64{1}},
		{"listing", func(f *domain.Filters) { f.Listing = app.Slugify("Camden Yard") }, []int64{2}},
		{"only approved", func(f *domain.Filters) { f.OnlyApproved = true }, []int64{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := domain.DefaultFilters()
			tc.mod(&f)
			got := ids(app.BuildDashboard(rows, nil, f, now).Reviews)
			if !sameIDs(got, tc.want...) {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}

func TestBuildDashboard_StatsFollowApprovals(t *testing.T) {
	rows := []domain.NormalizedReview{
		review(1, "Flat", pfloat(8), time.Hour),
		review(2, "Flat", pfloat(6), 45*24*time.Hour),
		review(3, "Flat", pfloat(10), time.Hour),
		review(4, "Flat", nil, time.Hour),
		review(5, "Flat", pfloat(2), time.Hour),
		review(6, "Other", pfloat(1), time.Hour),
	}
	f := domain.DefaultFilters()
	f.Listing = "Flat"
	f.Query = "nothing matches this"

	appr := domain.Approvals{"1": true, "2": true, "6": true}
	st := app.BuildDashboard(rows, appr, f, now).Stats
	if st.ApprovedInScope != 2 || st.TotalInScope != 5 || st.Last30 != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	if st.Avg == nil || *st.Avg != 7 {
		t.Fatalf("avg=%v", st.Avg)
	}

	appr["2"] = false
	st = app.BuildDashboard(rows, appr, f, now).Stats
	if st.ApprovedInScope != 1 || st.TotalInScope != 5 || *st.Avg != 8 {
		t.Fatalf("after unapprove: %+v avg=%v", st, *st.Avg)
	}

	// approved but unrated contributes to the count, not the average
	st = app.BuildDashboard(rows, domain.Approvals{"4": true}, f, now).Stats
	if st.ApprovedInScope != 1 || st.Avg != nil {
		t.Fatalf("unrated only: %+v", st)
	}
}

func TestBuildDashboard_FacetsAndInputUntouched(t *testing.T) {
	rows := []domain.NormalizedReview{
		review(2, "Flat B", pfloat(5), time.Hour, cat("value", 5)),
		review(1, "Flat A", pfloat(9), 2*time.Hour, cat("cleanliness", 9), cat("", 3)),
		review(3, "Flat B", pfloat(7), 3*time.Hour),
	}
	f := domain.DefaultFilters()
	f.Sort = domain.SortHighest
	v := app.BuildDashboard(rows, nil, f, now)

	if len(v.Listings) != 2 || v.Listings[0].ID != "Flat-B" || v.Listings[1].ID != "Flat-A" {
		t.Fatalf("listings: %+v", v.Listings)
	}
	if len(v.Categories) != 3 || v.Categories[0] != domain.All || v.Categories[1] != "cleanliness" || v.Categories[2] != "value" {
		t.Fatalf("categories: %v", v.Categories)
	}
	if rows[0].ReviewID != 2 || rows[1].ReviewID != 1 {
		t.Fatal("input slice was reordered")
	}
}

type failingStore struct{ *memory.ApprovalStore }

func (failingStore) Get(context.Context) (domain.Approvals, error) {
	return nil, errors.New("store down")
}

func TestDashboardService_ApprovalReadFailureDegrades(t *testing.T) {
	reviews := app.NewReviewService(nil, fallbackOf(fallbackRow), nil, 0)
	svc := app.NewDashboardService(reviews, failingStore{memory.NewApprovalStore()})

	v, err := svc.Load(context.Background(), domain.DefaultFilters())
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(v.Reviews) != 1 || v.Reviews[0].Approved || v.Stats.ApprovedInScope != 0 {
		t.Fatalf("unexpected view: %+v", v)
	}
	if v.Error != "" {
		t.Fatalf("approval failure must not surface as a fetch error: %q", v.Error)
	}
}

func TestDashboardService_CancelledDiscardsResults(t *testing.T) {
	reviews := app.NewReviewService(nil, fallbackOf(fallbackRow), nil, 0)
	svc := app.NewDashboardService(reviews, memory.NewApprovalStore())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Load(ctx, domain.DefaultFilters()); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestDashboardService_FetchFailureIsInlineError(t *testing.T) {
	reviews := app.NewReviewService(&fakeSource{err: errors.New("hostaway 503")}, nil, nil, 0)
	svc := app.NewDashboardService(reviews, memory.NewApprovalStore())

	v, err := svc.Load(context.Background(), domain.DefaultFilters())
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if !strings.HasPrefix(v.Error, "Couldn't load reviews: ") || !strings.Contains(v.Error, "hostaway 503") {
		t.Fatalf("error=%q", v.Error)
	}
	if v.Reviews == nil || len(v.Reviews) != 0 || v.Stats.TotalInScope != 0 {
		t.Fatalf("unexpected view: %+v", v)
	}
}
