package app

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"flex_reviews/internal/domain"
)

const day = 24 * time.Hour

func windowDuration(w domain.TimeWindow) time.Duration {
	switch w {
	case domain.Window30d:
		return 30 * day
	case domain.Window90d:
		return 90 * day
	}
	return 0
}

// BuildDashboard derives the visible list, facets and scope statistics.
// rows are never modified; every step works on copies.
func BuildDashboard(rows []domain.NormalizedReview, appr domain.Approvals, f domain.Filters, now time.Time) domain.DashboardView {
	scope := scopeTo(rows, f.Listing)

	return domain.DashboardView{
		Reviews:    filterRows(scope, appr, f, now),
		Listings:   listingOptions(rows),
		Categories: categoryOptions(rows),
		Stats:      scopeStats(scope, appr, now),
	}
}

func scopeTo(rows []domain.NormalizedReview, listing string) []domain.NormalizedReview {
	if listing == "" || listing == domain.All {
		return append([]domain.NormalizedReview(nil), rows...)
	}
	out := make([]domain.NormalizedReview, 0, len(rows))
	for _, r := range rows {
		if r.ListingID == listing {
			out = append(out, r)
		}
	}
	return out
}

// searchBlob joins the searchable fields, lowercased; empty parts are skipped.
func searchBlob(r domain.NormalizedReview) string {
	cats := make([]string, 0, len(r.Categories))
	for _, c := range r.Categories {
		cats = append(cats, c.Category+":"+strconv.FormatFloat(c.Rating, 'f', -1, 64))
	}
	parts := make([]string, 0, 4)
	for _, p := range []string{r.ListingName, r.GuestName, r.Text, strings.Join(cats, " ")} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.ToLower(strings.Join(parts, " "))
}

func hasCategory(r domain.NormalizedReview, label string) bool {
	for _, c := range r.Categories {
		if c.Category == label {
			return true
		}
	}
	return false
}

func filterRows(scope []domain.NormalizedReview, appr domain.Approvals, f domain.Filters, now time.Time) []domain.DashboardRow {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	var cutoff time.Time
	if d := windowDuration(f.Time); d > 0 {
		cutoff = now.Add(-d)
	}

	out := make([]domain.DashboardRow, 0, len(scope))
	for _, r := range scope {
		if q != "" && !strings.Contains(searchBlob(r), q) {
			continue
		}
		approved := appr.IsApproved(r.ReviewID)
		if f.OnlyApproved && !approved {
			continue
		}
		if f.Channel != "" && f.Channel != domain.All && string(r.Channel) != f.Channel {
			continue
		}
		if f.Category != "" && f.Category != domain.All && !hasCategory(r, f.Category) {
			continue
		}
		// zero (unparseable) timestamps always fall outside a window
		if !cutoff.IsZero() && (r.Submitted.IsZero() || r.Submitted.Before(cutoff)) {
			continue
		}
		out = append(out, domain.DashboardRow{NormalizedReview: r, Approved: approved})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch f.Sort {
		case domain.SortOldest:
			return a.Submitted.Before(b.Submitted)
		case domain.SortHighest:
			return a.RatingOrZero() > b.RatingOrZero()
		case domain.SortLowest:
			return a.RatingOrZero() < b.RatingOrZero()
		default:
			return a.Submitted.After(b.Submitted)
		}
	})
	return out
}

// listingOptions: unique listing ids in first-seen order; a later name for the same id wins.
func listingOptions(rows []domain.NormalizedReview) []domain.ListingOption {
	idx := map[string]int{}
	out := []domain.ListingOption{}
	for _, r := range rows {
		if i, ok := idx[r.ListingID]; ok {
			out[i].Name = r.ListingName
			continue
		}
		idx[r.ListingID] = len(out)
		out = append(out, domain.ListingOption{ID: r.ListingID, Name: r.ListingName})
	}
	return out
}

func categoryOptions(rows []domain.NormalizedReview) []string {
	seen := map[string]struct{}{}
	labels := []string{}
	for _, r := range rows {
		for _, c := range r.Categories {
			if c.Category == "" {
				continue
			}
			if _, ok := seen[c.Category]; !ok {
				seen[c.Category] = struct{}{}
				labels = append(labels, c.Category)
			}
		}
	}
	sort.Strings(labels)
	return append([]string{domain.All}, labels...)
}

func scopeStats(scope []domain.NormalizedReview, appr domain.Approvals, now time.Time) domain.Stats {
	approved := make([]domain.NormalizedReview, 0, len(scope))
	for _, r := range scope {
		if appr.IsApproved(r.ReviewID) {
			approved = append(approved, r)
		}
	}

	st := domain.Stats{
		ApprovedInScope: len(approved),
		TotalInScope:    len(scope),
		Issues:          topIssues(approved, 3),
	}

	cutoff := now.Add(-30 * day)
	nums := make([]float64, 0, len(approved))
	for _, r := range approved {
		if !r.Submitted.IsZero() && !r.Submitted.Before(cutoff) {
			st.Last30++
		}
		if r.RatingOverall != nil {
			nums = append(nums, *r.RatingOverall)
		}
	}
	if avg, ok := mean(nums); ok {
		v := round1(avg)
		st.Avg = &v
	}
	return st
}

// topIssues returns the n categories with the lowest mean rating, ascending;
// equal means keep first-seen order.
func topIssues(approved []domain.NormalizedReview, n int) []domain.Issue {
	type acc struct{ sum, count float64 }
	agg := map[string]*acc{}
	order := []string{}
	for _, r := range approved {
		for _, c := range r.Categories {
			a, ok := agg[c.Category]
			if !ok {
				a = &acc{}
				agg[c.Category] = a
				order = append(order, c.Category)
			}
			a.sum += c.Rating
			a.count++
		}
	}

	issues := make([]domain.Issue, 0, len(order))
	for _, k := range order {
		a := agg[k]
		issues = append(issues, domain.Issue{Category: k, Avg: a.sum / a.count})
	}
	sort.SliceStable(issues, func(i, j int) bool { return issues[i].Avg < issues[j].Avg })
	if len(issues) > n {
		issues = issues[:n]
	}
	return issues
}

/********** service **********/

// DashboardService loads reviews and approvals together and applies the pipeline.
type DashboardService struct {
	reviews   *ReviewService
	approvals domain.ApprovalStore
	now       func() time.Time
}

func NewDashboardService(r *ReviewService, a domain.ApprovalStore) *DashboardService {
	return &DashboardService{reviews: r, approvals: a, now: time.Now}
}

// Load fetches reviews and approvals concurrently; either may finish first.
// A fetch failure (domain.ErrReviewsUnavailable) becomes an inline error with
// an empty list. If ctx ends before the results are applied they are discarded
// and ctx.Err() returned.
func (s *DashboardService) Load(ctx context.Context, f domain.Filters) (domain.DashboardView, error) {
	rows, appr, fetchErr := loadBoth(ctx, s.reviews, s.approvals, "")
	if ctx.Err() != nil {
		return domain.DashboardView{}, ctx.Err()
	}

	view := BuildDashboard(rows, appr, f, s.now())
	if fetchErr != nil {
		view.Reviews = []domain.DashboardRow{}
		view.Error = "Couldn't load reviews: " + fetchErr.Error()
	}
	return view, nil
}

// loadBoth runs the review fetch and the approval read side by side.
// Approval read failures reset to an empty map; they never fail the load.
func loadBoth(ctx context.Context, rs *ReviewService, store domain.ApprovalStore, listing string) ([]domain.NormalizedReview, domain.Approvals, error) {
	var (
		rows     []domain.NormalizedReview
		appr     = domain.Approvals{}
		fetchErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, fetchErr = rs.List(gctx, listing)
		return nil
	})
	g.Go(func() error {
		a, err := store.Get(gctx)
		if err != nil {
			log.Warn().Err(err).Msg("approval read failed; treating all as unapproved")
			return nil
		}
		appr = a
		return nil
	})
	_ = g.Wait()
	return rows, appr, fetchErr
}
