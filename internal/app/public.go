package app

import (
	"context"
	"math"
	"sort"
	"strings"

	"flex_reviews/internal/domain"
)

// publiclyVisible: guest-authored, published and approved.
func publiclyVisible(r domain.NormalizedReview, appr domain.Approvals) bool {
	return r.Type == domain.GuestToHost &&
		r.Status == domain.StatusPublished &&
		appr.IsApproved(r.ReviewID)
}

// ComposePublicPage builds the public reviews section for one listing.
func ComposePublicPage(listingID string, rows []domain.NormalizedReview, appr domain.Approvals) domain.PublicPage {
	visible := make([]domain.NormalizedReview, 0, len(rows))
	for _, r := range rows {
		if publiclyVisible(r, appr) {
			visible = append(visible, r)
		}
	}
	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].Submitted.After(visible[j].Submitted)
	})

	page := domain.PublicPage{
		ListingID: listingID,
		Title:     strings.ReplaceAll(listingID, "-", " "),
		Reviews:   visible,
	}
	if len(visible) > 0 {
		var sum float64
		for _, r := range visible {
			sum += r.RatingOrZero()
		}
		avg := round1(sum / float64(len(visible)))
		page.Avg = &avg
		st := Stars(avg)
		page.Stars = &st
	}
	return page
}

// Stars maps a 0–10 score onto five stars with halves, clamped to [0, 5].
func Stars(score10 float64) domain.StarRating {
	five := math.Floor(score10/2*2+0.5) / 2
	five = math.Max(0, math.Min(5, five))
	full := int(math.Floor(five))
	half := five-float64(full) >= 0.5
	empty := 5 - full
	if half {
		empty--
	}
	return domain.StarRating{Value: five, Full: full, Half: half, Empty: empty}
}

/********** service **********/

type PublicService struct {
	reviews   *ReviewService
	approvals domain.ApprovalStore
}

func NewPublicService(r *ReviewService, a domain.ApprovalStore) *PublicService {
	return &PublicService{reviews: r, approvals: a}
}

// Page fetches the listing's reviews and approvals together and composes the page.
// Results arriving after ctx ends are discarded.
func (s *PublicService) Page(ctx context.Context, listingID string) (domain.PublicPage, error) {
	rows, appr, fetchErr := loadBoth(ctx, s.reviews, s.approvals, listingID)
	if ctx.Err() != nil {
		return domain.PublicPage{}, ctx.Err()
	}
	page := ComposePublicPage(listingID, rows, appr)
	if fetchErr != nil {
		page.Error = fetchErr.Error()
	}
	return page, nil
}
