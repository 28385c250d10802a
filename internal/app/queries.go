package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"flex_reviews/internal/adapters/observability"
	"flex_reviews/internal/domain"
)

const rawReviewsKey = "reviews:hostaway:raw"

// ReviewService is the fetch/fallback gateway: live upstream when configured,
// the bundled dataset otherwise or on any failure.
type ReviewService struct {
	source   domain.ReviewSource // nil when no access token is configured
	fallback func() []map[string]any
	cache    domain.Cache // optional
	cacheTTL time.Duration
	sf       singleflight.Group
}

func NewReviewService(src domain.ReviewSource, fallback func() []map[string]any, c domain.Cache, ttl time.Duration) *ReviewService {
	return &ReviewService{source: src, fallback: fallback, cache: c, cacheTTL: ttl}
}

// List returns normalized reviews, optionally narrowed to one listing.
// Upstream failures fall back. It errors only when ctx ends first or when no
// fallback dataset is available either (domain.ErrReviewsUnavailable).
func (s *ReviewService) List(ctx context.Context, listing string) ([]domain.NormalizedReview, error) {
	raw, err := s.raw(ctx)
	if err != nil {
		return nil, err
	}
	data := Normalize(raw)

	listing = strings.TrimSpace(listing)
	if listing == "" {
		return data, nil
	}
	out := make([]domain.NormalizedReview, 0, len(data))
	for _, d := range data {
		if d.ListingID == listing || d.ListingName == listing || Slugify(d.ListingName) == listing {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *ReviewService) raw(ctx context.Context) ([]map[string]any, error) {
	if s.source == nil {
		return s.fallbackRaw("no_token", nil)
	}

	if s.cache != nil {
		var cached []map[string]any
		if ok, _ := s.cache.Get(ctx, rawReviewsKey, &cached); ok {
			return cached, nil
		}
	}

	// concurrent requests share one upstream call; it outlives any single caller
	// and is bounded by the client timeout instead.
	v, err, _ := s.sf.Do(rawReviewsKey, func() (any, error) {
		return s.source.FetchReviews(context.WithoutCancel(ctx))
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return s.fallbackRaw(observability.LabelErr(err), err)
	}

	raw, _ := v.([]map[string]any)
	if s.cache != nil {
		_ = s.cache.Set(ctx, rawReviewsKey, raw, int(s.cacheTTL.Seconds()))
	}
	return raw, nil
}

func (s *ReviewService) fallbackRaw(reason string, err error) ([]map[string]any, error) {
	observability.ObserveFallback(reason)
	var raw []map[string]any
	if s.fallback != nil {
		raw = s.fallback()
	}
	if len(raw) == 0 {
		if err == nil {
			err = fmt.Errorf("no upstream configured")
		}
		log.Error().Err(err).Str("reason", reason).Msg("no fallback dataset to serve")
		return nil, fmt.Errorf("%w: %v", domain.ErrReviewsUnavailable, err)
	}
	if err != nil {
		log.Warn().Err(err).Msg("upstream reviews unavailable; serving fallback dataset")
	}
	return raw, nil
}
