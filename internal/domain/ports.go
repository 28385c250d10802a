package domain

import (
	"context"
	"errors"
)

var (
	ErrInvalidReviewID = errors.New("invalid review id")
	// ErrReviewsUnavailable: neither upstream nor the fallback dataset produced reviews.
	ErrReviewsUnavailable = errors.New("reviews unavailable")
)

// ReviewSource is the upstream review provider (Hostaway).
type ReviewSource interface {
	FetchReviews(ctx context.Context) ([]map[string]any, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// ApprovalStore holds the per-review approval flags shared by every view.
// Writes to one id are last-write-wins and never drop other ids; Toggle is atomic.
type ApprovalStore interface {
	Get(ctx context.Context) (Approvals, error)
	Set(ctx context.Context, id string, approved bool) error
	// Toggle flips the flag (absent counts as false) and returns the new value.
	Toggle(ctx context.Context, id string) (bool, error)
	// Subscribe delivers every change until ctx is done, then closes the channel.
	Subscribe(ctx context.Context) (<-chan ApprovalChange, error)
}
