package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"flex_reviews/internal/adapters/observability"
	"flex_reviews/internal/domain"
)

// ApprovalService is the write side of the approval store.
type ApprovalService struct {
	store domain.ApprovalStore
}

func NewApprovalService(s domain.ApprovalStore) *ApprovalService {
	return &ApprovalService{store: s}
}

// List returns the current approval map; a failed read degrades to empty.
func (s *ApprovalService) List(ctx context.Context) domain.Approvals {
	a, err := s.store.Get(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("approval read failed; returning empty set")
		return domain.Approvals{}
	}
	if a == nil {
		return domain.Approvals{}
	}
	return a
}

func (s *ApprovalService) Toggle(ctx context.Context, id string) (bool, error) {
	key, err := domain.NormalizeReviewKey(id)
	if err != nil {
		return false, err
	}
	v, err := s.store.Toggle(ctx, key)
	if err != nil {
		return false, fmt.Errorf("toggle approval %s: %w", key, err)
	}
	observability.ObserveApproval("toggle")
	log.Info().Str("review_id", key).Bool("approved", v).Msg("approval toggled")
	return v, nil
}

func (s *ApprovalService) Set(ctx context.Context, id string, approved bool) error {
	key, err := domain.NormalizeReviewKey(id)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, key, approved); err != nil {
		return fmt.Errorf("set approval %s: %w", key, err)
	}
	observability.ObserveApproval("set")
	log.Info().Str("review_id", key).Bool("approved", approved).Msg("approval set")
	return nil
}

// Watch streams changes until ctx ends.
func (s *ApprovalService) Watch(ctx context.Context) (<-chan domain.ApprovalChange, error) {
	return s.store.Subscribe(ctx)
}
