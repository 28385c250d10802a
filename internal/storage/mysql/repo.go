package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"flex_reviews/internal/adapters/memory"
	"flex_reviews/internal/domain"
)

// ApprovalRepo is the durable approval store: one row per review.
// MySQL has no change feed, so notifications reach subscribers of this
// process only.
type ApprovalRepo struct {
	db  *sql.DB
	bus *memory.Broadcaster
	now func() time.Time
}

func New(db *sql.DB) *ApprovalRepo {
	return &ApprovalRepo{db: db, bus: memory.NewBroadcaster(), now: time.Now}
}

func (r *ApprovalRepo) Get(ctx context.Context) (domain.Approvals, error) {
	rows, err := r.db.QueryContext(ctx, selectApprovalsSQL)
	if err != nil {
		return nil, fmt.Errorf("select approvals: %w", err)
	}
	defer rows.Close()

	out := domain.Approvals{}
	for rows.Next() {
		var id string
		var approved bool
		if err := rows.Scan(&id, &approved); err != nil {
			return nil, fmt.Errorf("scan approval: %w", err)
		}
		out[id] = approved
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ApprovalRepo) Set(ctx context.Context, id string, approved bool) error {
	if _, err := r.db.ExecContext(ctx, upsertApprovalSQL, id, approved); err != nil {
		return fmt.Errorf("upsert approval: %w", err)
	}
	r.bus.Publish(domain.ApprovalChange{ReviewID: id, Approved: approved, At: r.now()})
	return nil
}

// Toggle flips in one statement and reads the result back in the same transaction.
func (r *ApprovalRepo) Toggle(ctx context.Context, id string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin toggle: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, toggleApprovalSQL, id); err != nil {
		return false, fmt.Errorf("toggle approval: %w", err)
	}
	var v bool
	if err := tx.QueryRowContext(ctx, selectApprovalSQL, id).Scan(&v); err != nil {
		return false, fmt.Errorf("read toggled approval: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit toggle: %w", err)
	}

	r.bus.Publish(domain.ApprovalChange{ReviewID: id, Approved: v, At: r.now()})
	return v, nil
}

func (r *ApprovalRepo) Subscribe(ctx context.Context) (<-chan domain.ApprovalChange, error) {
	return r.bus.Subscribe(ctx), nil
}
