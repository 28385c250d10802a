package redisad

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"flex_reviews/internal/domain"
)

const DefaultApprovalsKey = "approvals"

const maxUpdateRetries = 100

// ApprovalStore keeps the whole approval map as one JSON entry and announces
// each write on a pub/sub channel of the same name.
// Writes are optimistic transactions on that key.
type ApprovalStore struct {
	c   *redis.Client
	key string
	now func() time.Time
}

func NewApprovalStore(c *redis.Client, key string) *ApprovalStore {
	if key == "" {
		key = DefaultApprovalsKey
	}
	return &ApprovalStore{c: c, key: key, now: time.Now}
}

// Get returns the stored map. A missing or corrupt entry reads as empty.
func (s *ApprovalStore) Get(ctx context.Context) (domain.Approvals, error) {
	return s.read(ctx, s.c)
}

// getter is satisfied by both the client and a WATCH transaction.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *ApprovalStore) read(ctx context.Context, c getter) (domain.Approvals, error) {
	b, err := c.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return domain.Approvals{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	var a domain.Approvals
	if err := json.Unmarshal(b, &a); err != nil || a == nil {
		log.Warn().Err(err).Str("key", s.key).Msg("corrupt approvals entry; resetting to empty")
		return domain.Approvals{}, nil
	}
	return a, nil
}

func (s *ApprovalStore) Set(ctx context.Context, id string, approved bool) error {
	_, err := s.update(ctx, id, func(bool) bool { return approved })
	return err
}

func (s *ApprovalStore) Toggle(ctx context.Context, id string) (bool, error) {
	return s.update(ctx, id, func(cur bool) bool { return !cur })
}

// update rewrites the map under WATCH; a write that lost the race is retried
// against the fresh map, so concurrent writers never drop each other's keys.
func (s *ApprovalStore) update(ctx context.Context, id string, next func(cur bool) bool) (bool, error) {
	var v bool
	txf := func(tx *redis.Tx) error {
		a, err := s.read(ctx, tx)
		if err != nil {
			return err
		}
		v = next(a[id])
		a[id] = v
		b, err := json.Marshal(a)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, s.key, b, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.c.Watch(ctx, txf, s.key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("redis update %s: %w", s.key, err)
		}
		s.publish(ctx, id, v)
		return v, nil
	}
	return false, fmt.Errorf("redis update %s: gave up after %d conflicting writes", s.key, maxUpdateRetries)
}

func (s *ApprovalStore) publish(ctx context.Context, id string, approved bool) {
	msg, _ := json.Marshal(domain.ApprovalChange{ReviewID: id, Approved: approved, At: s.now().UTC()})
	if err := s.c.Publish(ctx, s.key, msg).Err(); err != nil {
		// the write landed; only the notification is lost
		log.Warn().Err(err).Str("channel", s.key).Msg("approval change publish failed")
	}
}

// Subscribe listens on the approvals channel. The subscription is confirmed
// before returning so no later write is missed.
func (s *ApprovalStore) Subscribe(ctx context.Context) (<-chan domain.ApprovalChange, error) {
	ps := s.c.Subscribe(ctx, s.key)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", s.key, err)
	}

	out := make(chan domain.ApprovalChange, 16)
	go func() {
		defer close(out)
		defer ps.Close()
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				var c domain.ApprovalChange
				if err := json.Unmarshal([]byte(m.Payload), &c); err != nil {
					log.Warn().Err(err).Msg("skipping malformed approval change")
					continue
				}
				select {
				case out <- c:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
