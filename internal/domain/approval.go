package domain

import (
	"strconv"
	"strings"
	"time"
)

// Approvals maps a review id (decimal string) to its approval flag.
// A missing key means "not approved".
type Approvals map[string]bool

func (a Approvals) IsApproved(id int64) bool { return a[ReviewKey(id)] }

// Clone returns an independent copy; nil in, empty out.
func (a Approvals) Clone() Approvals {
	out := make(Approvals, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

type ApprovalChange struct {
	ReviewID string    `json:"reviewId"`
	Approved bool      `json:"approved"`
	At       time.Time `json:"at"`
}

func ReviewKey(id int64) string { return strconv.FormatInt(id, 10) }

// NormalizeReviewKey trims id and rejects empty keys.
func NormalizeReviewKey(id string) (string, error) {
	k := strings.TrimSpace(id)
	if k == "" {
		return "", ErrInvalidReviewID
	}
	return k, nil
}
