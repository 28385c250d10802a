package domain

import "time"

type ReviewType string

const (
	GuestToHost ReviewType = "guest-to-host"
	HostToGuest ReviewType = "host-to-guest"
)

type Channel string

const (
	ChannelGoogle Channel = "google"
	ChannelFlex   Channel = "flex"
)

const StatusPublished = "published"

type CategoryScore struct {
	Category string  `json:"category"`
	Rating   float64 `json:"rating"`
}

// NormalizedReview is the canonical review shape every view works from.
// Instances are rebuilt on each fetch and never mutated in place.
type NormalizedReview struct {
	ReviewID      int64           `json:"reviewId"`
	ListingID     string          `json:"listingId"` // slug of ListingName, or of the raw id
	ListingName   string          `json:"listingName"`
	Type          ReviewType      `json:"type,omitempty"` // empty when the source omits it
	Status        string          `json:"status"`
	SubmittedAt   string          `json:"submittedAt"`
	RatingOverall *float64        `json:"ratingOverall"` // 0–10, nil when nothing to derive it from
	Categories    []CategoryScore `json:"categories"`
	GuestName     string          `json:"guestName,omitempty"`
	Text          string          `json:"text,omitempty"`
	Channel       Channel         `json:"channel"` // synthetic, derived from ListingName

	// Submitted is SubmittedAt parsed; zero when SubmittedAt is absent or invalid.
	Submitted time.Time `json:"-"`
}

// RatingOrZero is used for comparisons only; it never replaces a nil rating.
func (r NormalizedReview) RatingOrZero() float64 {
	if r.RatingOverall == nil {
		return 0
	}
	return *r.RatingOverall
}
