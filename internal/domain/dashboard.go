package domain

import "fmt"

// Filter selector sentinel shared by listing, channel and category.
const All = "all"

type TimeWindow string

const (
	WindowAll TimeWindow = "all"
	Window30d TimeWindow = "30d"
	Window90d TimeWindow = "90d"
)

type SortMode string

const (
	SortNewest  SortMode = "new"
	SortOldest  SortMode = "old"
	SortHighest SortMode = "hi"
	SortLowest  SortMode = "lo"
)

// Filters is the dashboard's user-selected state.
type Filters struct {
	Query        string
	OnlyApproved bool
	Listing      string // All or a listing id
	Channel      string // All, "google" or "flex"
	Category     string // All or a category label
	Time         TimeWindow
	Sort         SortMode
}

func DefaultFilters() Filters {
	return Filters{Listing: All, Channel: All, Category: All, Time: WindowAll, Sort: SortNewest}
}

// Validate fills empty selectors with defaults and rejects unknown enum values.
func (f *Filters) Validate() error {
	if f.Listing == "" {
		f.Listing = All
	}
	if f.Category == "" {
		f.Category = All
	}
	switch f.Channel {
	case "":
		f.Channel = All
	case All, string(ChannelGoogle), string(ChannelFlex):
	default:
		return fmt.Errorf("channel must be one of all, google, flex")
	}
	switch f.Time {
	case "":
		f.Time = WindowAll
	case WindowAll, Window30d, Window90d:
	default:
		return fmt.Errorf("time must be one of all, 30d, 90d")
	}
	switch f.Sort {
	case "":
		f.Sort = SortNewest
	case SortNewest, SortOldest, SortHighest, SortLowest:
	default:
		return fmt.Errorf("sort must be one of new, old, hi, lo")
	}
	return nil
}

type ListingOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Issue struct {
	Category string  `json:"category"`
	Avg      float64 `json:"avg"`
}

// Stats are computed over approved reviews of the listing scope only;
// text/channel/category/time filters never affect them.
type Stats struct {
	Avg             *float64 `json:"avg"`
	ApprovedInScope int      `json:"approvedInScope"`
	TotalInScope    int      `json:"totalInScope"`
	Last30          int      `json:"last30"`
	Issues          []Issue  `json:"issues"`
}

type DashboardRow struct {
	NormalizedReview
	Approved bool `json:"approved"`
}

type DashboardView struct {
	Reviews    []DashboardRow  `json:"reviews"`
	Listings   []ListingOption `json:"listings"`
	Categories []string        `json:"categories"`
	Stats      Stats           `json:"stats"`
	Error      string          `json:"error,omitempty"`
}

// StarRating is the 0–5 half-star rendering of a 0–10 score.
type StarRating struct {
	Value float64 `json:"value"`
	Full  int     `json:"full"`
	Half  bool    `json:"half"`
	Empty int     `json:"empty"`
}

type PublicPage struct {
	ListingID string             `json:"listingId"`
	Title     string             `json:"title"`
	Reviews   []NormalizedReview `json:"reviews"`
	Avg       *float64           `json:"avg"`
	Stars     *StarRating        `json:"stars,omitempty"`
	Error     string             `json:"error,omitempty"`
}
