package app

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/rs/zerolog/log"

	"flex_reviews/internal/domain"
)

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// numberOf coerces JSON-ish scalars to a finite float64 (float64/int/string like "8.5"/bool).
func numberOf(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case bool:
		if t {
			f = 1
		}
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// stringOf renders scalars the way they read in the payload; anything else is "".
func stringOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

// int64Of: integer id from float64/int/string, 0 otherwise.
func int64Of(v any) int64 {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0
		}
		return int64(t)
	case int:
		return int64(t)
	case int64:
		return t
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		if f, ok := numberOf(s); ok {
			return int64(f)
		}
	}
	return 0
}

func mean(xs []float64) (float64, bool) {
	if len(xs) == 0 {
		return 0, false
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs)), true
}

// round1 rounds half up to one decimal.
func round1(x float64) float64 { return math.Floor(x*10+0.5) / 10 }

/********** slug / channel **********/

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	nonSlugChars  = regexp.MustCompile(`[^a-zA-Z0-9-]`)
)

// Slugify trims s, turns whitespace runs into "-" and drops anything outside [A-Za-z0-9-].
func Slugify(s string) string {
	s = whitespaceRun.ReplaceAllString(strings.TrimSpace(s), "-")
	return nonSlugChars.ReplaceAllString(s, "")
}

// pickChannel assigns a stable synthetic channel from the UTF-16 code unit sum of seed.
func pickChannel(seed string) domain.Channel {
	var n int
	for _, u := range utf16.Encode([]rune(seed)) {
		n += int(u)
	}
	if n%2 == 0 {
		return domain.ChannelGoogle
	}
	return domain.ChannelFlex
}

/********** submittedAt **********/

var submittedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseSubmitted reads RFC3339 or Hostaway's "YYYY-MM-DD hh:mm:ss" (UTC when no zone).
// Unparseable input yields the zero time, which sorts as the earliest instant.
func parseSubmitted(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range submittedLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

/********** review normalizer **********/

// Normalize maps raw Hostaway review records to canonical reviews.
// It never fails: a malformed field degrades to its default and the record is kept.
func Normalize(raw []map[string]any) []domain.NormalizedReview {
	out := make([]domain.NormalizedReview, 0, len(raw))
	for _, r := range raw {
		out = append(out, normalizeOne(r))
	}
	return out
}

func normalizeOne(r map[string]any) domain.NormalizedReview {
	if r == nil {
		r = map[string]any{}
	}

	categories := []domain.CategoryScore{}
	if arr, ok := lookupAny(r, "reviewCategory").([]any); ok {
		for _, it := range arr {
			c, _ := it.(map[string]any)
			rating, _ := numberOf(c["rating"])
			categories = append(categories, domain.CategoryScore{
				Category: stringOf(c["category"]),
				Rating:   rating,
			})
		}
	}

	ratings := make([]float64, 0, len(categories))
	for _, c := range categories {
		ratings = append(ratings, c.Rating)
	}

	var overall *float64
	if f, ok := numberOf(lookupAny(r, "rating")); ok {
		overall = &f
	} else if avg, ok := mean(ratings); ok {
		overall = &avg
	}

	listingName := strings.TrimSpace(stringOf(lookupAny(r, "listingName")))
	listingID := Slugify(listingName)
	if listingID == "" {
		listingID = Slugify(stringOf(lookupAny(r, "id")))
	}

	status := domain.StatusPublished
	if v := lookupAny(r, "status"); v != nil {
		status = stringOf(v)
	}

	nr := domain.NormalizedReview{
		ReviewID:      int64Of(lookupAny(r, "id")),
		ListingID:     listingID,
		ListingName:   listingName,
		Type:          domain.ReviewType(stringOf(lookupAny(r, "type"))),
		Status:        status,
		SubmittedAt:   stringOf(lookupAny(r, "submittedAt")),
		RatingOverall: overall,
		Categories:    categories,
		GuestName:     stringOf(lookupAny(r, "guestName")),
		Text:          strings.TrimSpace(stringOf(lookupAny(r, "publicReview"))),
		Channel:       pickChannel(listingName),
	}
	nr.Submitted = parseSubmitted(nr.SubmittedAt)
	if nr.Submitted.IsZero() && nr.SubmittedAt != "" {
		log.Debug().
			Int64("review_id", nr.ReviewID).
			Str("submitted_at", nr.SubmittedAt).
			Msg("unparseable submittedAt; treating as earliest")
	}
	return nr
}
