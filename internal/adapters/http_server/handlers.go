// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"flex_reviews/internal/adapters/observability"
	"flex_reviews/internal/app"
	"flex_reviews/internal/domain"
)

// SourceHostaway is the only review source served under /api/reviews/{source}.
const SourceHostaway = "hostaway"

type Handlers struct {
	Reviews   *app.ReviewService
	Dashboard *app.DashboardService
	Public    *app.PublicService
	Approvals *app.ApprovalService
	EdgeTTL   time.Duration // s-maxage hint on the reviews route
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Group(func(r chi.Router) {
		r.Use(Timeout(s.timeout))
		r.Get("/api/reviews/{source}", h.listReviews)
		r.Get("/api/dashboard", h.dashboard)
		r.Get("/api/approvals", h.listApprovals)
		r.Put("/api/approvals/{id}", h.setApproval)
		r.Post("/api/approvals/{id}/toggle", h.toggleApproval)
		r.Get("/api/properties/{id}", h.propertyJSON)
		r.Get("/property/{id}", h.propertyHTML)
	})

	// long-lived stream; ends with the client connection
	s.mux.Get("/api/approvals/events", h.approvalEvents)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		// Log but don't fail the whole response; return empty ETag and best-effort body.
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// ---- reviews ----

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	if src := chi.URLParam(r, "source"); src != SourceHostaway {
		writeProblem(w, http.StatusNotFound, "Not Found", fmt.Sprintf("unknown review source %q", src))
		return
	}

	rows, err := h.Reviews.List(r.Context(), r.URL.Query().Get("listing"))
	if err != nil {
		if r.Context().Err() != nil {
			log.Debug().Err(err).Msg("reviews request abandoned")
			return
		}
		// the route always answers with a result list
		log.Error().Err(err).Msg("no reviews to serve")
		rows = []domain.NormalizedReview{}
	}

	etag, body := calcETagAndBody(map[string]any{"result": rows})
	ttl := int(h.EdgeTTL.Seconds())
	if ttl <= 0 {
		ttl = 30
	}
	w.Header().Set("Cache-Control", fmt.Sprintf("public, s-maxage=%d, stale-while-revalidate=%d", ttl, ttl))
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write listReviews body")
	}
}

// ---- dashboard ----

func parseFilters(r *http.Request) (domain.Filters, error) {
	q := r.URL.Query()
	f := domain.Filters{
		Query:    q.Get("q"),
		Listing:  q.Get("listing"),
		Channel:  q.Get("channel"),
		Category: q.Get("category"),
		Time:     domain.TimeWindow(q.Get("time")),
		Sort:     domain.SortMode(q.Get("sort")),
	}
	if v := q.Get("onlyApproved"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, fmt.Errorf("onlyApproved must be a boolean")
		}
		f.OnlyApproved = b
	}
	return f, f.Validate()
}

func (h *Handlers) dashboard(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilters(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid filter", err.Error())
		return
	}
	view, err := h.Dashboard.Load(r.Context(), f)
	if err != nil {
		log.Debug().Err(err).Msg("dashboard request abandoned")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ---- approvals ----

func (h *Handlers) listApprovals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Approvals.List(r.Context()))
}

type approvalBody struct {
	Approved *bool `json:"approved"`
}

type approvalResult struct {
	ReviewID string `json:"reviewId"`
	Approved bool   `json:"approved"`
}

func (h *Handlers) setApproval(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body approvalBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&body); err != nil || body.Approved == nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", `expected {"approved": true|false}`)
		return
	}
	if err := h.Approvals.Set(r.Context(), id, *body.Approved); err != nil {
		h.approvalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, approvalResult{ReviewID: id, Approved: *body.Approved})
}

func (h *Handlers) toggleApproval(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	v, err := h.Approvals.Toggle(r.Context(), id)
	if err != nil {
		h.approvalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, approvalResult{ReviewID: id, Approved: v})
}

func (h *Handlers) approvalError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrInvalidReviewID) {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "review id must not be empty")
		return
	}
	log.Error().Err(err).Msg("approval write failed")
	writeProblem(w, http.StatusServiceUnavailable, "Approval store unavailable", "")
}

// approvalEvents streams approval changes as Server-Sent Events so other open
// views can re-read approvals without reloading.
func (h *Handlers) approvalEvents(w http.ResponseWriter, r *http.Request) {
	fl, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "")
		return
	}
	ctx := r.Context()
	changes, err := h.Approvals.Watch(ctx)
	if err != nil {
		log.Error().Err(err).Msg("approval subscribe failed")
		writeProblem(w, http.StatusServiceUnavailable, "Approval store unavailable", "")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fl.Flush()

	defer observability.TrackStream()()
	ping := time.NewTicker(25 * time.Second)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			b, _ := json.Marshal(c)
			if _, err := fmt.Fprintf(w, "event: approval\ndata: %s\n\n", b); err != nil {
				return
			}
			fl.Flush()
		case <-ping.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			fl.Flush()
		}
	}
}

// ---- public property page ----

func (h *Handlers) propertyJSON(w http.ResponseWriter, r *http.Request) {
	page, err := h.Public.Page(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		log.Debug().Err(err).Msg("property request abandoned")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handlers) propertyHTML(w http.ResponseWriter, r *http.Request) {
	page, err := h.Public.Page(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		log.Debug().Err(err).Msg("property request abandoned")
		return
	}
	renderProperty(w, page)
}
