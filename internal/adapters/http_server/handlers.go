package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"flex_reviews/internal/app"
	"flex_reviews/internal/domain"
)

type Handlers struct {
	Q *app.QueryService
	C *app.CommandService
}

type problem struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"requestId"`
	Retryable bool   `json:"retryable,omitempty"`
}

type listResponse[T any] struct {
	Success bool `json:"success"`
	Data    []T  `json:"data"`
	Count   int  `json:"count"`
}

type itemResponse[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/api", func(r chi.Router) {
		r.Get("/reviews/hostaway", h.listReviews)
		r.Get("/reviews/{id}", h.getReview)
		r.Post("/reviews/{id}/moderation", h.moderate)

		r.Get("/properties/hostaway", h.listProperties)
		r.Get("/properties/hostaway/{id}", h.getProperty)
		r.Get("/properties/hostaway/{id}/reviews", h.publicReviews)

		r.Get("/dashboard/properties", h.dashboard)
	})
}

func requestID(r *http.Request) string {
	if id := chimw.GetReqID(r.Context()); id != "" {
		return id
	}
	return uuid.NewString()
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, title, detail string) {
	p := problem{
		Type:      "about:blank",
		Title:     title,
		Status:    status,
		Detail:    detail,
		RequestID: requestID(r),
		Retryable: status == http.StatusBadGateway,
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps service errors onto problem responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidQuery):
		writeProblem(w, r, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, domain.ErrUpstream):
		log.Warn().Err(err).Str("request_id", chimw.GetReqID(r.Context())).Msg("upstream review source failed")
		writeProblem(w, r, http.StatusBadGateway, "Bad Gateway", "review source unavailable")
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, r, http.StatusNotFound, "Not Found", err.Error())
	default:
		log.Error().Err(err).Str("request_id", chimw.GetReqID(r.Context())).Msg("request failed")
		writeProblem(w, r, http.StatusInternalServerError, "Internal Server Error", "")
	}
}

func etagOf(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag")
		return ""
	}
	sum := sha1.Sum(b)
	return `W/"` + hex.EncodeToString(sum[:]) + `"`
}

// writeJSON writes v with status 200. A non-empty etag enables conditional GETs.
func writeJSON(w http.ResponseWriter, r *http.Request, v any, etag string) {
	if etag != "" {
		w.Header().Set("ETag", etag)
		if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	body, err := json.Marshal(v)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: id must be a number", app.ErrInvalidQuery)
	}
	return id, nil
}

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	q, err := parseReviewQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	env, err := h.Q.ListReviews(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	// generatedAt changes on every call, so the tag covers the page content only
	etag := etagOf(struct {
		Total   int
		Limit   int
		Offset  int
		Filters map[string]any
		Data    []domain.Review
	}{env.Meta.Total, env.Meta.Limit, env.Meta.Offset, env.Meta.AppliedFilters, env.Data})
	writeJSON(w, r, env, etag)
}

func (h *Handlers) getReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rv, err := h.Q.GetReview(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, rv, etagOf(rv))
}

type moderationRequest struct {
	Action domain.ModerationAction `json:"action"`
}

func (h *Handlers) moderate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body moderationRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeProblem(w, r, http.StatusBadRequest, "Bad Request", "body must be {\"action\": \"approve|deny|publish|hide|reset\"}")
		return
	}
	rv, err := h.C.Moderate(r.Context(), id, body.Action)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, rv, "")
}

func (h *Handlers) listProperties(w http.ResponseWriter, r *http.Request) {
	props, err := h.Q.ListProperties(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := listResponse[domain.Property]{Success: true, Data: props, Count: len(props)}
	writeJSON(w, r, resp, etagOf(resp))
}

func (h *Handlers) getProperty(w http.ResponseWriter, r *http.Request) {
	p, err := h.Q.GetProperty(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := itemResponse[domain.Property]{Success: true, Data: p}
	writeJSON(w, r, resp, etagOf(resp))
}

func (h *Handlers) publicReviews(w http.ResponseWriter, r *http.Request) {
	page, err := h.Q.PublicReviews(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, page, etagOf(page))
}

func (h *Handlers) dashboard(w http.ResponseWriter, r *http.Request) {
	sum, err := h.Q.Dashboard(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, sum, "")
}

// parseReviewQuery reads the feed filters. includeUnapproved defaults to true
// since this is the operator feed.
func parseReviewQuery(r *http.Request) (domain.ReviewQuery, error) {
	v := r.URL.Query()
	q := domain.ReviewQuery{
		ListingID:         v.Get("listingId"),
		Type:              domain.ReviewType(v.Get("type")),
		Status:            domain.ReviewStatus(v.Get("status")),
		Channel:           v.Get("channel"),
		Sort:              v.Get("sort"),
		IncludeUnapproved: true,
	}
	if q.Type != "" && !q.Type.Valid() {
		return q, fmt.Errorf("%w: type must be guest-to-host or host-to-guest", app.ErrInvalidQuery)
	}
	if q.Status != "" && !q.Status.Valid() {
		return q, fmt.Errorf("%w: unknown status %q", app.ErrInvalidQuery, q.Status)
	}

	var err error
	if q.MinRating, err = floatParam(v.Get("minRating"), "minRating"); err != nil {
		return q, err
	}
	if q.MaxRating, err = floatParam(v.Get("maxRating"), "maxRating"); err != nil {
		return q, err
	}
	if q.From, err = dateParam(v.Get("from"), "from", false); err != nil {
		return q, err
	}
	if q.To, err = dateParam(v.Get("to"), "to", true); err != nil {
		return q, err
	}
	if q.Limit, err = intParam(v.Get("limit"), "limit"); err != nil {
		return q, err
	}
	if q.Offset, err = intParam(v.Get("offset"), "offset"); err != nil {
		return q, err
	}
	if s := v.Get("includeUnapproved"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return q, fmt.Errorf("%w: includeUnapproved must be a boolean", app.ErrInvalidQuery)
		}
		q.IncludeUnapproved = b
	}
	return q, nil
}

func floatParam(s, name string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: %s must be a number", app.ErrInvalidQuery, name)
	}
	return &f, nil
}

func intParam(s, name string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", app.ErrInvalidQuery, name)
	}
	return n, nil
}

// dateParam accepts RFC 3339 or a bare YYYY-MM-DD. A bare date used as an
// upper bound covers the whole day.
func dateParam(s, name string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be YYYY-MM-DD or RFC 3339", app.ErrInvalidQuery, name)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Millisecond)
	}
	return &t, nil
}
