package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"flex_reviews/internal/domain"
	"flex_reviews/internal/normalize"
)

var ErrInvalidQuery = errors.New("invalid query")

const (
	DefaultLimit = 50
	MaxLimit     = 200
	DefaultSort  = "submittedAt:desc"
)

type normalizedFeed interface {
	Normalized(ctx context.Context) (normalize.Result, error)
}

type overlayLoader interface {
	Load(ctx context.Context) (Overlay, error)
}

type QueryService struct {
	feed       normalizedFeed
	moderation overlayLoader
	catalog    domain.ListingCatalog
	now        func() time.Time
}

func NewQueryService(feed normalizedFeed, mod overlayLoader, catalog domain.ListingCatalog) *QueryService {
	return &QueryService{feed: feed, moderation: mod, catalog: catalog, now: time.Now}
}

// current returns the normalized batch with the moderation overlay applied.
func (s *QueryService) current(ctx context.Context) ([]domain.Review, error) {
	res, err := s.feed.Normalized(ctx)
	if err != nil {
		return nil, err
	}
	ov, err := s.moderation.Load(ctx)
	if err != nil {
		return nil, err
	}
	return ApplyOverlay(res.Reviews, ov), nil
}

func (s *QueryService) ListReviews(ctx context.Context, q domain.ReviewQuery) (domain.Envelope, error) {
	field, desc, err := parseSort(q.Sort)
	if err != nil {
		return domain.Envelope{}, err
	}
	if q.Limit < 0 || q.Offset < 0 {
		return domain.Envelope{}, fmt.Errorf("%w: limit and offset must be non-negative", ErrInvalidQuery)
	}
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}

	all, err := s.current(ctx)
	if err != nil {
		return domain.Envelope{}, err
	}

	out := make([]domain.Review, 0, len(all))
	for _, r := range all {
		if matches(r, q) {
			out = append(out, r)
		}
	}
	sortReviews(out, field, desc)

	total := len(out)
	start := min(q.Offset, total)
	page := out[start : start+min(q.Limit, total-start)]

	return domain.Envelope{
		Meta: domain.EnvelopeMeta{
			Total:          total,
			Limit:          q.Limit,
			Offset:         q.Offset,
			GeneratedAt:    s.now().UTC(),
			AppliedFilters: appliedFilters(q, field, desc),
		},
		Data: page,
	}, nil
}

func (s *QueryService) GetReview(ctx context.Context, id int64) (domain.Review, error) {
	all, err := s.current(ctx)
	if err != nil {
		return domain.Review{}, err
	}
	for _, r := range all {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.Review{}, fmt.Errorf("review %d: %w", id, domain.ErrNotFound)
}

// PublicReviews builds the guest-facing page of one listing: visible guest
// reviews, newest first, each with its visible host replies.
func (s *QueryService) PublicReviews(ctx context.Context, listingID string) (domain.PublicPage, error) {
	all, err := s.current(ctx)
	if err != nil {
		return domain.PublicPage{}, err
	}

	replies := map[int64][]domain.Review{}
	var guests []domain.Review
	for _, r := range all {
		if !publiclyVisible(r) {
			continue
		}
		switch r.Type {
		case domain.TypeGuestToHost:
			if r.ListingID == listingID {
				guests = append(guests, r)
			}
		case domain.TypeHostToGuest:
			if r.ReplyToReviewID != nil {
				replies[*r.ReplyToReviewID] = append(replies[*r.ReplyToReviewID], r)
			}
		}
	}
	sortReviews(guests, "submittedAt", true)

	page := domain.PublicPage{
		ListingID:   listingID,
		ReviewCount: len(guests),
		Threads:     make([]domain.PublicThread, 0, len(guests)),
	}
	var sum float64
	for _, g := range guests {
		sum += g.AverageRating
		rs := replies[g.ID]
		if rs == nil {
			rs = []domain.Review{}
		}
		page.Threads = append(page.Threads, domain.PublicThread{Review: g, Replies: rs})
	}
	if len(guests) > 0 {
		page.AverageRating = round1(sum / float64(len(guests)))
	}
	return page, nil
}

func (s *QueryService) ListProperties(ctx context.Context) ([]domain.Property, error) {
	props, err := s.catalog.ListProperties(ctx)
	return props, catalogErr(err)
}

func (s *QueryService) GetProperty(ctx context.Context, id string) (domain.Property, error) {
	p, err := s.catalog.GetProperty(ctx, id)
	return p, catalogErr(err)
}

// catalogErr marks listing failures as upstream unless the listing is simply missing.
func catalogErr(err error) error {
	if err == nil || errors.Is(err, domain.ErrNotFound) || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: listings: %w", domain.ErrUpstream, err)
}

// Dashboard computes per-property guest review stats. Properties and reviews
// are loaded concurrently.
func (s *QueryService) Dashboard(ctx context.Context) (domain.DashboardSummary, error) {
	var (
		props   []domain.Property
		reviews []domain.Review
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		props, err = s.catalog.ListProperties(gctx)
		return catalogErr(err)
	})
	g.Go(func() error {
		var err error
		reviews, err = s.current(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.DashboardSummary{}, err
	}

	type acc struct {
		count, pending int
		sum            float64
	}
	byListing := map[string]*acc{}
	for _, r := range reviews {
		if r.Type != domain.TypeGuestToHost {
			continue
		}
		a := byListing[r.ListingID]
		if a == nil {
			a = &acc{}
			byListing[r.ListingID] = a
		}
		a.count++
		a.sum += r.AverageRating
		if r.Status == domain.StatusPending {
			a.pending++
		}
	}

	sum := domain.DashboardSummary{
		TotalProperties: len(props),
		Properties:      make([]domain.PropertyStats, 0, len(props)),
	}
	var avgSum float64
	var rated int
	for _, p := range props {
		st := domain.PropertyStats{Property: p}
		if a := byListing[p.ID]; a != nil {
			st.ReviewCount = a.count
			st.PendingCount = a.pending
			st.AvgRating = round1(a.sum / float64(a.count))
			avgSum += st.AvgRating
			rated++
		}
		sum.TotalReviews += st.ReviewCount
		sum.PendingReviews += st.PendingCount
		sum.Properties = append(sum.Properties, st)
	}
	if rated > 0 {
		sum.AverageRating = round1(avgSum / float64(rated))
	}
	return sum, nil
}

func publiclyVisible(r domain.Review) bool {
	return r.IsApprovedForPublic && r.Status.Visible()
}

func matches(r domain.Review, q domain.ReviewQuery) bool {
	if !q.IncludeUnapproved && !r.IsApprovedForPublic {
		return false
	}
	if q.ListingID != "" && r.ListingID != q.ListingID {
		return false
	}
	if q.Type != "" && r.Type != q.Type {
		return false
	}
	if q.Status != "" && r.Status != q.Status {
		return false
	}
	if q.Channel != "" && !strings.EqualFold(r.Channel, q.Channel) {
		return false
	}
	if q.MinRating != nil && r.AverageRating < *q.MinRating {
		return false
	}
	if q.MaxRating != nil && r.AverageRating > *q.MaxRating {
		return false
	}
	if q.From != nil || q.To != nil {
		t, err := normalize.ParseCanonical(r.SubmittedAt)
		if err != nil {
			return false
		}
		if q.From != nil && t.Before(*q.From) {
			return false
		}
		if q.To != nil && t.After(*q.To) {
			return false
		}
	}
	return true
}

func parseSort(s string) (field string, desc bool, err error) {
	if s == "" {
		s = DefaultSort
	}
	field, dir, _ := strings.Cut(s, ":")
	switch field {
	case "submittedAt", "averageRating":
	default:
		return "", false, fmt.Errorf("%w: sort field %q", ErrInvalidQuery, field)
	}
	switch dir {
	case "", "desc":
		return field, true, nil
	case "asc":
		return field, false, nil
	}
	return "", false, fmt.Errorf("%w: sort direction %q", ErrInvalidQuery, dir)
}

// sortReviews orders by field, breaking ties by ascending id.
func sortReviews(rs []domain.Review, field string, desc bool) {
	sort.SliceStable(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		var c int
		switch field {
		case "averageRating":
			c = cmpFloat(a.AverageRating, b.AverageRating)
		default:
			// canonical timestamps are fixed-width, so they compare lexically
			c = strings.Compare(a.SubmittedAt, b.SubmittedAt)
		}
		if c == 0 {
			return a.ID < b.ID
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func appliedFilters(q domain.ReviewQuery, field string, desc bool) map[string]any {
	f := map[string]any{}
	if q.ListingID != "" {
		f["listingId"] = q.ListingID
	}
	if q.Type != "" {
		f["type"] = q.Type
	}
	if q.Status != "" {
		f["status"] = q.Status
	}
	if q.Channel != "" {
		f["channel"] = q.Channel
	}
	if q.MinRating != nil {
		f["minRating"] = *q.MinRating
	}
	if q.MaxRating != nil {
		f["maxRating"] = *q.MaxRating
	}
	if q.From != nil {
		f["from"] = q.From.UTC().Format(time.RFC3339)
	}
	if q.To != nil {
		f["to"] = q.To.UTC().Format(time.RFC3339)
	}
	f["includeUnapproved"] = q.IncludeUnapproved
	dir := "asc"
	if desc {
		dir = "desc"
	}
	f["sort"] = field + ":" + dir
	return f
}

func round1(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(1).Float64()
	return f
}
