package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"flex_reviews/internal/adapters/observability"
	"flex_reviews/internal/domain"
	"flex_reviews/internal/normalize"
)

const normalizedKey = "reviews:hostaway:normalized"

// ReviewService fetches the raw batch and keeps the normalized result cached.
// The cached value never contains moderation state; that is overlaid per read.
type ReviewService struct {
	source     domain.ReviewSource
	normalizer *normalize.Normalizer
	cache      domain.Cache
	cacheTTL   time.Duration
	sf         singleflight.Group
}

func NewReviewService(src domain.ReviewSource, n *normalize.Normalizer, c domain.Cache, ttl time.Duration) *ReviewService {
	if n == nil {
		n = normalize.New(nil)
	}
	return &ReviewService{source: src, normalizer: n, cache: c, cacheTTL: ttl}
}

func (s *ReviewService) Normalized(ctx context.Context) (normalize.Result, error) {
	var res normalize.Result
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, normalizedKey, &res); ok {
			return res, nil
		}
	}

	// joined callers must not fail because the first one went away
	fetchCtx := context.WithoutCancel(ctx)
	v, err, _ := s.sf.Do(normalizedKey, func() (any, error) {
		return s.refresh(fetchCtx)
	})
	if err != nil {
		return normalize.Result{}, err
	}
	// callers sharing a singleflight result must not share review memory
	return cloneResult(v.(normalize.Result)), nil
}

// Invalidate drops the cached batch so the next read refetches.
func (s *ReviewService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, normalizedKey)
}

func (s *ReviewService) refresh(ctx context.Context) (normalize.Result, error) {
	batch, err := s.source.FetchReviews(ctx)
	if err != nil {
		return normalize.Result{}, fmt.Errorf("%w: fetch reviews: %w", domain.ErrUpstream, err)
	}

	res := s.normalizer.Normalize(batch)
	report(res)

	if s.cache != nil {
		if err := s.cache.Set(ctx, normalizedKey, res, int(s.cacheTTL.Seconds())); err != nil {
			log.Warn().Err(err).Msg("cache normalized reviews failed")
		}
	}
	return res, nil
}

func report(res normalize.Result) {
	errKinds := make([]string, 0, len(res.Errors))
	for _, e := range res.Errors {
		errKinds = append(errKinds, string(e.Kind))
		log.Warn().
			Int64("review_id", e.ReviewID).
			Int("index", e.Index).
			Str("kind", string(e.Kind)).
			Msg(e.Message)
	}

	warnKinds := make([]string, 0, len(res.Warnings))
	for _, w := range res.Warnings {
		warnKinds = append(warnKinds, string(w.Kind))
		ev := log.Warn()
		if w.Kind == normalize.WarnOrphanedReply {
			ev = log.Debug()
		}
		ev.Int64("review_id", w.ReviewID).
			Int64("reservation_id", w.ReservationID).
			Interface("candidates", w.Candidates).
			Str("kind", string(w.Kind)).
			Msg("review data-quality warning")
	}

	observability.ObserveNormalize(len(res.Reviews), errKinds, warnKinds)
	log.Info().
		Int("reviews", len(res.Reviews)).
		Int("rejected", len(res.Errors)).
		Int("warnings", len(res.Warnings)).
		Msg("reviews normalized")
}

func cloneResult(in normalize.Result) normalize.Result {
	out := normalize.Result{
		Reviews:  cloneReviews(in.Reviews),
		Errors:   append([]normalize.RecordError(nil), in.Errors...),
		Warnings: append([]normalize.Warning(nil), in.Warnings...),
	}
	return out
}

func cloneReviews(in []domain.Review) []domain.Review {
	out := make([]domain.Review, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}
