// Command normalize runs the review normalizer over raw Hostaway batches and
// prints the canonical result as JSON.
//
//	normalize -in reviews.json [-in more.json ...]
//	normalize            # fetch one batch from the configured source
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"flex_reviews/internal/adapters/hostaway"
	"flex_reviews/internal/adapters/observability"
	"flex_reviews/internal/domain"
	"flex_reviews/internal/normalize"
	"flex_reviews/internal/shared"
)

type inputs []string

func (i *inputs) String() string     { return strings.Join(*i, ",") }
func (i *inputs) Set(v string) error { *i = append(*i, v); return nil }

type batchOutput struct {
	Input string `json:"input"`
	normalize.Result
}

func main() {
	var in inputs
	flag.Var(&in, "in", "raw batch file (repeatable); - reads stdin")
	workers := flag.Int("workers", 4, "batches normalized concurrently")
	flag.Parse()

	cfg := shared.Load()
	// stdout carries the JSON result
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel).Output(os.Stderr)

	listings, err := cfg.Listings()
	if err != nil {
		log.Fatal().Err(err).Msg("load listings failed")
	}
	n := normalize.New(normalize.NewBucketResolver(listings))
	ctx := context.Background()

	if len(in) == 0 {
		out, err := fromSource(ctx, cfg, n)
		if err != nil {
			log.Fatal().Err(err).Msg("normalize failed")
		}
		emit(out)
		return
	}

	outs := make([]batchOutput, len(in))
	errs := make([]error, len(in))
	sem := semaphore.NewWeighted(int64(max(*workers, 1)))
	var wg sync.WaitGroup
	for i, path := range in {
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			defer sem.Release(1)
			outs[i], errs[i] = fromFile(path, n)
		}(i, path)
	}
	wg.Wait()

	failed := false
	for i, err := range errs {
		if err != nil {
			log.Error().Err(err).Str("input", in[i]).Msg("batch rejected")
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
	if len(outs) == 1 {
		emit(outs[0])
		return
	}
	emit(outs)
}

func fromFile(path string, n *normalize.Normalizer) (batchOutput, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return batchOutput{}, err
		}
		defer f.Close()
		r = f
	}
	batch, err := normalize.DecodeBatch(r)
	if err != nil {
		return batchOutput{}, err
	}
	return run(path, batch, n), nil
}

func fromSource(ctx context.Context, cfg shared.Config, n *normalize.Normalizer) (batchOutput, error) {
	var src domain.ReviewSource = hostaway.NewMockSource(0)
	if cfg.ReviewSource == shared.SourceHostaway {
		c, err := hostaway.New(cfg.HostawayBase, cfg.HostawayAccountID, cfg.HostawayKey, cfg.HostawayRPS)
		if err != nil {
			return batchOutput{}, err
		}
		src = c
	}
	batch, err := src.FetchReviews(ctx)
	if err != nil {
		return batchOutput{}, fmt.Errorf("%w: %w", domain.ErrUpstream, err)
	}
	return run(cfg.ReviewSource, batch, n), nil
}

func run(input string, batch []domain.RawReview, n *normalize.Normalizer) batchOutput {
	res := n.Normalize(batch)
	for _, e := range res.Errors {
		log.Warn().Str("input", input).Int("index", e.Index).Int64("review_id", e.ReviewID).Str("kind", string(e.Kind)).Msg(e.Message)
	}
	for _, w := range res.Warnings {
		log.Info().Str("input", input).Int64("review_id", w.ReviewID).Str("kind", string(w.Kind)).Msg("data-quality warning")
	}
	log.Info().Str("input", input).Int("raw", len(batch)).Int("reviews", len(res.Reviews)).Msg("batch normalized")
	return batchOutput{Input: input, Result: res}
}

func emit(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil && !errors.Is(err, io.ErrClosedPipe) {
		log.Fatal().Err(err).Msg("write output failed")
	}
}
