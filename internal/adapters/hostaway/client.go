// Package hostaway supplies raw reviews and listings, either from the bundled
// mock batch or from the Hostaway REST API.
package hostaway

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"flex_reviews/internal/adapters/observability"
	"flex_reviews/internal/domain"
	"flex_reviews/internal/normalize"
)

var (
	ErrNotFound     = fmt.Errorf("hostaway: %w", domain.ErrNotFound)
	ErrUnauthorized = errors.New("hostaway: unauthorized")
	ErrForbidden    = errors.New("hostaway: forbidden")
)

type Client struct {
	base      string
	accountID string
	key       string
	hc        *http.Client
	rl        *rate.Limiter
}

func New(base, accountID, key string, rps int) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base:      strings.TrimRight(base, "/"),
		accountID: accountID,
		key:       key,
		hc:        &http.Client{Timeout: 20 * time.Second},
		rl:        rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// FetchReviews implements domain.ReviewSource.
func (c *Client) FetchReviews(ctx context.Context) ([]domain.RawReview, error) {
	u := c.base + "/reviews"
	if c.accountID != "" {
		u += "?accountId=" + url.QueryEscape(c.accountID)
	}
	body, err := c.get(ctx, "reviews", u)
	if err != nil {
		return nil, err
	}
	return normalize.DecodeBatch(bytes.NewReader(body))
}

type listing struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Address         string  `json:"address"`
	City            string  `json:"city"`
	Country         string  `json:"country"`
	Picture         *string `json:"picture"`
	BedroomsNumber  int     `json:"bedroomsNumber"`
	BathroomsNumber int     `json:"bathroomsNumber"`
	PersonCapacity  int     `json:"personCapacity"`
	PropertyType    string  `json:"propertyType"`
}

func (l listing) toProperty() domain.Property {
	p := domain.Property{
		ID:           strconv.FormatInt(l.ID, 10),
		Name:         l.Name,
		Address:      l.Address,
		City:         l.City,
		Country:      l.Country,
		ImageURL:     l.Picture,
		Bedrooms:     l.BedroomsNumber,
		Bathrooms:    l.BathroomsNumber,
		Accommodates: l.PersonCapacity,
		PropertyType: l.PropertyType,
	}
	if p.Name == "" {
		p.Name = "Unnamed Property"
	}
	if p.PropertyType == "" {
		p.PropertyType = "Apartment"
	}
	return p
}

// ListProperties implements domain.ListingCatalog.
func (c *Client) ListProperties(ctx context.Context) ([]domain.Property, error) {
	body, err := c.get(ctx, "listings", c.base+"/listings")
	if err != nil {
		return nil, err
	}
	var env struct {
		Result []listing `json:"result"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode listings: %w", err)
	}
	out := make([]domain.Property, 0, len(env.Result))
	for _, l := range env.Result {
		out = append(out, l.toProperty())
	}
	return out, nil
}

func (c *Client) GetProperty(ctx context.Context, id string) (domain.Property, error) {
	body, err := c.get(ctx, "listing", c.base+"/listings/"+url.PathEscape(id))
	if err != nil {
		return domain.Property{}, err
	}
	var env struct {
		Result *listing `json:"result"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return domain.Property{}, fmt.Errorf("decode listing: %w", err)
	}
	if env.Result == nil {
		return domain.Property{}, ErrNotFound
	}
	return env.Result.toProperty(), nil
}

// ---- Internals ----

// get performs a GET with client-side rate limiting and retries, returning the body.
// Retries on 429 and transient 5xx, honoring Retry-After when provided.
func (c *Client) get(ctx context.Context, endpoint, u string) ([]byte, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return nil, err
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.key)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "flex-reviews/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("hostaway", endpoint, 0, time.Since(start))
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, lastErr
		}
		observability.ObserveExternal("hostaway", endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			b, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			return b, err

		case http.StatusNotFound:
			resp.Body.Close()
			return nil, ErrNotFound

		case http.StatusUnauthorized:
			resp.Body.Close()
			return nil, ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return nil, ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return nil, fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return nil, lastErr
}

// sleepCtx waits for d or returns false early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 200ms per attempt with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
