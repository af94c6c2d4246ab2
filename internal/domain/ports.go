package domain

import (
	"context"
	"time"
)

// ReviewSource supplies one raw batch per call, in source order.
type ReviewSource interface {
	FetchReviews(ctx context.Context) ([]RawReview, error)
}

type ListingCatalog interface {
	ListProperties(ctx context.Context) ([]Property, error)
	GetProperty(ctx context.Context, id string) (Property, error)
}

// ListingResolver maps a reservation to its listing. Implementations must be
// pure; ok=false means no listing is configured for the reservation.
type ListingResolver interface {
	Resolve(reservationID int64) (ref ListingRef, ok bool)
}

// KVStore is the persistence port behind the moderation overlay.
type KVStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// Read models & queries
type ReviewQuery struct {
	ListingID         string
	Type              ReviewType
	Status            ReviewStatus
	Channel           string
	MinRating         *float64
	MaxRating         *float64
	From, To          *time.Time
	Sort              string // "field:direction"
	Limit             int
	Offset            int
	IncludeUnapproved bool
}

// PublicThread is one guest review with the host replies shown under it.
type PublicThread struct {
	Review  Review   `json:"review"`
	Replies []Review `json:"replies"`
}

type PublicPage struct {
	ListingID     string         `json:"listingId"`
	AverageRating float64        `json:"averageRating"`
	ReviewCount   int            `json:"reviewCount"`
	Threads       []PublicThread `json:"threads"`
}

type PropertyStats struct {
	Property
	ReviewCount  int     `json:"reviewCount"`
	AvgRating    float64 `json:"avgRating"`
	PendingCount int     `json:"pendingCount"`
}

type DashboardSummary struct {
	TotalProperties int             `json:"totalProperties"`
	TotalReviews    int             `json:"totalReviews"`
	AverageRating   float64         `json:"averageRating"`
	PendingReviews  int             `json:"pendingReviews"`
	Properties      []PropertyStats `json:"properties"`
}
