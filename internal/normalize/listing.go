package normalize

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"flex_reviews/internal/domain"
)

var (
	ErrNoListings     = errors.New("listing table is empty")
	ErrListingMissing = errors.New("listing entry requires id and name")
)

// BucketResolver assigns reservations to listings by
// floor((reservationId mod 100) / 10) into a fixed table.
//
// This stands in for a real listing/reservation lookup. Replace it with any
// domain.ListingResolver; the canonical output shape does not change.
type BucketResolver struct {
	table []domain.ListingRef
}

func NewBucketResolver(table []domain.ListingRef) *BucketResolver {
	return &BucketResolver{table: append([]domain.ListingRef(nil), table...)}
}

func (b *BucketResolver) Resolve(reservationID int64) (domain.ListingRef, bool) {
	if reservationID < 0 {
		return domain.UnknownListing, false
	}
	idx := (reservationID % 100) / 10
	if idx >= int64(len(b.table)) {
		return domain.UnknownListing, false
	}
	return b.table[idx], true
}

func DefaultListings() []domain.ListingRef {
	names := []string{
		"Downtown Loft A",
		"Riverside Studio B",
		"Garden View Apartment C",
		"Skyline Penthouse D",
		"Cozy Corner Suite E",
		"Urban Oasis F",
		"Historic District Flat G",
		"Waterfront Retreat H",
		"Modern City Pad I",
		"Parkside Haven J",
	}
	out := make([]domain.ListingRef, len(names))
	for i, n := range names {
		out[i] = domain.ListingRef{ID: ListingID(i), Name: n}
	}
	return out
}

// ListingID formats a bucket index the way listing ids appear in the feed.
func ListingID(bucket int) string {
	return fmt.Sprintf("PROP-%03d", bucket)
}

type listingsFile struct {
	Listings []domain.ListingRef `yaml:"listings"`
}

// LoadListings reads a bucket table from a YAML file of the form
//
//	listings:
//	  - id: PROP-000
//	    name: Downtown Loft A
func LoadListings(path string) ([]domain.ListingRef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f listingsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(f.Listings) == 0 {
		return nil, ErrNoListings
	}
	for i, l := range f.Listings {
		if l.ID == "" || l.Name == "" {
			return nil, fmt.Errorf("%w at index %d", ErrListingMissing, i)
		}
	}
	return f.Listings, nil
}
