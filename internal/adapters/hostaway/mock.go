package hostaway

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"time"

	"flex_reviews/internal/domain"
	"flex_reviews/internal/normalize"
)

//go:embed data/mock_reviews.json
var mockReviews []byte

// MockSource serves the bundled review batch. The Hostaway sandbox has no
// reviews, so this is the default source.
type MockSource struct {
	data  []byte
	delay time.Duration
}

func NewMockSource(delay time.Duration) *MockSource {
	return &MockSource{data: mockReviews, delay: delay}
}

// NewMockSourceFrom serves a caller-provided JSON batch.
func NewMockSourceFrom(data []byte) *MockSource {
	return &MockSource{data: data}
}

func (m *MockSource) FetchReviews(ctx context.Context) ([]domain.RawReview, error) {
	if !sleepCtx(ctx, m.delay) {
		return nil, ctx.Err()
	}
	return normalize.DecodeBatch(bytes.NewReader(m.data))
}

// MockCatalog lists one property per entry of the listing table, keyed by the
// same ids the normalizer assigns.
type MockCatalog struct {
	props []domain.Property
}

type propertyDetail struct {
	address, propertyType       string
	bedrooms, baths, guestCount int
}

var mockDetails = []propertyDetail{
	{"123 Main Street, Hoxton", "Apartment", 2, 2, 4},
	{"456 River Road, Shoreditch", "Studio", 1, 1, 2},
	{"789 Garden Lane, Camden", "Apartment", 3, 2, 6},
	{"101 Tower Bridge Road", "Penthouse", 4, 3, 8},
	{"202 Notting Hill Gate", "Suite", 1, 1, 2},
	{"14 Clerkenwell Close", "Apartment", 2, 1, 4},
	{"9 Fournier Street, Spitalfields", "Flat", 2, 1, 3},
	{"33 Narrow Street, Limehouse", "Apartment", 3, 2, 5},
	{"5 Old Street", "Studio", 1, 1, 2},
	{"71 Regent's Park Road", "Apartment", 2, 2, 4},
}

func NewMockCatalog(listings []domain.ListingRef) *MockCatalog {
	props := make([]domain.Property, 0, len(listings))
	for i, l := range listings {
		d := propertyDetail{address: "London", propertyType: "Apartment"}
		if i < len(mockDetails) {
			d = mockDetails[i]
		}
		props = append(props, domain.Property{
			ID:           l.ID,
			Name:         l.Name,
			Address:      d.address,
			City:         "London",
			Country:      "UK",
			Bedrooms:     d.bedrooms,
			Bathrooms:    d.baths,
			Accommodates: d.guestCount,
			PropertyType: d.propertyType,
		})
	}
	return &MockCatalog{props: props}
}

func (c *MockCatalog) ListProperties(ctx context.Context) ([]domain.Property, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]domain.Property(nil), c.props...), nil
}

func (c *MockCatalog) GetProperty(ctx context.Context, id string) (domain.Property, error) {
	if err := ctx.Err(); err != nil {
		return domain.Property{}, err
	}
	for _, p := range c.props {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Property{}, fmt.Errorf("property %s: %w", id, domain.ErrNotFound)
}
