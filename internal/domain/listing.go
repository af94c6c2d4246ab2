package domain

// ListingRef identifies the listing a review belongs to.
type ListingRef struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// UnknownListing is used when a reservation cannot be assigned to any listing.
var UnknownListing = ListingRef{ID: "UNKNOWN", Name: "Unknown Property"}

type Property struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Address      string  `json:"address"`
	City         string  `json:"city"`
	Country      string  `json:"country"`
	ImageURL     *string `json:"imageUrl"`
	Bedrooms     int     `json:"bedrooms"`
	Bathrooms    int     `json:"bathrooms"`
	Accommodates int     `json:"accommodates"`
	PropertyType string  `json:"propertyType"`
}
