package domain

// Source tag stamped on every canonical review.
const SourceHostaway = "hostaway"

type ReviewType string

const (
	TypeGuestToHost ReviewType = "guest-to-host"
	TypeHostToGuest ReviewType = "host-to-guest"
)

func (t ReviewType) Valid() bool {
	return t == TypeGuestToHost || t == TypeHostToGuest
}

// ReviewStatus covers both source states (published, pending) and the
// moderation states an operator can set (approved, denied).
type ReviewStatus string

const (
	StatusPublished ReviewStatus = "published"
	StatusPending   ReviewStatus = "pending"
	StatusApproved  ReviewStatus = "approved"
	StatusDenied    ReviewStatus = "denied"
)

func (s ReviewStatus) Valid() bool {
	switch s {
	case StatusPublished, StatusPending, StatusApproved, StatusDenied:
		return true
	}
	return false
}

// Visible reports whether a review in this status may appear on a public page.
func (s ReviewStatus) Visible() bool {
	return s == StatusPublished || s == StatusApproved
}

// RawReview is one review record as the Hostaway API returns it.
type RawReview struct {
	ID             int64         `json:"id"`
	ReservationID  int64         `json:"reservationId"`
	GuestName      string        `json:"guestName"`
	PublicReview   string        `json:"publicReview"`
	PrivateReview  *string       `json:"privateReview"`
	Reply          *string       `json:"reply"`
	Rating         *float64      `json:"rating"`
	ReviewCategory []RawCategory `json:"reviewCategory"`
	SubmittedAt    string        `json:"submittedAt"` // "YYYY-MM-DD HH:mm:ss", UTC
	ReplyTime      *string       `json:"replyTime"`
	Status         ReviewStatus  `json:"status"`
	Type           ReviewType    `json:"type"`
	Channel        string        `json:"channel,omitempty"`
}

type RawCategory struct {
	CategoryName  string  `json:"categoryName"`
	CategoryValue float64 `json:"categoryValue"`
}

// Review is the canonical, display-ready review.
type Review struct {
	ID                  int64            `json:"id"`
	ListingID           string           `json:"listingId"`
	ListingName         string           `json:"listingName"`
	GuestName           string           `json:"guestName"`
	PublicReview        string           `json:"publicReview"`
	Type                ReviewType       `json:"type"`
	Status              ReviewStatus     `json:"status"`
	SubmittedAt         string           `json:"submittedAt"` // ISO-8601, UTC
	AverageRating       float64          `json:"averageRating"`
	CategoryRatings     []CategoryRating `json:"categoryRatings"`
	IsApprovedForPublic bool             `json:"isApprovedForPublic"`
	Source              string           `json:"source"`
	Channel             string           `json:"channel,omitempty"`
	ReservationID       int64            `json:"reservationId"`
	ReplyToReviewID     *int64           `json:"replyToReviewId,omitempty"`
}

type CategoryRating struct {
	Category string  `json:"category"`
	Rating   float64 `json:"rating"`
}

// Clone returns a copy that shares no slices or pointers with r.
func (r Review) Clone() Review {
	out := r
	if r.CategoryRatings != nil {
		out.CategoryRatings = make([]CategoryRating, len(r.CategoryRatings))
		copy(out.CategoryRatings, r.CategoryRatings)
	}
	if r.ReplyToReviewID != nil {
		id := *r.ReplyToReviewID
		out.ReplyToReviewID = &id
	}
	return out
}
