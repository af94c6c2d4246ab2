// Package normalize turns raw Hostaway review records into canonical reviews.
//
// Normalization is pure: it performs no I/O, keeps no state between calls and
// returns the same output for the same batch. It runs in two passes. The first
// maps every record on its own; the second links host replies to the guest
// review of the same reservation, which needs the whole batch.
package normalize

import (
	"errors"
	"fmt"

	"flex_reviews/internal/domain"
)

var (
	ErrMalformedTimestamp = errors.New("malformed submittedAt")
	ErrUnknownReviewType  = errors.New("unknown review type")
)

type ErrorKind string

const (
	KindMalformedTimestamp ErrorKind = "malformed_timestamp"
	KindUnknownType        ErrorKind = "unknown_type"
)

// RecordError reports one rejected record. The rest of the batch is unaffected.
type RecordError struct {
	Index    int       `json:"index"`
	ReviewID int64     `json:"reviewId"`
	Kind     ErrorKind `json:"kind"`
	Message  string    `json:"message"`
	Err      error     `json:"-"`
}

func (e RecordError) Error() string {
	return fmt.Sprintf("review %d (index %d): %s", e.ReviewID, e.Index, e.Message)
}

// Unwrap falls back to Kind when Err is unset, as it is after a JSON round trip.
func (e RecordError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	switch e.Kind {
	case KindMalformedTimestamp:
		return ErrMalformedTimestamp
	case KindUnknownType:
		return ErrUnknownReviewType
	}
	return nil
}

type WarningKind string

const (
	WarnAmbiguousReply WarningKind = "ambiguous_reply"
	WarnOrphanedReply  WarningKind = "orphaned_reply"
	WarnUnknownListing WarningKind = "unknown_listing"
)

// Warning is a data-quality note; the record it names is still in the output.
type Warning struct {
	Kind          WarningKind `json:"kind"`
	ReviewID      int64       `json:"reviewId"`
	ReservationID int64       `json:"reservationId"`
	Candidates    []int64     `json:"candidates,omitempty"`
}

// Result holds one entry per input record, either in Reviews (input order) or
// in Errors.
type Result struct {
	Reviews  []domain.Review `json:"reviews"`
	Errors   []RecordError   `json:"errors,omitempty"`
	Warnings []Warning       `json:"warnings,omitempty"`
}

type Normalizer struct {
	resolver domain.ListingResolver
	source   string
}

// New returns a Normalizer using resolver for listing assignment. A nil
// resolver falls back to the bucket table of DefaultListings.
func New(resolver domain.ListingResolver) *Normalizer {
	if resolver == nil {
		resolver = NewBucketResolver(DefaultListings())
	}
	return &Normalizer{resolver: resolver, source: domain.SourceHostaway}
}

var defaultNormalizer = New(nil)

// Normalize runs the default Normalizer over batch.
func Normalize(batch []domain.RawReview) Result {
	return defaultNormalizer.Normalize(batch)
}

func (n *Normalizer) Normalize(batch []domain.RawReview) Result {
	res := Result{Reviews: make([]domain.Review, 0, len(batch))}

	// pass 1: per-record mapping
	for i, raw := range batch {
		rv, known, err := n.mapRecord(raw)
		if err != nil {
			res.Errors = append(res.Errors, recordError(i, raw.ID, err))
			continue
		}
		if !known {
			res.Warnings = append(res.Warnings, Warning{
				Kind:          WarnUnknownListing,
				ReviewID:      raw.ID,
				ReservationID: raw.ReservationID,
			})
		}
		res.Reviews = append(res.Reviews, rv)
	}

	// pass 2: reply linkage over the mapped batch
	res.Warnings = append(res.Warnings, linkReplies(res.Reviews)...)
	return res
}

func (n *Normalizer) mapRecord(raw domain.RawReview) (domain.Review, bool, error) {
	if !raw.Type.Valid() {
		return domain.Review{}, false, fmt.Errorf("%w: %q", ErrUnknownReviewType, raw.Type)
	}
	submitted, err := canonicalTimestamp(raw.SubmittedAt)
	if err != nil {
		return domain.Review{}, false, err
	}

	listing, known := n.resolver.Resolve(raw.ReservationID)
	if !known {
		listing = domain.UnknownListing
	}

	return domain.Review{
		ID:                  raw.ID,
		ListingID:           listing.ID,
		ListingName:         listing.Name,
		GuestName:           raw.GuestName,
		PublicReview:        raw.PublicReview,
		Type:                raw.Type,
		Status:              raw.Status,
		SubmittedAt:         submitted,
		AverageRating:       deriveRating(raw),
		CategoryRatings:     normalizeCategories(raw.ReviewCategory),
		IsApprovedForPublic: false,
		Source:              n.source,
		Channel:             raw.Channel,
		ReservationID:       raw.ReservationID,
	}, known, nil
}

func recordError(index int, id int64, err error) RecordError {
	kind := KindMalformedTimestamp
	if errors.Is(err, ErrUnknownReviewType) {
		kind = KindUnknownType
	}
	return RecordError{Index: index, ReviewID: id, Kind: kind, Message: err.Error(), Err: err}
}
