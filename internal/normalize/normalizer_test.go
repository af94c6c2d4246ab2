package normalize_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flex_reviews/internal/domain"
	"flex_reviews/internal/normalize"
)

func pfloat(f float64) *float64 { return &f }

func raw(id, reservation int64, typ domain.ReviewType) domain.RawReview {
	return domain.RawReview{
		ID:            id,
		ReservationID: reservation,
		GuestName:     "Guest",
		PublicReview:  "Lovely stay",
		SubmittedAt:   "2024-03-15 14:30:00",
		Status:        domain.StatusPublished,
		Type:          typ,
	}
}

func cats(values ...float64) []domain.RawCategory {
	out := make([]domain.RawCategory, len(values))
	for i, v := range values {
		out[i] = domain.RawCategory{CategoryName: "c", CategoryValue: v}
	}
	return out
}

func TestNormalize_RatingPriority(t *testing.T) {
	explicit := raw(1, 11, domain.TypeGuestToHost)
	explicit.Rating = pfloat(8)
	explicit.ReviewCategory = cats(5, 7)

	fromCategories := raw(2, 12, domain.TypeGuestToHost)
	fromCategories.ReviewCategory = cats(6, 8, 10)

	neither := raw(3, 13, domain.TypeGuestToHost)

	res := normalize.Normalize([]domain.RawReview{explicit, fromCategories, neither})
	require.Empty(t, res.Errors)
	require.Len(t, res.Reviews, 3)

	assert.Equal(t, 8.0, res.Reviews[0].AverageRating)
	assert.Equal(t, 8.0, res.Reviews[1].AverageRating)
	assert.Equal(t, 0.0, res.Reviews[2].AverageRating)
}

func TestNormalize_RatingRoundingAndBounds(t *testing.T) {
	cases := []struct {
		name string
		in   domain.RawReview
		want float64
	}{
		{"explicit rounded", withRating(raw(1, 1, domain.TypeGuestToHost), 7.46), 7.5},
		{"mean rounded", withCats(raw(2, 1, domain.TypeGuestToHost), 9, 9, 10), 9.3},
		{"explicit above ten", withRating(raw(3, 1, domain.TypeGuestToHost), 12), 10},
		{"explicit negative", withRating(raw(4, 1, domain.TypeGuestToHost), -3), 0},
		{"nan falls back to categories", withCats(withRating(raw(5, 1, domain.TypeGuestToHost), math.NaN()), 4, 6), 5},
		{"explicit zero wins", withCats(withRating(raw(6, 1, domain.TypeGuestToHost), 0), 10, 10), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := normalize.Normalize([]domain.RawReview{tc.in})
			require.Len(t, res.Reviews, 1)
			got := res.Reviews[0].AverageRating
			assert.Equal(t, tc.want, got)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 10.0)
			assert.InDelta(t, math.Round(got*10), got*10, 1e-9, "one decimal place")
		})
	}
}

func withRating(r domain.RawReview, v float64) domain.RawReview {
	r.Rating = pfloat(v)
	return r
}

func withCats(r domain.RawReview, values ...float64) domain.RawReview {
	r.ReviewCategory = cats(values...)
	return r
}

func TestNormalize_CategoryPassthrough(t *testing.T) {
	in := raw(1, 21, domain.TypeGuestToHost)
	in.ReviewCategory = []domain.RawCategory{
		{CategoryName: "cleanliness", CategoryValue: 9},
		{CategoryName: "location", CategoryValue: 10},
	}
	res := normalize.Normalize([]domain.RawReview{in})
	require.Len(t, res.Reviews, 1)
	assert.Equal(t, []domain.CategoryRating{
		{Category: "cleanliness", Rating: 9},
		{Category: "location", Rating: 10},
	}, res.Reviews[0].CategoryRatings)
}

func TestNormalize_CategoriesAbsentIsEmptyNotNil(t *testing.T) {
	res := normalize.Normalize([]domain.RawReview{raw(1, 21, domain.TypeGuestToHost)})
	require.Len(t, res.Reviews, 1)
	assert.NotNil(t, res.Reviews[0].CategoryRatings)
	assert.Empty(t, res.Reviews[0].CategoryRatings)
}

func TestNormalize_Timestamp(t *testing.T) {
	res := normalize.Normalize([]domain.RawReview{raw(1, 1, domain.TypeGuestToHost)})
	require.Len(t, res.Reviews, 1)
	assert.Equal(t, "2024-03-15T14:30:00.000Z", res.Reviews[0].SubmittedAt)

	ts, err := normalize.ParseCanonical(res.Reviews[0].SubmittedAt)
	require.NoError(t, err)
	assert.Equal(t, 2024, ts.Year())
	assert.Equal(t, 14, ts.Hour())
}

func TestNormalize_MalformedTimestampRejectsOnlyThatRecord(t *testing.T) {
	good := raw(1, 1, domain.TypeGuestToHost)
	bad := raw(2, 2, domain.TypeGuestToHost)
	bad.SubmittedAt = "15/03/2024 14:30"
	badDay := raw(3, 3, domain.TypeGuestToHost)
	badDay.SubmittedAt = "2024-02-30 10:00:00"
	fraction := raw(4, 4, domain.TypeGuestToHost)
	fraction.SubmittedAt = "2024-03-15 14:30:00.5"
	nanos := raw(5, 5, domain.TypeGuestToHost)
	nanos.SubmittedAt = "2024-03-15 14:30:00.123456789"

	res := normalize.Normalize([]domain.RawReview{good, bad, badDay, fraction, nanos})
	require.Len(t, res.Reviews, 1)
	require.Len(t, res.Errors, 4)
	assert.Equal(t, int64(1), res.Reviews[0].ID)

	assert.Equal(t, 1, res.Errors[0].Index)
	assert.Equal(t, int64(2), res.Errors[0].ReviewID)
	assert.Equal(t, normalize.KindMalformedTimestamp, res.Errors[0].Kind)
	assert.True(t, errors.Is(res.Errors[0], normalize.ErrMalformedTimestamp))
	assert.Equal(t, int64(3), res.Errors[1].ReviewID)
	for _, e := range res.Errors[2:] {
		assert.Equal(t, normalize.KindMalformedTimestamp, e.Kind, "review %d", e.ReviewID)
	}
}

func TestNormalize_UnknownTypeRejected(t *testing.T) {
	res := normalize.Normalize([]domain.RawReview{raw(9, 1, "guest-to-guest")})
	assert.Empty(t, res.Reviews)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, normalize.KindUnknownType, res.Errors[0].Kind)
	assert.ErrorIs(t, res.Errors[0], normalize.ErrUnknownReviewType)
}

func TestNormalize_ReplyLinkage(t *testing.T) {
	guest := raw(100, 55, domain.TypeGuestToHost)
	reply := raw(101, 55, domain.TypeHostToGuest)

	res := normalize.Normalize([]domain.RawReview{reply, guest})
	require.Len(t, res.Reviews, 2)
	assert.Equal(t, int64(101), res.Reviews[0].ID, "input order preserved")
	require.NotNil(t, res.Reviews[0].ReplyToReviewID)
	assert.Equal(t, int64(100), *res.Reviews[0].ReplyToReviewID)
	assert.Nil(t, res.Reviews[1].ReplyToReviewID, "guest reviews never link")
	assert.Empty(t, res.Warnings)
}

func TestNormalize_OrphanReply(t *testing.T) {
	reply := raw(7, 999, domain.TypeHostToGuest)
	other := raw(8, 998, domain.TypeGuestToHost)

	res := normalize.Normalize([]domain.RawReview{reply, other})
	require.Empty(t, res.Errors)
	require.Len(t, res.Reviews, 2)
	assert.Nil(t, res.Reviews[0].ReplyToReviewID)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, normalize.WarnOrphanedReply, res.Warnings[0].Kind)
	assert.Equal(t, int64(7), res.Warnings[0].ReviewID)
}

func TestNormalize_AmbiguousReplyPicksFirst(t *testing.T) {
	first := raw(10, 42, domain.TypeGuestToHost)
	second := raw(11, 42, domain.TypeGuestToHost)
	reply := raw(12, 42, domain.TypeHostToGuest)

	res := normalize.Normalize([]domain.RawReview{first, second, reply})
	require.Len(t, res.Reviews, 3)
	require.NotNil(t, res.Reviews[2].ReplyToReviewID)
	assert.Equal(t, int64(10), *res.Reviews[2].ReplyToReviewID)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, normalize.WarnAmbiguousReply, res.Warnings[0].Kind)
	assert.Equal(t, []int64{10, 11}, res.Warnings[0].Candidates)
}

func TestNormalize_ReplyDoesNotLinkToRejectedRecord(t *testing.T) {
	guest := raw(20, 77, domain.TypeGuestToHost)
	guest.SubmittedAt = "not a date"
	reply := raw(21, 77, domain.TypeHostToGuest)

	res := normalize.Normalize([]domain.RawReview{guest, reply})
	require.Len(t, res.Reviews, 1)
	require.Len(t, res.Errors, 1)
	assert.Nil(t, res.Reviews[0].ReplyToReviewID)
}

func TestNormalize_DefaultsAndListing(t *testing.T) {
	in := raw(1, 1234, domain.TypeGuestToHost) // (1234 % 100) / 10 = 3
	in.Channel = "airbnb"
	res := normalize.Normalize([]domain.RawReview{in})
	require.Len(t, res.Reviews, 1)
	got := res.Reviews[0]
	assert.False(t, got.IsApprovedForPublic)
	assert.Equal(t, domain.SourceHostaway, got.Source)
	assert.Equal(t, "PROP-003", got.ListingID)
	assert.Equal(t, "Skyline Penthouse D", got.ListingName)
	assert.Equal(t, "airbnb", got.Channel)
	assert.Equal(t, int64(1234), got.ReservationID)
}

func TestNormalize_UnknownListingUsesSentinel(t *testing.T) {
	n := normalize.New(normalize.NewBucketResolver([]domain.ListingRef{{ID: "L1", Name: "Only"}}))
	res := n.Normalize([]domain.RawReview{raw(1, 5, domain.TypeGuestToHost), raw(2, 55, domain.TypeGuestToHost)})
	require.Len(t, res.Reviews, 2)
	assert.Equal(t, "L1", res.Reviews[0].ListingID)
	assert.Equal(t, domain.UnknownListing.ID, res.Reviews[1].ListingID)
	assert.Equal(t, "Unknown Property", res.Reviews[1].ListingName)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, normalize.WarnUnknownListing, res.Warnings[0].Kind)
}

func TestNormalize_DeterministicAndCardinality(t *testing.T) {
	batch := []domain.RawReview{
		withCats(raw(1, 10, domain.TypeGuestToHost), 8, 9),
		raw(2, 10, domain.TypeHostToGuest),
		withRating(raw(3, 31, domain.TypeGuestToHost), 6.66),
		raw(4, 99, domain.TypeHostToGuest),
	}
	batch[3].SubmittedAt = "2024-13-01 00:00:00"

	a := normalize.Normalize(batch)
	b := normalize.Normalize(batch)
	assert.Equal(t, a, b)
	assert.Equal(t, len(batch), len(a.Reviews)+len(a.Errors))

	// mutating the output must not leak into a later run
	a.Reviews[0].CategoryRatings[0].Rating = 0
	c := normalize.Normalize(batch)
	assert.Equal(t, 8.0, c.Reviews[0].CategoryRatings[0].Rating)
}

func TestNormalize_EmptyBatch(t *testing.T) {
	res := normalize.Normalize(nil)
	assert.NotNil(t, res.Reviews)
	assert.Empty(t, res.Reviews)
	assert.Empty(t, res.Errors)
}
