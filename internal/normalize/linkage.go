package normalize

import "flex_reviews/internal/domain"

// linkReplies points every host-to-guest review at the first guest-to-host
// review (input order) sharing its reservation. It only sees records that
// survived the first pass, so a target is always part of the same output.
func linkReplies(reviews []domain.Review) []Warning {
	guests := make(map[int64][]int64)
	for _, r := range reviews {
		if r.Type == domain.TypeGuestToHost && r.ReservationID != 0 {
			guests[r.ReservationID] = append(guests[r.ReservationID], r.ID)
		}
	}

	var warns []Warning
	for i := range reviews {
		r := &reviews[i]
		if r.Type != domain.TypeHostToGuest {
			continue
		}
		ids := guests[r.ReservationID]
		if r.ReservationID == 0 || len(ids) == 0 {
			warns = append(warns, Warning{
				Kind:          WarnOrphanedReply,
				ReviewID:      r.ID,
				ReservationID: r.ReservationID,
			})
			continue
		}
		target := ids[0]
		r.ReplyToReviewID = &target
		if len(ids) > 1 {
			warns = append(warns, Warning{
				Kind:          WarnAmbiguousReply,
				ReviewID:      r.ID,
				ReservationID: r.ReservationID,
				Candidates:    append([]int64(nil), ids...),
			})
		}
	}
	return warns
}
