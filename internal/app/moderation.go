package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"flex_reviews/internal/adapters/observability"
	"flex_reviews/internal/domain"
)

const (
	moderationKey = "review_moderation"

	// layout written by the first dashboard: two maps keyed by review id
	legacyApprovalsKey = "reviewApprovals"
	legacyStatusesKey  = "reviewStatuses"
)

// Overlay is the moderation state of every touched review, keyed by review id.
type Overlay map[int64]domain.Moderation

// ModerationService owns the overlay. It is stored as a single JSON document
// behind the KV port; Apply serializes read-modify-write within the process.
type ModerationService struct {
	kv domain.KVStore
	mu sync.Mutex
}

func NewModerationService(kv domain.KVStore) *ModerationService {
	return &ModerationService{kv: kv}
}

func (s *ModerationService) Load(ctx context.Context) (Overlay, error) {
	raw, ok, err := s.kv.Get(ctx, moderationKey)
	if err != nil {
		return nil, fmt.Errorf("read moderation state: %w", err)
	}
	if !ok {
		return s.loadLegacy(ctx)
	}
	ov := Overlay{}
	if err := json.Unmarshal([]byte(raw), &ov); err != nil {
		return nil, fmt.Errorf("decode moderation state: %w", err)
	}
	return ov, nil
}

func (s *ModerationService) loadLegacy(ctx context.Context) (Overlay, error) {
	ov := Overlay{}

	if raw, ok, err := s.kv.Get(ctx, legacyApprovalsKey); err != nil {
		return nil, fmt.Errorf("read %s: %w", legacyApprovalsKey, err)
	} else if ok {
		var approvals map[int64]bool
		if err := json.Unmarshal([]byte(raw), &approvals); err != nil {
			return nil, fmt.Errorf("decode %s: %w", legacyApprovalsKey, err)
		}
		for id, v := range approvals {
			m := ov[id]
			m.IsApprovedForPublic = v
			ov[id] = m
		}
	}

	if raw, ok, err := s.kv.Get(ctx, legacyStatusesKey); err != nil {
		return nil, fmt.Errorf("read %s: %w", legacyStatusesKey, err)
	} else if ok {
		var statuses map[int64]domain.ReviewStatus
		if err := json.Unmarshal([]byte(raw), &statuses); err != nil {
			return nil, fmt.Errorf("decode %s: %w", legacyStatusesKey, err)
		}
		for id, st := range statuses {
			if !st.Valid() {
				continue
			}
			m := ov[id]
			m.Status = st
			ov[id] = m
		}
	}
	return ov, nil
}

func (s *ModerationService) save(ctx context.Context, ov Overlay) error {
	b, err := json.Marshal(ov)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, moderationKey, string(b)); err != nil {
		return fmt.Errorf("write moderation state: %w", err)
	}
	return nil
}

func (s *ModerationService) Get(ctx context.Context, id int64) (domain.Moderation, bool, error) {
	ov, err := s.Load(ctx)
	if err != nil {
		return domain.Moderation{}, false, err
	}
	m, ok := ov[id]
	return m, ok, nil
}

// Apply records action for review id and returns the overlay as persisted.
func (s *ModerationService) Apply(ctx context.Context, id int64, action domain.ModerationAction) (Overlay, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidQuery, action)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ov, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	if action == domain.ActionReset {
		delete(ov, id)
	} else {
		ov[id] = Transition(ov[id], action)
	}
	if err := s.save(ctx, ov); err != nil {
		return nil, err
	}
	observability.ObserveModeration(string(action))
	return ov, nil
}

// Transition is the moderation state machine. Reset is handled by Apply.
// An empty Status leaves the review's own status in place.
func Transition(cur domain.Moderation, action domain.ModerationAction) domain.Moderation {
	switch action {
	case domain.ActionApprove:
		return domain.Moderation{IsApprovedForPublic: true, Status: domain.StatusApproved}
	case domain.ActionDeny:
		return domain.Moderation{IsApprovedForPublic: false, Status: domain.StatusDenied}
	case domain.ActionPublish:
		return domain.Moderation{IsApprovedForPublic: true, Status: domain.StatusPublished}
	case domain.ActionHide:
		return domain.Moderation{IsApprovedForPublic: false, Status: cur.Status}
	}
	return cur
}

// ApplyOverlay returns copies of reviews with moderation state laid over the
// normalizer defaults. It is pure; applying the same overlay twice changes nothing.
func ApplyOverlay(reviews []domain.Review, ov Overlay) []domain.Review {
	out := make([]domain.Review, len(reviews))
	for i, r := range reviews {
		c := r.Clone()
		if m, ok := ov[r.ID]; ok {
			c.IsApprovedForPublic = m.IsApprovedForPublic
			if m.Status.Valid() {
				c.Status = m.Status
			}
		}
		out[i] = c
	}
	return out
}
