package domain

import "time"

// Moderation is the operator-owned state of one review.
type Moderation struct {
	IsApprovedForPublic bool         `json:"isApprovedForPublic"`
	Status              ReviewStatus `json:"status,omitempty"` // empty keeps the review's own status
}

type ModerationAction string

const (
	ActionApprove ModerationAction = "approve"
	ActionDeny    ModerationAction = "deny"
	ActionPublish ModerationAction = "publish"
	ActionHide    ModerationAction = "hide"
	ActionReset   ModerationAction = "reset"
)

func (a ModerationAction) Valid() bool {
	switch a {
	case ActionApprove, ActionDeny, ActionPublish, ActionHide, ActionReset:
		return true
	}
	return false
}

// Envelope is the response shape of the review feed.
type Envelope struct {
	Meta EnvelopeMeta `json:"meta"`
	Data []Review     `json:"data"`
}

type EnvelopeMeta struct {
	Total          int            `json:"total"`
	Limit          int            `json:"limit"`
	Offset         int            `json:"offset"`
	GeneratedAt    time.Time      `json:"generatedAt"`
	AppliedFilters map[string]any `json:"appliedFilters"`
}
