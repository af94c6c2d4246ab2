package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"flex_reviews/internal/domain"
)

// CommandService handles operator writes.
type CommandService struct {
	feed       normalizedFeed
	moderation *ModerationService
}

func NewCommandService(feed normalizedFeed, mod *ModerationService) *CommandService {
	return &CommandService{feed: feed, moderation: mod}
}

// Moderate applies action to review id and returns the review as it now reads.
func (c *CommandService) Moderate(ctx context.Context, id int64, action domain.ModerationAction) (domain.Review, error) {
	if !action.Valid() {
		return domain.Review{}, fmt.Errorf("%w: unknown action %q", ErrInvalidQuery, action)
	}
	res, err := c.feed.Normalized(ctx)
	if err != nil {
		return domain.Review{}, err
	}

	var target *domain.Review
	for i := range res.Reviews {
		if res.Reviews[i].ID == id {
			target = &res.Reviews[i]
			break
		}
	}
	if target == nil {
		return domain.Review{}, fmt.Errorf("review %d: %w", id, domain.ErrNotFound)
	}

	ov, err := c.moderation.Apply(ctx, id, action)
	if err != nil {
		return domain.Review{}, err
	}
	log.Info().Int64("review_id", id).Str("action", string(action)).Msg("review moderated")
	return ApplyOverlay([]domain.Review{*target}, ov)[0], nil
}
