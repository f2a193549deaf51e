package ideas

import (
	"context"
	"errors"

	"ideaflow/api/internal/apperr"
	"ideaflow/api/internal/rbac"
	"ideaflow/api/internal/store"
	"ideaflow/api/internal/util"
)

// ReactionResult is the idea's counters after a reaction change, plus the
// caller's current reaction ("" when none).
type ReactionResult struct {
	IdeaID   string `json:"ideaId"`
	Likes    int    `json:"likes"`
	Dislikes int    `json:"dislikes"`
	Reaction string `json:"userReaction,omitempty"`
}

func (s *Service) Like(ctx context.Context, actor rbac.Actor, ideaID string) (ReactionResult, error) {
	return s.react(ctx, actor, ideaID, store.ReactionLike)
}

func (s *Service) Dislike(ctx context.Context, actor rbac.Actor, ideaID string) (ReactionResult, error) {
	return s.react(ctx, actor, ideaID, store.ReactionDislike)
}

func deltas(reactionType string, sign int) (likes, dislikes int) {
	if reactionType == store.ReactionLike {
		return sign, 0
	}
	return 0, sign
}

// react applies the toggle policy: the same reaction again clears it, the
// opposite one swaps it, otherwise a new reaction row is added. The idea
// row stays locked for the whole transaction.
func (s *Service) react(ctx context.Context, actor rbac.Actor, ideaID, reactionType string) (ReactionResult, error) {
	if err := rbac.Require(actor, rbac.ActionReact); err != nil {
		return ReactionResult{}, err
	}
	var result ReactionResult
	err := s.repo.WithTx(ctx, func(tx store.Repository) error {
		idea, err := s.lockIdea(ctx, tx, ideaID)
		if err != nil {
			return err
		}
		if err := checkVisible(actor, idea); err != nil {
			return err
		}

		existing, err := tx.GetReaction(ctx, actor.UserID, ideaID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			reaction := store.Reaction{
				ID:        util.NewID(),
				UserID:    actor.UserID,
				IdeaID:    ideaID,
				Type:      reactionType,
				CreatedAt: s.clock.Now(),
			}
			if err := tx.InsertReaction(ctx, reaction); err != nil {
				return err
			}
			likes, dislikes := deltas(reactionType, 1)
			if err := tx.AdjustIdeaReactions(ctx, ideaID, likes, dislikes); err != nil {
				return err
			}
			result.Reaction = reactionType
		case err != nil:
			return err
		case existing.Type == reactionType:
			if err := tx.DeleteReaction(ctx, existing.ID); err != nil {
				return err
			}
			likes, dislikes := deltas(reactionType, -1)
			if err := tx.AdjustIdeaReactions(ctx, ideaID, likes, dislikes); err != nil {
				return err
			}
		default:
			if err := tx.UpdateReactionType(ctx, existing.ID, reactionType); err != nil {
				return err
			}
			oldLikes, oldDislikes := deltas(existing.Type, -1)
			newLikes, newDislikes := deltas(reactionType, 1)
			if err := tx.AdjustIdeaReactions(ctx, ideaID, oldLikes+newLikes, oldDislikes+newDislikes); err != nil {
				return err
			}
			result.Reaction = reactionType
		}
		return s.fillCounts(ctx, tx, ideaID, &result)
	})
	if err != nil {
		return ReactionResult{}, err
	}
	return result, nil
}

func (s *Service) fillCounts(ctx context.Context, tx store.Repository, ideaID string, result *ReactionResult) error {
	idea, err := tx.GetIdea(ctx, ideaID)
	if err != nil {
		return err
	}
	result.IdeaID = idea.ID
	result.Likes = idea.Likes
	result.Dislikes = idea.Dislikes
	return nil
}

// RemoveReaction clears the caller's reaction regardless of its type.
func (s *Service) RemoveReaction(ctx context.Context, actor rbac.Actor, ideaID string) (ReactionResult, error) {
	if err := rbac.Require(actor, rbac.ActionReact); err != nil {
		return ReactionResult{}, err
	}
	var result ReactionResult
	err := s.repo.WithTx(ctx, func(tx store.Repository) error {
		if _, err := s.lockIdea(ctx, tx, ideaID); err != nil {
			return err
		}
		existing, err := tx.GetReaction(ctx, actor.UserID, ideaID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.BadRequest("You have not reacted to this idea")
		}
		if err != nil {
			return err
		}
		if err := tx.DeleteReaction(ctx, existing.ID); err != nil {
			return err
		}
		likes, dislikes := deltas(existing.Type, -1)
		if err := tx.AdjustIdeaReactions(ctx, ideaID, likes, dislikes); err != nil {
			return err
		}
		return s.fillCounts(ctx, tx, ideaID, &result)
	})
	if err != nil {
		return ReactionResult{}, err
	}
	return result, nil
}

// MyReaction reports the caller's current reaction on a visible idea.
func (s *Service) MyReaction(ctx context.Context, actor rbac.Actor, ideaID string) (ReactionResult, error) {
	idea, err := s.FindOne(ctx, actor, ideaID)
	if err != nil {
		return ReactionResult{}, err
	}
	result := ReactionResult{IdeaID: idea.ID, Likes: idea.Likes, Dislikes: idea.Dislikes}
	existing, err := s.repo.GetReaction(ctx, actor.UserID, ideaID)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return ReactionResult{}, err
	default:
		result.Reaction = existing.Type
	}
	return result, nil
}
