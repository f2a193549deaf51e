package ideas

import (
	"context"
	"errors"
	"strings"

	"ideaflow/api/internal/apperr"
	"ideaflow/api/internal/rbac"
	"ideaflow/api/internal/store"
	"ideaflow/api/internal/util"
)

const maxCommentLength = 5000

func (s *Service) AddComment(ctx context.Context, actor rbac.Actor, ideaID, content string, parentID *string) (store.Comment, error) {
	if err := rbac.Require(actor, rbac.ActionComment); err != nil {
		return store.Comment{}, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return store.Comment{}, apperr.BadRequest("Comment content is required")
	}
	if len(content) > maxCommentLength {
		return store.Comment{}, apperr.BadRequest("Comment is too long")
	}
	if parentID != nil && strings.TrimSpace(*parentID) == "" {
		parentID = nil
	}

	var created store.Comment
	err := s.repo.WithTx(ctx, func(tx store.Repository) error {
		idea, err := s.lockIdea(ctx, tx, ideaID)
		if err != nil {
			return err
		}
		if err := checkVisible(actor, idea); err != nil {
			return err
		}
		if parentID != nil {
			parent, err := tx.GetComment(ctx, *parentID)
			if errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound("Parent comment not found")
			}
			if err != nil {
				return err
			}
			if parent.IdeaID != ideaID {
				return apperr.BadRequest("Parent comment belongs to a different idea")
			}
		}

		comment := store.Comment{
			ID:        util.NewID(),
			IdeaID:    ideaID,
			ParentID:  parentID,
			AuthorID:  actor.UserID,
			Content:   content,
			CreatedAt: s.clock.Now(),
		}
		if err := tx.CreateComment(ctx, comment); err != nil {
			return err
		}
		if err := tx.AdjustIdeaCommentCount(ctx, ideaID, 1); err != nil {
			return err
		}
		created, err = tx.GetComment(ctx, comment.ID)
		return err
	})
	if err != nil {
		return store.Comment{}, err
	}
	return created, nil
}

// Comments lists an idea's comments oldest first; clients rebuild the
// thread from ParentID.
func (s *Service) Comments(ctx context.Context, actor rbac.Actor, ideaID string) ([]store.Comment, error) {
	if _, err := s.FindOne(ctx, actor, ideaID); err != nil {
		return nil, err
	}
	return s.repo.ListCommentsByIdea(ctx, ideaID)
}

func (s *Service) RemoveComment(ctx context.Context, actor rbac.Actor, commentID string) (int, error) {
	if err := rbac.Require(actor, rbac.ActionComment); err != nil {
		return 0, err
	}
	return s.deleteComment(ctx, commentID, func(comment store.Comment) error {
		if !actor.IsAdmin() && !actor.Owns(comment.AuthorID) {
			return apperr.Forbidden("You can only delete your own comments")
		}
		return nil
	})
}

func (s *Service) AllComments(ctx context.Context, actor rbac.Actor) ([]store.Comment, error) {
	if err := rbac.Require(actor, rbac.ActionAdminComments); err != nil {
		return nil, err
	}
	return s.repo.ListComments(ctx)
}

func (s *Service) AdminRemoveComment(ctx context.Context, actor rbac.Actor, commentID string) (int, error) {
	if err := rbac.Require(actor, rbac.ActionAdminComments); err != nil {
		return 0, err
	}
	return s.deleteComment(ctx, commentID, func(store.Comment) error { return nil })
}

// deleteComment removes the comment and its replies and lowers the idea's
// commentCount by the number of rows removed.
func (s *Service) deleteComment(ctx context.Context, commentID string, allow func(store.Comment) error) (int, error) {
	var removed int
	err := s.repo.WithTx(ctx, func(tx store.Repository) error {
		comment, err := tx.GetComment(ctx, commentID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("Comment not found")
		}
		if err != nil {
			return err
		}
		if err := allow(comment); err != nil {
			return err
		}
		if _, err := s.lockIdea(ctx, tx, comment.IdeaID); err != nil {
			return err
		}
		removed, err = tx.DeleteComment(ctx, commentID)
		if err != nil {
			return err
		}
		return tx.AdjustIdeaCommentCount(ctx, comment.IdeaID, -removed)
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
