// Package ideas holds ideas, their like/dislike reactions and comment
// threads. Every counter change shares a transaction with the row change
// that caused it.
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

type Service struct {
	repo  store.Repository
	clock util.Clock
}

func NewService(repo store.Repository, clock util.Clock) *Service {
	if clock == nil {
		clock = util.SystemClock{}
	}
	return &Service{repo: repo, clock: clock}
}

type IdeaInput struct {
	TopicID     string
	Title       string
	Description string
	Images      []string
}

type IdeaPatch struct {
	Title       *string
	Description *string
	Images      *[]string
}

func cleanImages(images []string) ([]string, error) {
	out := make([]string, 0, len(images))
	for _, image := range images {
		image = strings.TrimSpace(image)
		if image == "" {
			return nil, apperr.BadRequest("Image references must not be empty")
		}
		out = append(out, image)
	}
	return out, nil
}

func (s *Service) getIdea(ctx context.Context, repo store.Repository, ideaID string) (store.Idea, error) {
	idea, err := repo.GetIdea(ctx, ideaID)
	if errors.Is(err, store.ErrNotFound) {
		return store.Idea{}, apperr.NotFound("Idea not found")
	}
	return idea, err
}

func (s *Service) lockIdea(ctx context.Context, repo store.Repository, ideaID string) (store.Idea, error) {
	idea, err := repo.GetIdeaForUpdate(ctx, ideaID)
	if errors.Is(err, store.ErrNotFound) {
		return store.Idea{}, apperr.NotFound("Idea not found")
	}
	return idea, err
}

// checkVisible denies non-admins access to ideas whose topic is not both
// approved and public.
func checkVisible(actor rbac.Actor, idea store.Idea) error {
	if actor.IsAdmin() {
		return nil
	}
	if idea.TopicStatus != store.TopicApproved || idea.TopicPrivacy != store.PrivacyPublic {
		return apperr.Forbidden("You do not have access to this idea")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, actor rbac.Actor, in IdeaInput) (store.Idea, error) {
	if err := rbac.Require(actor, rbac.ActionCreateIdea); err != nil {
		return store.Idea{}, err
	}
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	if title == "" {
		return store.Idea{}, apperr.BadRequest("Title is required")
	}
	if description == "" {
		return store.Idea{}, apperr.BadRequest("Description is required")
	}
	images, err := cleanImages(in.Images)
	if err != nil {
		return store.Idea{}, err
	}

	var created store.Idea
	err = s.repo.WithTx(ctx, func(tx store.Repository) error {
		topic, err := tx.GetTopic(ctx, in.TopicID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("Topic not found")
		}
		if err != nil {
			return err
		}
		now := s.clock.Now()
		if topic.Status != store.TopicApproved {
			return apperr.BadRequest("Cannot add ideas to unapproved topic")
		}
		if topic.IsExpired(now) {
			return apperr.BadRequest("Topic deadline has expired")
		}

		idea := store.Idea{
			ID:          util.NewID(),
			TopicID:     topic.ID,
			AuthorID:    actor.UserID,
			Title:       title,
			Description: description,
			Images:      images,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.CreateIdea(ctx, idea); err != nil {
			return err
		}
		if err := tx.AdjustTopicIdeaCount(ctx, topic.ID, 1); err != nil {
			return err
		}
		created, err = tx.GetIdea(ctx, idea.ID)
		return err
	})
	if err != nil {
		return store.Idea{}, err
	}
	return created, nil
}

func (s *Service) FindOne(ctx context.Context, actor rbac.Actor, ideaID string) (store.Idea, error) {
	idea, err := s.getIdea(ctx, s.repo, ideaID)
	if err != nil {
		return store.Idea{}, err
	}
	if err := checkVisible(actor, idea); err != nil {
		return store.Idea{}, err
	}
	return idea, nil
}

// FindByTopic lists a topic's ideas, newest first.
func (s *Service) FindByTopic(ctx context.Context, actor rbac.Actor, topicID string) ([]store.Idea, error) {
	topic, err := s.repo.GetTopic(ctx, topicID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Topic not found")
	}
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !topic.VisibleToPublic() {
		return nil, apperr.Forbidden("You do not have access to this topic")
	}
	return s.repo.ListIdeasByTopic(ctx, topicID)
}

func (s *Service) FindAll(ctx context.Context, actor rbac.Actor) ([]store.Idea, error) {
	if err := rbac.Require(actor, rbac.ActionAdminIdeas); err != nil {
		return nil, err
	}
	return s.repo.ListIdeas(ctx)
}

// Update lets the author or an admin change title, description and images.
// The topic and counters are never touched here.
func (s *Service) Update(ctx context.Context, actor rbac.Actor, ideaID string, patch IdeaPatch) (store.Idea, error) {
	if err := rbac.Require(actor, rbac.ActionEditOwnIdea); err != nil {
		return store.Idea{}, err
	}
	var updated store.Idea
	err := s.repo.WithTx(ctx, func(tx store.Repository) error {
		idea, err := s.getIdea(ctx, tx, ideaID)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() && !actor.Owns(idea.AuthorID) {
			return apperr.Forbidden("You can only update your own ideas")
		}
		if patch.Title != nil {
			title := strings.TrimSpace(*patch.Title)
			if title == "" {
				return apperr.BadRequest("Title is required")
			}
			idea.Title = title
		}
		if patch.Description != nil {
			description := strings.TrimSpace(*patch.Description)
			if description == "" {
				return apperr.BadRequest("Description is required")
			}
			idea.Description = description
		}
		if patch.Images != nil {
			images, err := cleanImages(*patch.Images)
			if err != nil {
				return err
			}
			idea.Images = images
		}
		idea.UpdatedAt = s.clock.Now()
		if err := tx.UpdateIdea(ctx, idea); err != nil {
			return err
		}
		updated, err = tx.GetIdea(ctx, ideaID)
		return err
	})
	if err != nil {
		return store.Idea{}, err
	}
	return updated, nil
}

// Remove deletes the idea with its comments and reactions, and takes it
// off the topic's ideaCount.
func (s *Service) Remove(ctx context.Context, actor rbac.Actor, ideaID string) error {
	if err := rbac.Require(actor, rbac.ActionEditOwnIdea); err != nil {
		return err
	}
	return s.repo.WithTx(ctx, func(tx store.Repository) error {
		idea, err := s.lockIdea(ctx, tx, ideaID)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() && !actor.Owns(idea.AuthorID) {
			return apperr.Forbidden("You can only delete your own ideas")
		}
		if err := tx.DeleteIdea(ctx, ideaID); err != nil {
			return err
		}
		return tx.AdjustTopicIdeaCount(ctx, idea.TopicID, -1)
	})
}
