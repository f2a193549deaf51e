// Package topics implements the topic lifecycle: admin-opened and
// user-suggested topics, moderation and visibility.
package topics

import (
	"context"
	"errors"
	"strings"
	"time"

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

type TopicInput struct {
	Title       string
	Description string
	Privacy     string
	Deadline    *time.Time
}

// TopicPatch carries the fields to change; nil leaves a field untouched.
type TopicPatch struct {
	Title         *string
	Description   *string
	Privacy       *string
	Deadline      *time.Time
	ClearDeadline bool
}

func validPrivacy(privacy string) bool {
	return privacy == store.PrivacyPublic || privacy == store.PrivacyPrivate
}

func (s *Service) newTopic(actor rbac.Actor, in TopicInput, status string) (store.Topic, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return store.Topic{}, apperr.BadRequest("Title is required")
	}
	privacy := in.Privacy
	if privacy == "" {
		privacy = store.PrivacyPublic
	}
	if !validPrivacy(privacy) {
		return store.Topic{}, apperr.BadRequest("Privacy must be public or private")
	}
	now := s.clock.Now()
	return store.Topic{
		ID:          util.NewID(),
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Status:      status,
		Privacy:     privacy,
		Deadline:    in.Deadline,
		CreatedBy:   actor.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Create opens an admin-authored topic; it is approved immediately.
func (s *Service) Create(ctx context.Context, actor rbac.Actor, in TopicInput) (store.Topic, error) {
	if err := rbac.Require(actor, rbac.ActionCreateTopic); err != nil {
		return store.Topic{}, err
	}
	return s.insert(ctx, actor, in, store.TopicApproved)
}

// Suggest records a user proposal awaiting moderation.
func (s *Service) Suggest(ctx context.Context, actor rbac.Actor, in TopicInput) (store.Topic, error) {
	if err := rbac.Require(actor, rbac.ActionSuggestTopic); err != nil {
		return store.Topic{}, err
	}
	return s.insert(ctx, actor, in, store.TopicPending)
}

func (s *Service) insert(ctx context.Context, actor rbac.Actor, in TopicInput, status string) (store.Topic, error) {
	topic, err := s.newTopic(actor, in, status)
	if err != nil {
		return store.Topic{}, err
	}
	if err := s.repo.CreateTopic(ctx, topic); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Topic{}, apperr.NotFound("User not found")
		}
		return store.Topic{}, err
	}
	return s.repo.GetTopic(ctx, topic.ID)
}

// FindForUser lists what the actor may browse: everything for admins,
// approved public topics for everyone else.
func (s *Service) FindForUser(ctx context.Context, actor rbac.Actor) ([]store.Topic, error) {
	if actor.IsAdmin() {
		return s.repo.ListTopics(ctx, store.TopicFilter{})
	}
	return s.repo.ListTopics(ctx, store.TopicFilter{Status: store.TopicApproved, Privacy: store.PrivacyPublic})
}

func (s *Service) FindAll(ctx context.Context, actor rbac.Actor, status string) ([]store.Topic, error) {
	if err := rbac.Require(actor, rbac.ActionListAllTopics); err != nil {
		return nil, err
	}
	switch status {
	case "", store.TopicPending, store.TopicApproved, store.TopicRejected:
	default:
		return nil, apperr.BadRequest("Unknown topic status")
	}
	return s.repo.ListTopics(ctx, store.TopicFilter{Status: status})
}

func (s *Service) Pending(ctx context.Context, actor rbac.Actor) ([]store.Topic, error) {
	return s.FindAll(ctx, actor, store.TopicPending)
}

func (s *Service) get(ctx context.Context, topicID string) (store.Topic, error) {
	topic, err := s.repo.GetTopic(ctx, topicID)
	if errors.Is(err, store.ErrNotFound) {
		return store.Topic{}, apperr.NotFound("Topic not found")
	}
	return topic, err
}

// lock reads the topic under its row lock inside tx.
func (s *Service) lock(ctx context.Context, tx store.Repository, topicID string) (store.Topic, error) {
	topic, err := tx.GetTopicForUpdate(ctx, topicID)
	if errors.Is(err, store.ErrNotFound) {
		return store.Topic{}, apperr.NotFound("Topic not found")
	}
	return topic, err
}

func (s *Service) FindOne(ctx context.Context, actor rbac.Actor, topicID string) (store.Topic, error) {
	topic, err := s.get(ctx, topicID)
	if err != nil {
		return store.Topic{}, err
	}
	if !actor.IsAdmin() && !topic.VisibleToPublic() {
		return store.Topic{}, apperr.Forbidden("You do not have access to this topic")
	}
	return topic, nil
}

// checkOwnerEdit enforces the owner-while-pending rule; admins bypass it.
func checkOwnerEdit(actor rbac.Actor, topic store.Topic, verb string) error {
	if actor.IsAdmin() {
		return nil
	}
	if !actor.Owns(topic.CreatedBy) {
		return apperr.Forbidden("You can only " + verb + " your own topics")
	}
	if topic.Status != store.TopicPending {
		return apperr.Forbidden("You can only " + verb + " your topics while they are pending")
	}
	return nil
}

// Update applies patch. Status is not editable here; moderation goes
// through Approve and Reject.
func (s *Service) Update(ctx context.Context, actor rbac.Actor, topicID string, patch TopicPatch) (store.Topic, error) {
	if err := rbac.Require(actor, rbac.ActionEditOwnTopic); err != nil {
		return store.Topic{}, err
	}
	var updated store.Topic
	err := s.repo.WithTx(ctx, func(tx store.Repository) error {
		topic, err := s.lock(ctx, tx, topicID)
		if err != nil {
			return err
		}
		if err := checkOwnerEdit(actor, topic, "update"); err != nil {
			return err
		}

		if patch.Title != nil {
			title := strings.TrimSpace(*patch.Title)
			if title == "" {
				return apperr.BadRequest("Title is required")
			}
			topic.Title = title
		}
		if patch.Description != nil {
			topic.Description = strings.TrimSpace(*patch.Description)
		}
		if patch.Privacy != nil {
			if !validPrivacy(*patch.Privacy) {
				return apperr.BadRequest("Privacy must be public or private")
			}
			topic.Privacy = *patch.Privacy
		}
		if patch.ClearDeadline {
			topic.Deadline = nil
		} else if patch.Deadline != nil {
			topic.Deadline = patch.Deadline
		}
		topic.UpdatedAt = s.clock.Now()
		if err := tx.UpdateTopic(ctx, topic); err != nil {
			return err
		}
		updated, err = tx.GetTopic(ctx, topicID)
		return err
	})
	if err != nil {
		return store.Topic{}, err
	}
	return updated, nil
}

func (s *Service) Approve(ctx context.Context, actor rbac.Actor, topicID string) (store.Topic, error) {
	return s.moderate(ctx, actor, topicID, store.TopicApproved)
}

func (s *Service) Reject(ctx context.Context, actor rbac.Actor, topicID string) (store.Topic, error) {
	return s.moderate(ctx, actor, topicID, store.TopicRejected)
}

// moderate moves a pending topic to target. Moderated topics never go back.
func (s *Service) moderate(ctx context.Context, actor rbac.Actor, topicID, target string) (store.Topic, error) {
	if err := rbac.Require(actor, rbac.ActionModerateTopic); err != nil {
		return store.Topic{}, err
	}
	var updated store.Topic
	err := s.repo.WithTx(ctx, func(tx store.Repository) error {
		topic, err := s.lock(ctx, tx, topicID)
		if err != nil {
			return err
		}
		if topic.Status == target {
			return apperr.BadRequest("Topic is already " + target)
		}
		if topic.Status != store.TopicPending {
			return apperr.BadRequest("Topic has already been moderated")
		}
		topic.Status = target
		topic.UpdatedAt = s.clock.Now()
		if err := tx.UpdateTopic(ctx, topic); err != nil {
			return err
		}
		updated = topic
		return nil
	})
	if err != nil {
		return store.Topic{}, err
	}
	return updated, nil
}

// Remove deletes the topic; its ideas, their comments and reactions go
// with it.
func (s *Service) Remove(ctx context.Context, actor rbac.Actor, topicID string) error {
	if err := rbac.Require(actor, rbac.ActionEditOwnTopic); err != nil {
		return err
	}
	return s.repo.WithTx(ctx, func(tx store.Repository) error {
		topic, err := s.lock(ctx, tx, topicID)
		if err != nil {
			return err
		}
		if err := checkOwnerEdit(actor, topic, "delete"); err != nil {
			return err
		}
		return tx.DeleteTopic(ctx, topicID)
	})
}
