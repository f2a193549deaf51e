// Package admin covers account moderation and the support inbox used by
// blocked users.
package admin

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

// BlockRequest carries the internal reason and, optionally, a separate
// wording shown to the user. The internal reason is reused when it is empty.
type BlockRequest struct {
	Reason        string
	ReasonForUser string
}

type CounterDrift struct {
	IdeaID      string `json:"ideaId"`
	Title       string `json:"title"`
	Likes       int    `json:"likes"`
	Dislikes    int    `json:"dislikes"`
	RowLikes    int    `json:"rowLikes"`
	RowDislikes int    `json:"rowDislikes"`
}

func (s *Service) ListUsers(ctx context.Context, actor rbac.Actor) ([]store.User, error) {
	if err := rbac.Require(actor, rbac.ActionManageUsers); err != nil {
		return nil, err
	}
	return s.repo.ListUsers(ctx)
}

func (s *Service) GetUser(ctx context.Context, actor rbac.Actor, userID string) (store.User, error) {
	if err := rbac.Require(actor, rbac.ActionManageUsers); err != nil {
		return store.User{}, err
	}
	return s.getUser(ctx, s.repo, userID)
}

func (s *Service) getUser(ctx context.Context, repo store.Repository, userID string) (store.User, error) {
	user, err := repo.GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return store.User{}, apperr.NotFound("User not found")
	}
	return user, err
}

func (s *Service) BlockUser(ctx context.Context, actor rbac.Actor, userID string, req BlockRequest) (store.User, error) {
	if err := rbac.Require(actor, rbac.ActionManageUsers); err != nil {
		return store.User{}, err
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return store.User{}, apperr.BadRequest("Block reason is required")
	}
	forUser := strings.TrimSpace(req.ReasonForUser)
	if forUser == "" {
		forUser = reason
	}

	var blocked store.User
	err := s.repo.WithTx(ctx, func(tx store.Repository) error {
		user, err := s.getUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if user.IsAdmin() {
			return apperr.BadRequest("Cannot block an administrator")
		}
		if user.IsBlocked() {
			return apperr.BadRequest("User is already blocked")
		}
		now := s.clock.Now()
		user.Status = store.UserBlocked
		user.BlockReason = &reason
		user.BlockReasonForUser = &forUser
		user.BlockedAt = &now
		user.UpdatedAt = now
		if err := tx.UpdateUser(ctx, user); err != nil {
			return err
		}
		blocked = user
		return nil
	})
	if err != nil {
		return store.User{}, err
	}
	return blocked, nil
}

// UnblockUser restores an active account and clears the block record.
func (s *Service) UnblockUser(ctx context.Context, actor rbac.Actor, userID string) (store.User, error) {
	if err := rbac.Require(actor, rbac.ActionManageUsers); err != nil {
		return store.User{}, err
	}
	var unblocked store.User
	err := s.repo.WithTx(ctx, func(tx store.Repository) error {
		user, err := s.getUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !user.IsBlocked() {
			return apperr.BadRequest("User is not blocked")
		}
		user.Status = store.UserActive
		user.BlockReason = nil
		user.BlockReasonForUser = nil
		user.BlockedAt = nil
		user.UpdatedAt = s.clock.Now()
		if err := tx.UpdateUser(ctx, user); err != nil {
			return err
		}
		unblocked = user
		return nil
	})
	if err != nil {
		return store.User{}, err
	}
	return unblocked, nil
}

// SendSupportMessage is called without a session: blocked users cannot log
// in, so the account is identified by email and must be blocked.
func (s *Service) SendSupportMessage(ctx context.Context, email, message, blockReason string) (store.SupportMessage, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	message = strings.TrimSpace(message)
	if email == "" || message == "" {
		return store.SupportMessage{}, apperr.BadRequest("Email and message are required")
	}
	user, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return store.SupportMessage{}, apperr.NotFound("User not found")
	}
	if err != nil {
		return store.SupportMessage{}, err
	}
	if !user.IsBlocked() {
		return store.SupportMessage{}, apperr.BadRequest("Only blocked users can send support messages")
	}

	msg := store.SupportMessage{
		ID:          util.NewID(),
		UserID:      user.ID,
		Message:     message,
		BlockReason: user.BlockReason,
		CreatedAt:   s.clock.Now(),
	}
	if reason := strings.TrimSpace(blockReason); reason != "" {
		msg.BlockReason = &reason
	}
	if err := s.repo.CreateSupportMessage(ctx, msg); err != nil {
		return store.SupportMessage{}, err
	}
	return s.repo.GetSupportMessage(ctx, msg.ID)
}

func (s *Service) SupportMessages(ctx context.Context, actor rbac.Actor) ([]store.SupportMessage, error) {
	if err := rbac.Require(actor, rbac.ActionReadSupport); err != nil {
		return nil, err
	}
	return s.repo.ListSupportMessages(ctx)
}

func (s *Service) MarkSupportMessageRead(ctx context.Context, actor rbac.Actor, messageID string) (store.SupportMessage, error) {
	if err := rbac.Require(actor, rbac.ActionReadSupport); err != nil {
		return store.SupportMessage{}, err
	}
	err := s.repo.MarkSupportMessageRead(ctx, messageID)
	if errors.Is(err, store.ErrNotFound) {
		return store.SupportMessage{}, apperr.NotFound("Support message not found")
	}
	if err != nil {
		return store.SupportMessage{}, err
	}
	return s.repo.GetSupportMessage(ctx, messageID)
}

// AuditIdeaCounters compares every idea's likes and dislikes against its
// reaction rows and returns the ideas that disagree. It changes nothing.
func (s *Service) AuditIdeaCounters(ctx context.Context, actor rbac.Actor) ([]CounterDrift, error) {
	if err := rbac.Require(actor, rbac.ActionAuditCounters); err != nil {
		return nil, err
	}
	ideas, err := s.repo.ListIdeas(ctx)
	if err != nil {
		return nil, err
	}
	drift := make([]CounterDrift, 0)
	for _, idea := range ideas {
		counts, err := s.repo.CountReactions(ctx, idea.ID)
		if err != nil {
			return nil, err
		}
		if counts.Likes == idea.Likes && counts.Dislikes == idea.Dislikes {
			continue
		}
		drift = append(drift, CounterDrift{
			IdeaID:      idea.ID,
			Title:       idea.Title,
			Likes:       idea.Likes,
			Dislikes:    idea.Dislikes,
			RowLikes:    counts.Likes,
			RowDislikes: counts.Dislikes,
		})
	}
	return drift, nil
}
