package admin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideaflow/api/internal/apperr"
	"ideaflow/api/internal/rbac"
	"ideaflow/api/internal/store"
	"ideaflow/api/internal/util"
)

var (
	adminActor = rbac.Actor{UserID: "admin-1", Role: rbac.RoleAdmin}
	userActor  = rbac.Actor{UserID: "user-1", Role: rbac.RoleUser}
)

func newTestService(t *testing.T) (*Service, *store.MemoryStore, *util.ManualClock) {
	t.Helper()
	ctx := context.Background()
	repo := store.NewMemoryStore()
	clock := util.NewManualClock(time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, repo.CreateUser(ctx, store.User{ID: adminActor.UserID, Email: "admin@example.com", Role: store.RoleAdmin, Status: store.UserActive, IsEmailVerified: true}))
	require.NoError(t, repo.CreateUser(ctx, store.User{ID: userActor.UserID, Email: "user@example.com", FirstName: "Uma", LastName: "User", Role: store.RoleUser, Status: store.UserActive, IsEmailVerified: true}))
	return NewService(repo, clock), repo, clock
}

func TestListAndGetUsers(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.ListUsers(ctx, userActor)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	users, err := svc.ListUsers(ctx, adminActor)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	user, err := svc.GetUser(ctx, adminActor, userActor.UserID)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", user.Email)

	_, err = svc.GetUser(ctx, adminActor, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestBlockAndUnblock(t *testing.T) {
	svc, repo, clock := newTestService(t)
	ctx := context.Background()

	_, err := svc.BlockUser(ctx, userActor, userActor.UserID, BlockRequest{Reason: "spam"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = svc.BlockUser(ctx, adminActor, adminActor.UserID, BlockRequest{Reason: "spam"})
	assert.ErrorIs(t, err, apperr.ErrBadRequest)
	_, err = svc.BlockUser(ctx, adminActor, userActor.UserID, BlockRequest{Reason: " "})
	assert.ErrorIs(t, err, apperr.ErrBadRequest)

	blocked, err := svc.BlockUser(ctx, adminActor, userActor.UserID, BlockRequest{Reason: "bot traffic", ReasonForUser: "Spam"})
	require.NoError(t, err)
	assert.Equal(t, store.UserBlocked, blocked.Status)

	stored, err := repo.GetUserByID(ctx, userActor.UserID)
	require.NoError(t, err)
	require.NotNil(t, stored.BlockReason)
	require.NotNil(t, stored.BlockReasonForUser)
	require.NotNil(t, stored.BlockedAt)
	assert.Equal(t, "bot traffic", *stored.BlockReason)
	assert.Equal(t, "Spam", *stored.BlockReasonForUser)
	assert.True(t, stored.BlockedAt.Equal(clock.Now()))

	_, err = svc.BlockUser(ctx, adminActor, userActor.UserID, BlockRequest{Reason: "again"})
	assert.ErrorIs(t, err, apperr.ErrBadRequest)

	unblocked, err := svc.UnblockUser(ctx, adminActor, userActor.UserID)
	require.NoError(t, err)
	assert.Equal(t, store.UserActive, unblocked.Status)
	assert.Nil(t, unblocked.BlockReason)
	assert.Nil(t, unblocked.BlockReasonForUser)
	assert.Nil(t, unblocked.BlockedAt)

	_, err = svc.UnblockUser(ctx, adminActor, userActor.UserID)
	assert.ErrorIs(t, err, apperr.ErrBadRequest)
}

func TestBlockReasonForUserDefaultsToReason(t *testing.T) {
	svc, _, _ := newTestService(t)
	blocked, err := svc.BlockUser(context.Background(), adminActor, userActor.UserID, BlockRequest{Reason: "abuse"})
	require.NoError(t, err)
	require.NotNil(t, blocked.BlockReasonForUser)
	assert.Equal(t, "abuse", *blocked.BlockReasonForUser)
}

func TestSupportMessages(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SendSupportMessage(ctx, "user@example.com", "please", "")
	assert.ErrorIs(t, err, apperr.ErrBadRequest)
	_, err = svc.SendSupportMessage(ctx, "nobody@example.com", "please", "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.BlockUser(ctx, adminActor, userActor.UserID, BlockRequest{Reason: "spam"})
	require.NoError(t, err)

	msg, err := svc.SendSupportMessage(ctx, " USER@example.com ", "I was not spamming", "")
	require.NoError(t, err)
	require.NotNil(t, msg.BlockReason)
	assert.Equal(t, "spam", *msg.BlockReason)
	assert.Equal(t, "user@example.com", msg.UserEmail)
	assert.False(t, msg.IsRead)

	custom, err := svc.SendSupportMessage(ctx, "user@example.com", "Follow-up", "misunderstanding")
	require.NoError(t, err)
	assert.Equal(t, "misunderstanding", *custom.BlockReason)

	_, err = svc.SupportMessages(ctx, userActor)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	inbox, err := svc.SupportMessages(ctx, adminActor)
	require.NoError(t, err)
	assert.Len(t, inbox, 2)

	read, err := svc.MarkSupportMessageRead(ctx, adminActor, msg.ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)

	_, err = svc.MarkSupportMessageRead(ctx, adminActor, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAuditIdeaCounters(t *testing.T) {
	svc, repo, clock := newTestService(t)
	ctx := context.Background()
	require.NoError(t, repo.CreateTopic(ctx, store.Topic{ID: "t1", Title: "Parks", Status: store.TopicApproved, Privacy: store.PrivacyPublic, CreatedBy: adminActor.UserID, CreatedAt: clock.Now()}))
	require.NoError(t, repo.CreateIdea(ctx, store.Idea{ID: "i1", TopicID: "t1", AuthorID: userActor.UserID, Title: "Clean", CreatedAt: clock.Now()}))
	require.NoError(t, repo.CreateIdea(ctx, store.Idea{ID: "i2", TopicID: "t1", AuthorID: userActor.UserID, Title: "Drifted", CreatedAt: clock.Now()}))
	require.NoError(t, repo.InsertReaction(ctx, store.Reaction{ID: "r1", UserID: adminActor.UserID, IdeaID: "i1", Type: store.ReactionLike}))
	require.NoError(t, repo.AdjustIdeaReactions(ctx, "i1", 1, 0))
	require.NoError(t, repo.AdjustIdeaReactions(ctx, "i2", 0, 2))

	_, err := svc.AuditIdeaCounters(ctx, userActor)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	drift, err := svc.AuditIdeaCounters(ctx, adminActor)
	require.NoError(t, err)
	require.Len(t, drift, 1)
	assert.Equal(t, CounterDrift{IdeaID: "i2", Title: "Drifted", Dislikes: 2}, drift[0])
}
