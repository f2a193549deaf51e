package authpw

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"ideaflow/api/internal/apperr"
	"ideaflow/api/internal/auth"
	"ideaflow/api/internal/rbac"
	"ideaflow/api/internal/store"
	"ideaflow/api/internal/util"
)

type fakeNotifier struct {
	fail   bool
	codes  map[string]string
	resets map[string]string
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{codes: map[string]string{}, resets: map[string]string{}}
}

func (f *fakeNotifier) SendVerificationCode(_ context.Context, email, code string) bool {
	if f.fail {
		return false
	}
	f.codes[email] = code
	return true
}

func (f *fakeNotifier) SendPasswordReset(_ context.Context, email, token string) bool {
	if f.fail {
		return false
	}
	f.resets[email] = token
	return true
}

type harness struct {
	svc      *Service
	repo     *store.MemoryStore
	notifier *fakeNotifier
	clock    *util.ManualClock
}

func newHarness(t *testing.T) harness {
	t.Helper()
	repo := store.NewMemoryStore()
	clock := util.NewManualClock(time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC))
	notifier := newFakeNotifier()
	svc := NewService(Options{
		Repo:     repo,
		Hasher:   auth.NewBcryptHasher(bcrypt.MinCost),
		Tokens:   auth.NewJWTCodec("test-secret", 24*time.Hour, clock),
		Notifier: notifier,
		Clock:    clock,
	})
	return harness{svc: svc, repo: repo, notifier: notifier, clock: clock}
}

func (h harness) registerVerified(t *testing.T, email string) Session {
	t.Helper()
	ctx := context.Background()
	_, err := h.svc.Register(ctx, RegisterRequest{Email: email, Password: "password123", FirstName: "Test", LastName: "User"})
	require.NoError(t, err)
	sess, err := h.svc.VerifyEmail(ctx, email, h.notifier.codes[email])
	require.NoError(t, err)
	return sess
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("creates pending user and sends code", func(t *testing.T) {
		h := newHarness(t)
		user, err := h.svc.Register(ctx, RegisterRequest{Email: " Ada@Example.com ", Password: "password123", FirstName: "Ada"})
		require.NoError(t, err)

		assert.Equal(t, "ada@example.com", user.Email)
		assert.Equal(t, store.UserPending, user.Status)
		assert.Equal(t, store.RoleUser, user.Role)
		assert.False(t, user.IsEmailVerified)
		assert.NotEqual(t, "password123", user.PasswordHash)
		assert.Len(t, h.notifier.codes["ada@example.com"], 6)
		require.NotNil(t, user.VerificationExpiresAt)
		assert.Equal(t, h.clock.Now().Add(time.Hour), *user.VerificationExpiresAt)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.svc.Register(ctx, RegisterRequest{Email: "ada@example.com", Password: "password123"})
		require.NoError(t, err)
		_, err = h.svc.Register(ctx, RegisterRequest{Email: "ADA@example.com", Password: "password123"})
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("short password rejected", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.svc.Register(ctx, RegisterRequest{Email: "ada@example.com", Password: "123"})
		assert.ErrorIs(t, err, apperr.ErrBadRequest)
	})

	t.Run("send failure keeps the row and resend recovers", func(t *testing.T) {
		h := newHarness(t)
		h.notifier.fail = true
		_, err := h.svc.Register(ctx, RegisterRequest{Email: "ada@example.com", Password: "password123"})
		assert.ErrorIs(t, err, apperr.ErrBadRequest)

		stored, err := h.repo.GetUserByEmail(ctx, "ada@example.com")
		require.NoError(t, err)
		assert.Equal(t, store.UserPending, stored.Status)

		h.notifier.fail = false
		require.NoError(t, h.svc.ResendVerification(ctx, "ada@example.com"))
		_, err = h.svc.VerifyEmail(ctx, "ada@example.com", h.notifier.codes["ada@example.com"])
		require.NoError(t, err)
	})
}

func TestVerifyEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("activates and returns session", func(t *testing.T) {
		h := newHarness(t)
		sess := h.registerVerified(t, "ada@example.com")
		assert.NotEmpty(t, sess.Token)
		assert.True(t, sess.User.IsEmailVerified)
		assert.Equal(t, store.UserActive, sess.User.Status)
		assert.Nil(t, sess.User.VerificationCode)

		principal, err := h.svc.ValidateSession(ctx, sess.Token)
		require.NoError(t, err)
		assert.Equal(t, sess.User.ID, principal.UserID)
	})

	t.Run("wrong code", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.svc.Register(ctx, RegisterRequest{Email: "ada@example.com", Password: "password123"})
		require.NoError(t, err)
		_, err = h.svc.VerifyEmail(ctx, "ada@example.com", "WRONG1")
		assert.ErrorIs(t, err, apperr.ErrBadRequest)
	})

	t.Run("expired code", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.svc.Register(ctx, RegisterRequest{Email: "ada@example.com", Password: "password123"})
		require.NoError(t, err)
		h.clock.Advance(61 * time.Minute)
		_, err = h.svc.VerifyEmail(ctx, "ada@example.com", h.notifier.codes["ada@example.com"])
		require.ErrorIs(t, err, apperr.ErrBadRequest)
		domainErr, ok := apperr.As(err)
		require.True(t, ok)
		assert.Equal(t, "Verification code has expired", domainErr.Message)
	})

	t.Run("already verified", func(t *testing.T) {
		h := newHarness(t)
		h.registerVerified(t, "ada@example.com")
		_, err := h.svc.VerifyEmail(ctx, "ada@example.com", "ANY123")
		assert.ErrorIs(t, err, apperr.ErrBadRequest)
		assert.ErrorIs(t, h.svc.ResendVerification(ctx, "ada@example.com"), apperr.ErrBadRequest)
	})

	t.Run("unknown user", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.svc.VerifyEmail(ctx, "ghost@example.com", "ABC123")
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
		assert.ErrorIs(t, h.svc.ResendVerification(ctx, "ghost@example.com"), apperr.ErrUnauthorized)
	})
}

func blockUser(t *testing.T, repo store.Repository, userID, reason string) {
	t.Helper()
	ctx := context.Background()
	user, err := repo.GetUserByID(ctx, userID)
	require.NoError(t, err)
	user.Status = store.UserBlocked
	user.BlockReasonForUser = &reason
	require.NoError(t, repo.UpdateUser(ctx, user))
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("success issues distinct token ids", func(t *testing.T) {
		h := newHarness(t)
		h.registerVerified(t, "ada@example.com")

		first, err := h.svc.Login(ctx, "ada@example.com", "password123")
		require.NoError(t, err)
		second, err := h.svc.Login(ctx, "ada@example.com", "password123")
		require.NoError(t, err)

		p1, err := h.svc.ValidateSession(ctx, first.Token)
		require.NoError(t, err)
		p2, err := h.svc.ValidateSession(ctx, second.Token)
		require.NoError(t, err)
		assert.NotEqual(t, p1.TokenID, p2.TokenID)
		assert.True(t, first.ExpiresAt.Equal(h.clock.Now().Add(24*time.Hour)))
	})

	t.Run("unknown email and bad password are unauthorized", func(t *testing.T) {
		h := newHarness(t)
		h.registerVerified(t, "ada@example.com")
		_, err := h.svc.Login(ctx, "ghost@example.com", "password123")
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
		_, err = h.svc.Login(ctx, "ada@example.com", "wrong-password")
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})

	t.Run("unverified is forbidden", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.svc.Register(ctx, RegisterRequest{Email: "ada@example.com", Password: "password123"})
		require.NoError(t, err)
		_, err = h.svc.Login(ctx, "ada@example.com", "password123")
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("blocked is forbidden with user facing reason", func(t *testing.T) {
		h := newHarness(t)
		sess := h.registerVerified(t, "ada@example.com")
		blockUser(t, h.repo, sess.User.ID, "Spam")

		_, err := h.svc.Login(ctx, "ada@example.com", "password123")
		require.ErrorIs(t, err, apperr.ErrForbidden)
		domainErr, _ := apperr.As(err)
		assert.Contains(t, domainErr.Message, "Reason: Spam")
	})
}

func TestValidateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("revoked token fails every later call", func(t *testing.T) {
		h := newHarness(t)
		sess := h.registerVerified(t, "ada@example.com")

		require.NoError(t, h.svc.Logout(ctx, sess.Token))
		for i := 0; i < 3; i++ {
			_, err := h.svc.ValidateSession(ctx, sess.Token)
			assert.ErrorIs(t, err, apperr.ErrUnauthorized)
		}

		other, err := h.svc.Login(ctx, "ada@example.com", "password123")
		require.NoError(t, err)
		_, err = h.svc.ValidateSession(ctx, other.Token)
		assert.NoError(t, err)
	})

	t.Run("blocked user rejected despite valid token", func(t *testing.T) {
		h := newHarness(t)
		sess := h.registerVerified(t, "ada@example.com")
		blockUser(t, h.repo, sess.User.ID, "Abuse")
		_, err := h.svc.ValidateSession(ctx, sess.Token)
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})

	t.Run("expired and malformed tokens", func(t *testing.T) {
		h := newHarness(t)
		sess := h.registerVerified(t, "ada@example.com")
		_, err := h.svc.ValidateSession(ctx, "not-a-token")
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
		_, err = h.svc.ValidateSession(ctx, "")
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)

		h.clock.Advance(25 * time.Hour)
		_, err = h.svc.ValidateSession(ctx, sess.Token)
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})

	t.Run("role comes from the stored account", func(t *testing.T) {
		h := newHarness(t)
		sess := h.registerVerified(t, "ada@example.com")
		user, err := h.repo.GetUserByID(ctx, sess.User.ID)
		require.NoError(t, err)
		user.Role = store.RoleAdmin
		require.NoError(t, h.repo.UpdateUser(ctx, user))

		principal, err := h.svc.ValidateSession(ctx, sess.Token)
		require.NoError(t, err)
		assert.Equal(t, rbac.RoleAdmin, principal.Role)
	})
}

func TestLogoutIgnoresUndecodableTokens(t *testing.T) {
	h := newHarness(t)
	assert.NoError(t, h.svc.Logout(context.Background(), "garbage"))
	assert.NoError(t, h.svc.Logout(context.Background(), ""))
}

func TestAuthorize(t *testing.T) {
	h := newHarness(t)
	user := Principal{UserID: "u1", Role: rbac.RoleUser}
	admin := Principal{UserID: "a1", Role: rbac.RoleAdmin}

	assert.NoError(t, h.svc.Authorize(user, rbac.ActionSuggestTopic))
	assert.ErrorIs(t, h.svc.Authorize(user, rbac.ActionCreateTopic), apperr.ErrForbidden)
	assert.NoError(t, h.svc.Authorize(admin, rbac.ActionCreateTopic))
}

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()

	t.Run("token is single use", func(t *testing.T) {
		h := newHarness(t)
		h.registerVerified(t, "ada@example.com")

		require.NoError(t, h.svc.ForgotPassword(ctx, "ada@example.com"))
		token := h.notifier.resets["ada@example.com"]
		require.Len(t, token, 64)

		require.NoError(t, h.svc.ResetPassword(ctx, token, "new-password"))
		_, err := h.svc.Login(ctx, "ada@example.com", "new-password")
		require.NoError(t, err)

		assert.ErrorIs(t, h.svc.ResetPassword(ctx, token, "another-password"), apperr.ErrBadRequest)
	})

	t.Run("unknown email is silent", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.svc.ForgotPassword(ctx, "ghost@example.com"))
		assert.Empty(t, h.notifier.resets)
	})

	t.Run("expired token", func(t *testing.T) {
		h := newHarness(t)
		h.registerVerified(t, "ada@example.com")
		require.NoError(t, h.svc.ForgotPassword(ctx, "ada@example.com"))
		h.clock.Advance(2 * time.Hour)
		assert.ErrorIs(t, h.svc.ResetPassword(ctx, h.notifier.resets["ada@example.com"], "new-password"), apperr.ErrBadRequest)
	})

	t.Run("blocked account", func(t *testing.T) {
		h := newHarness(t)
		sess := h.registerVerified(t, "ada@example.com")
		require.NoError(t, h.svc.ForgotPassword(ctx, "ada@example.com"))
		token := h.notifier.resets["ada@example.com"]
		blockUser(t, h.repo, sess.User.ID, "Spam")

		assert.ErrorIs(t, h.svc.ResetPassword(ctx, token, "new-password"), apperr.ErrBadRequest)
		assert.ErrorIs(t, h.svc.ForgotPassword(ctx, "ada@example.com"), apperr.ErrBadRequest)
	})

	t.Run("send failure surfaces", func(t *testing.T) {
		h := newHarness(t)
		h.registerVerified(t, "ada@example.com")
		h.notifier.fail = true
		assert.ErrorIs(t, h.svc.ForgotPassword(ctx, "ada@example.com"), apperr.ErrBadRequest)
	})
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	sess := h.registerVerified(t, "ada@example.com")

	assert.ErrorIs(t, h.svc.ChangePassword(ctx, sess.User.ID, "wrong", "new-password"), apperr.ErrBadRequest)
	assert.ErrorIs(t, h.svc.ChangePassword(ctx, "missing", "password123", "new-password"), apperr.ErrNotFound)

	require.NoError(t, h.svc.ChangePassword(ctx, sess.User.ID, "password123", "new-password"))
	_, err := h.svc.Login(ctx, "ada@example.com", "new-password")
	assert.NoError(t, err)
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	admin, created, err := h.svc.EnsureAdmin(ctx, "Admin@Example.com", "admin-password", "Site", "Admin")
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, admin.IsAdmin())

	_, created, err = h.svc.EnsureAdmin(ctx, "admin@example.com", "admin-password", "Site", "Admin")
	require.NoError(t, err)
	assert.False(t, created)

	sess, err := h.svc.Login(ctx, "admin@example.com", "admin-password")
	require.NoError(t, err)
	principal, err := h.svc.ValidateSession(ctx, sess.Token)
	require.NoError(t, err)
	assert.True(t, principal.Actor().IsAdmin())
}
