// Package authpw provides email/password authentication with verification,
// revocable sessions and password recovery.
package authpw

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ideaflow/api/internal/apperr"
	"ideaflow/api/internal/auth"
	"ideaflow/api/internal/rbac"
	"ideaflow/api/internal/session"
	"ideaflow/api/internal/store"
	"ideaflow/api/internal/util"
)

const (
	verificationCodeLength = 6
	verificationTTL        = time.Hour
	resetTokenBytes        = 32
	resetTTL               = time.Hour
	minPasswordLength      = 6
)

type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

type TokenCodec interface {
	Issue(claims auth.Claims) (string, error)
	Parse(token string) (auth.Claims, error)
	Decode(token string) (auth.Claims, bool)
}

// Notifier delivers codes and reset tokens. A false return means the
// message did not go out.
type Notifier interface {
	SendVerificationCode(ctx context.Context, email, code string) bool
	SendPasswordReset(ctx context.Context, email, token string) bool
}

type Options struct {
	Repo        store.Repository
	Hasher      Hasher
	Tokens      TokenCodec
	Notifier    Notifier
	Revocations session.Revocations
	Clock       util.Clock
	Logger      *slog.Logger
}

// Service provides email/password authentication
type Service struct {
	repo        store.Repository
	hasher      Hasher
	tokens      TokenCodec
	notifier    Notifier
	revocations session.Revocations
	clock       util.Clock
	logger      *slog.Logger
}

func NewService(opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = util.SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Revocations == nil {
		opts.Revocations = session.NewStoreRevocations(opts.Repo, opts.Clock)
	}
	return &Service{
		repo:        opts.Repo,
		hasher:      opts.Hasher,
		tokens:      opts.Tokens,
		notifier:    opts.Notifier,
		revocations: opts.Revocations,
		clock:       opts.Clock,
		logger:      opts.Logger,
	}
}

// Session is an issued bearer token together with the account it belongs to.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      store.User
}

// Principal is the caller behind a validated session. Role comes from the
// stored account, not from the token.
type Principal struct {
	UserID    string
	Email     string
	Role      rbac.Role
	TokenID   string
	ExpiresAt time.Time
}

func (p Principal) Actor() rbac.Actor {
	return rbac.Actor{UserID: p.UserID, Role: p.Role}
}

type RegisterRequest struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperr.BadRequest(fmt.Sprintf("Password must be at least %d characters long", minPasswordLength))
	}
	return nil
}

// Register creates a pending account and mails a verification code. The
// account is kept when the mail fails; ResendVerification recovers it.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (store.User, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return store.User{}, apperr.BadRequest("Email and password are required")
	}
	if err := validatePassword(req.Password); err != nil {
		return store.User{}, err
	}

	if _, err := s.repo.GetUserByEmail(ctx, email); err == nil {
		return store.User{}, apperr.Conflict("User with this email already exists")
	} else if !errors.Is(err, store.ErrNotFound) {
		return store.User{}, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return store.User{}, err
	}

	now := s.clock.Now()
	code := util.NewCode(verificationCodeLength)
	expiresAt := now.Add(verificationTTL)
	user := store.User{
		ID:                    util.NewID(),
		Email:                 email,
		PasswordHash:          hash,
		FirstName:             strings.TrimSpace(req.FirstName),
		LastName:              strings.TrimSpace(req.LastName),
		Role:                  store.RoleUser,
		Status:                store.UserPending,
		VerificationCode:      &code,
		VerificationExpiresAt: &expiresAt,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return store.User{}, apperr.Conflict("User with this email already exists")
		}
		return store.User{}, err
	}

	if !s.notifier.SendVerificationCode(ctx, email, code) {
		s.logger.Warn("verification code not delivered", "user_id", user.ID)
		return store.User{}, apperr.BadRequest("Failed to send verification email. Please request a new code.")
	}
	return user, nil
}

// VerifyEmail activates the account when the code matches and returns a
// fresh session.
func (s *Service) VerifyEmail(ctx context.Context, email, code string) (Session, error) {
	user, err := s.userByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return Session{}, err
	}
	if user.IsEmailVerified {
		return Session{}, apperr.BadRequest("Email already verified")
	}
	if user.VerificationCode == nil || !strings.EqualFold(*user.VerificationCode, strings.TrimSpace(code)) {
		return Session{}, apperr.BadRequest("Invalid verification code")
	}
	now := s.clock.Now()
	if user.VerificationExpiresAt == nil || now.After(*user.VerificationExpiresAt) {
		return Session{}, apperr.BadRequest("Verification code has expired")
	}

	user.IsEmailVerified = true
	user.VerificationCode = nil
	user.VerificationExpiresAt = nil
	if user.Status == store.UserPending {
		user.Status = store.UserActive
	}
	user.UpdatedAt = now
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return Session{}, err
	}

	if user.IsBlocked() {
		return Session{}, apperr.Forbidden(blockedMessage(user))
	}
	return s.issueSession(user)
}

func (s *Service) ResendVerification(ctx context.Context, email string) error {
	user, err := s.userByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if user.IsEmailVerified {
		return apperr.BadRequest("Email already verified")
	}

	now := s.clock.Now()
	code := util.NewCode(verificationCodeLength)
	expiresAt := now.Add(verificationTTL)
	user.VerificationCode = &code
	user.VerificationExpiresAt = &expiresAt
	user.UpdatedAt = now
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return err
	}

	if !s.notifier.SendVerificationCode(ctx, user.Email, code) {
		return apperr.BadRequest("Failed to send verification email. Please try again later.")
	}
	return nil
}

func (s *Service) userByEmail(ctx context.Context, email string) (store.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return store.User{}, apperr.Unauthorized("User not found")
	}
	return user, err
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, apperr.Unauthorized("Invalid credentials")
	}
	if err != nil {
		return Session{}, err
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return Session{}, apperr.Unauthorized("Invalid credentials")
	}
	if user.IsBlocked() {
		return Session{}, apperr.Forbidden(blockedMessage(user))
	}
	if !user.IsEmailVerified {
		return Session{}, apperr.Forbidden("Please verify your email first")
	}
	if user.Status != store.UserActive {
		return Session{}, apperr.Forbidden("Account is not active")
	}
	return s.issueSession(user)
}

func blockedMessage(user store.User) string {
	if user.BlockReasonForUser != nil && *user.BlockReasonForUser != "" {
		return fmt.Sprintf("Your account has been blocked. Reason: %s. Please contact support.", *user.BlockReasonForUser)
	}
	return "Your account has been blocked. Please contact support."
}

func (s *Service) issueSession(user store.User) (Session, error) {
	token, err := s.tokens.Issue(auth.Claims{
		Email:    user.Email,
		Role:     user.Role,
		Verified: user.IsEmailVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: user.ID,
			ID:      util.NewID(),
		},
	})
	if err != nil {
		return Session{}, err
	}
	claims, _ := s.tokens.Decode(token)
	return Session{Token: token, ExpiresAt: claims.ExpiresAtTime(), User: user}, nil
}

// Logout revokes the token id until the token's own expiry. Tokens without
// an id or expiry carry nothing to revoke.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, ok := s.tokens.Decode(token)
	if !ok || claims.TokenID() == "" || claims.ExpiresAt == nil {
		return nil
	}
	return s.revocations.Revoke(ctx, claims.TokenID(), claims.ExpiresAtTime())
}

// ValidateSession is the gate in front of every protected operation.
func (s *Service) ValidateSession(ctx context.Context, token string) (Principal, error) {
	if token == "" {
		return Principal{}, apperr.Unauthorized("Missing session token")
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return Principal{}, apperr.Unauthorized("Invalid or expired session")
	}
	revoked, err := s.revocations.IsRevoked(ctx, claims.TokenID())
	if err != nil {
		return Principal{}, err
	}
	if revoked {
		return Principal{}, apperr.Unauthorized("Session has been revoked")
	}

	user, err := s.repo.GetUserByID(ctx, claims.UserID())
	if errors.Is(err, store.ErrNotFound) {
		return Principal{}, apperr.Unauthorized("User not found")
	}
	if err != nil {
		return Principal{}, err
	}
	if user.IsBlocked() {
		return Principal{}, apperr.Unauthorized("Account is blocked")
	}
	if !user.CanAuthenticate() {
		return Principal{}, apperr.Unauthorized("Account is not active")
	}

	return Principal{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      rbac.Normalize(user.Role),
		TokenID:   claims.TokenID(),
		ExpiresAt: claims.ExpiresAtTime(),
	}, nil
}

// Authorize is the role gate evaluated after ValidateSession.
func (s *Service) Authorize(principal Principal, action rbac.Action) error {
	return rbac.Require(principal.Actor(), action)
}

// ForgotPassword mails a reset link. Unknown addresses succeed silently so
// the endpoint does not reveal which emails are registered.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if user.IsBlocked() {
		return apperr.BadRequest("Account is blocked")
	}

	now := s.clock.Now()
	token := util.NewToken(resetTokenBytes)
	expiresAt := now.Add(resetTTL)
	user.PasswordResetToken = &token
	user.PasswordResetExpiresAt = &expiresAt
	user.UpdatedAt = now
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return err
	}

	if !s.notifier.SendPasswordReset(ctx, user.Email, token) {
		return apperr.BadRequest("Failed to send password reset email. Please try again later.")
	}
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if strings.TrimSpace(token) == "" {
		return apperr.BadRequest("Invalid or expired reset token")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	user, err := s.repo.GetUserByResetToken(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.BadRequest("Invalid or expired reset token")
	}
	if err != nil {
		return err
	}
	now := s.clock.Now()
	if user.PasswordResetExpiresAt == nil || now.After(*user.PasswordResetExpiresAt) {
		return apperr.BadRequest("Reset token has expired")
	}
	if user.IsBlocked() {
		return apperr.BadRequest("Account is blocked")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.PasswordResetToken = nil
	user.PasswordResetExpiresAt = nil
	user.UpdatedAt = now
	return s.repo.UpdateUser(ctx, user)
}

func (s *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(currentPassword, user.PasswordHash) {
		return apperr.BadRequest("Current password is incorrect")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.UpdatedAt = s.clock.Now()
	return s.repo.UpdateUser(ctx, user)
}

func (s *Service) Profile(ctx context.Context, userID string) (store.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return store.User{}, apperr.NotFound("User not found")
	}
	return user, err
}

// EnsureAdmin creates an active, verified administrator unless the email is
// already registered. It reports whether an account was created.
func (s *Service) EnsureAdmin(ctx context.Context, email, password, firstName, lastName string) (store.User, bool, error) {
	email = normalizeEmail(email)
	existing, err := s.repo.GetUserByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return store.User{}, false, err
	}
	if err := validatePassword(password); err != nil {
		return store.User{}, false, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return store.User{}, false, err
	}
	now := s.clock.Now()
	admin := store.User{
		ID:              util.NewID(),
		Email:           email,
		PasswordHash:    hash,
		FirstName:       firstName,
		LastName:        lastName,
		Role:            store.RoleAdmin,
		Status:          store.UserActive,
		IsEmailVerified: true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.CreateUser(ctx, admin); err != nil {
		return store.User{}, false, err
	}
	s.logger.Info("administrator account created", "email", email)
	return admin, true, nil
}
