package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ideaflow/api/internal/util"
)

// Claims is the session token payload: who, which role, whether the email
// was verified at issue time and the unique token id used for revocation.
type Claims struct {
	Email    string `json:"email"`
	Role     string `json:"role"`
	Verified bool   `json:"verified"`
	jwt.RegisteredClaims
}

func (c Claims) UserID() string { return c.Subject }
func (c Claims) TokenID() string { return c.ID }

// ExpiresAtTime returns the expiry, or the zero time when the claim is absent.
func (c Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)

// JWTCodec issues and reads HS256 session tokens.
type JWTCodec struct {
	secret []byte
	ttl    time.Duration
	clock  util.Clock
}

func NewJWTCodec(secret string, ttl time.Duration, clock util.Clock) *JWTCodec {
	if clock == nil {
		clock = util.SystemClock{}
	}
	return &JWTCodec{secret: []byte(secret), ttl: ttl, clock: clock}
}

// Issue signs claims. IssuedAt and ExpiresAt are filled from the clock and
// the configured ttl when unset.
func (c *JWTCodec) Issue(claims Claims) (string, error) {
	now := c.clock.Now()
	if claims.IssuedAt == nil {
		claims.IssuedAt = jwt.NewNumericDate(now)
	}
	if claims.ExpiresAt == nil {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(c.ttl))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature and expiry.
func (c *JWTCodec) Parse(token string) (Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpiredToken
		}
		return Claims{}, ErrInvalidToken
	}
	if !parsed.Valid || claims.Subject == "" || claims.ID == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

// Decode reads the payload without checking the signature or expiry. It
// never fails loudly: malformed input yields ok == false.
func (c *JWTCodec) Decode(token string) (Claims, bool) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Claims{}, false
	}
	return claims, true
}
