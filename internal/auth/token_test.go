package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"ideaflow/api/internal/util"
)

func newTestCodec() (*JWTCodec, *util.ManualClock) {
	clock := util.NewManualClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	return NewJWTCodec("secret", time.Hour, clock), clock
}

func testClaims() Claims {
	return Claims{
		Email:    "avery@example.com",
		Role:     "user",
		Verified: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: "user-1",
			ID:      "jti-1",
		},
	}
}

func TestIssueAndParseToken(t *testing.T) {
	codec, clock := newTestCodec()
	issued, err := codec.Issue(testClaims())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	claims, err := codec.Parse(issued)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.UserID() != "user-1" || claims.Role != "user" || claims.TokenID() != "jti-1" || !claims.Verified {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if want := clock.Now().Add(time.Hour); !claims.ExpiresAtTime().Equal(want) {
		t.Fatalf("expires at %s, want %s", claims.ExpiresAtTime(), want)
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	codec, clock := newTestCodec()
	issued, err := codec.Issue(testClaims())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	clock.Advance(2 * time.Hour)
	if _, err := codec.Parse(issued); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestParseTokenRejectsForeignSignature(t *testing.T) {
	codec, clock := newTestCodec()
	other := NewJWTCodec("other-secret", time.Hour, clock)
	issued, err := other.Issue(testClaims())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if _, err := codec.Parse(issued); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestDecodeIgnoresSignatureAndExpiry(t *testing.T) {
	codec, clock := newTestCodec()
	other := NewJWTCodec("other-secret", time.Hour, clock)
	issued, err := other.Issue(testClaims())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	clock.Advance(48 * time.Hour)

	claims, ok := codec.Decode(issued)
	if !ok {
		t.Fatal("Decode() should accept a well-formed token")
	}
	if claims.TokenID() != "jti-1" {
		t.Fatalf("unexpected jti %q", claims.TokenID())
	}
}

func TestDecodeMalformed(t *testing.T) {
	codec, _ := newTestCodec()
	for _, input := range []string{"", "garbage", strings.Repeat("a.", 3)} {
		if _, ok := codec.Decode(input); ok {
			t.Fatalf("Decode(%q) should fail", input)
		}
	}
}

func TestBcryptHasher(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)
	digest, err := hasher.Hash("correct horse")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if digest == "correct horse" {
		t.Fatal("digest must not equal the plaintext")
	}
	if !hasher.Verify("correct horse", digest) {
		t.Fatal("Verify() should accept the right password")
	}
	if hasher.Verify("battery staple", digest) {
		t.Fatal("Verify() should reject the wrong password")
	}
}
