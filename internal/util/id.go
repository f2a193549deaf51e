package util

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// NewID returns a random UUID string, used for every entity primary key
// and for session token ids.
func NewID() string {
	return uuid.NewString()
}

// NewToken returns a random hex string of 2*n characters. Used for
// password reset tokens, which are unrelated to session tokens.
func NewToken(n int) string {
	bytes := make([]byte, n)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewCode returns an uppercase alphanumeric code of the given length
// without the easily confused characters 0, O, 1 and I.
func NewCode(length int) string {
	bytes := make([]byte, length)
	_, _ = rand.Read(bytes)
	var b strings.Builder
	b.Grow(length)
	for _, v := range bytes {
		b.WriteByte(codeAlphabet[int(v)%len(codeAlphabet)])
	}
	return b.String()
}
