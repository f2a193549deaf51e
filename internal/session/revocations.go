// Package session holds the revocation set consulted on every authenticated
// request: token ids that were logged out before their expiry.
package session

import (
	"context"
	"fmt"
	"time"

	"ideaflow/api/internal/store"
	"ideaflow/api/internal/util"
)

type Revocations interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	// Prune drops entries whose token has expired anyway.
	Prune(ctx context.Context) (int64, error)
}

// StoreRevocations keeps the set in the relational store next to the users.
type StoreRevocations struct {
	repo  store.Repository
	clock util.Clock
}

func NewStoreRevocations(repo store.Repository, clock util.Clock) *StoreRevocations {
	if clock == nil {
		clock = util.SystemClock{}
	}
	return &StoreRevocations{repo: repo, clock: clock}
}

func (r *StoreRevocations) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if err := r.repo.RevokeToken(ctx, jti, expiresAt); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (r *StoreRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return r.repo.IsTokenRevoked(ctx, jti)
}

func (r *StoreRevocations) Prune(ctx context.Context) (int64, error) {
	return r.repo.PruneRevokedTokens(ctx, r.clock.Now())
}
