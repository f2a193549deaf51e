package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{name: "no rows", err: sql.ErrNoRows, want: ErrNotFound},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}, want: ErrConflict},
		{name: "foreign key violation", err: fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23503"}), want: ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := wrap("op", tc.err); !errors.Is(got, tc.want) {
				t.Fatalf("wrap(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}

	other := errors.New("connection reset")
	if got := mapError(other); got != other {
		t.Fatalf("unexpected mapping for unrelated error: %v", got)
	}
	if wrap("op", nil) != nil {
		t.Fatal("wrap(nil) should be nil")
	}
}

func TestLockQueriesTakeRowLocks(t *testing.T) {
	if !strings.HasSuffix(topicLockQuery, "FOR UPDATE OF t") {
		t.Fatalf("topic lock query does not lock the topic row: %s", topicLockQuery)
	}
	if !strings.Contains(topicLockQuery, "WHERE t.id=$1") {
		t.Fatalf("topic lock query is not keyed by id: %s", topicLockQuery)
	}
}
