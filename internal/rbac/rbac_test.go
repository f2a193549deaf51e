package rbac

import (
	"errors"
	"testing"

	"ideaflow/api/internal/apperr"
)

func TestAllowed(t *testing.T) {
	cases := []struct {
		name   string
		role   Role
		action Action
		allow  bool
	}{
		{name: "user suggest topic", role: RoleUser, action: ActionSuggestTopic, allow: true},
		{name: "admin suggest topic", role: RoleAdmin, action: ActionSuggestTopic, allow: false},
		{name: "user create topic", role: RoleUser, action: ActionCreateTopic, allow: false},
		{name: "admin create topic", role: RoleAdmin, action: ActionCreateTopic, allow: true},
		{name: "user react", role: RoleUser, action: ActionReact, allow: true},
		{name: "user moderate", role: RoleUser, action: ActionModerateTopic, allow: false},
		{name: "admin manage users", role: RoleAdmin, action: ActionManageUsers, allow: true},
		{name: "user manage users", role: RoleUser, action: ActionManageUsers, allow: false},
		{name: "unknown action", role: RoleAdmin, action: Action("nope"), allow: false},
		{name: "unknown role", role: Role("guest"), action: ActionReadIdeas, allow: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Allowed(tc.action, tc.role); got != tc.allow {
				t.Fatalf("Allowed(%q, %q) = %v, want %v", tc.action, tc.role, got, tc.allow)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	if Normalize("admin") != RoleAdmin {
		t.Fatal("admin should normalize to admin")
	}
	if Normalize("superuser") != RoleUser {
		t.Fatal("unknown roles should normalize to user")
	}
}

func TestActorOwns(t *testing.T) {
	actor := Actor{UserID: "u-1", Role: RoleUser}
	if !actor.Owns("u-1") || actor.Owns("u-2") {
		t.Fatal("Owns should compare user ids")
	}
	if (Actor{}).Owns("") {
		t.Fatal("anonymous actor owns nothing")
	}
}

func TestRequire(t *testing.T) {
	user := Actor{UserID: "u-1", Role: RoleUser}
	if err := Require(user, ActionReact); err != nil {
		t.Fatalf("user should be allowed to react: %v", err)
	}
	if err := Require(user, ActionModerateTopic); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}
