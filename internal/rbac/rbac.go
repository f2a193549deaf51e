package rbac

import "ideaflow/api/internal/apperr"

type Role string
type Action string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

const (
	// Any authenticated account.
	ActionReadProfile    Action = "profile:read"
	ActionChangePassword Action = "password:change"
	ActionReadTopics     Action = "topics:read"
	ActionEditOwnTopic   Action = "topics:edit"
	ActionCreateIdea     Action = "ideas:create"
	ActionReadIdeas      Action = "ideas:read"
	ActionEditOwnIdea    Action = "ideas:edit"
	ActionReact          Action = "ideas:react"
	ActionComment        Action = "ideas:comment"
	ActionReadOwnStats   Action = "ideas:stats"

	// Regular users only; admins open topics directly.
	ActionSuggestTopic Action = "topics:suggest"

	// Admin only.
	ActionCreateTopic      Action = "topics:create"
	ActionListAllTopics    Action = "topics:list-all"
	ActionModerateTopic    Action = "topics:moderate"
	ActionAdminIdeas       Action = "ideas:admin"
	ActionAdminComments    Action = "comments:admin"
	ActionReadUserStats    Action = "ideas:user-stats"
	ActionManageUsers      Action = "users:manage"
	ActionReadSupport      Action = "support:read"
	ActionAuditCounters    Action = "ideas:audit"
	ActionReadAdminProfile Action = "profile:admin"
)

var policy = map[Action][]Role{
	ActionReadProfile:    {RoleUser, RoleAdmin},
	ActionChangePassword: {RoleUser, RoleAdmin},
	ActionReadTopics:     {RoleUser, RoleAdmin},
	ActionEditOwnTopic:   {RoleUser, RoleAdmin},
	ActionCreateIdea:     {RoleUser, RoleAdmin},
	ActionReadIdeas:      {RoleUser, RoleAdmin},
	ActionEditOwnIdea:    {RoleUser, RoleAdmin},
	ActionReact:          {RoleUser, RoleAdmin},
	ActionComment:        {RoleUser, RoleAdmin},
	ActionReadOwnStats:   {RoleUser, RoleAdmin},

	ActionSuggestTopic: {RoleUser},

	ActionCreateTopic:      {RoleAdmin},
	ActionListAllTopics:    {RoleAdmin},
	ActionModerateTopic:    {RoleAdmin},
	ActionAdminIdeas:       {RoleAdmin},
	ActionAdminComments:    {RoleAdmin},
	ActionReadUserStats:    {RoleAdmin},
	ActionManageUsers:      {RoleAdmin},
	ActionReadSupport:      {RoleAdmin},
	ActionAuditCounters:    {RoleAdmin},
	ActionReadAdminProfile: {RoleAdmin},
}

// Allowed reports whether role is a member of the allowed-role set declared
// for action. Unknown actions are denied.
func Allowed(action Action, role Role) bool {
	for _, allowed := range policy[action] {
		if allowed == role {
			return true
		}
	}
	return false
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleUser, RoleAdmin:
		return Role(role)
	default:
		return RoleUser
	}
}

// Actor is the authenticated caller as seen by the services.
type Actor struct {
	UserID string
	Role   Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Owns reports whether the actor is the owner identified by ownerID.
func (a Actor) Owns(ownerID string) bool {
	return a.UserID != "" && a.UserID == ownerID
}

func (a Actor) Can(action Action) bool {
	return Allowed(action, a.Role)
}

// Require returns a Forbidden error unless the actor's role is allowed to
// perform action.
func Require(actor Actor, action Action) error {
	if !actor.Can(action) {
		return apperr.Forbidden("Insufficient permissions")
	}
	return nil
}
