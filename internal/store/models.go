package store

import (
	"time"

	"github.com/lib/pq"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	UserPending = "pending"
	UserActive  = "active"
	UserBlocked = "blocked"

	TopicPending  = "pending"
	TopicApproved = "approved"
	TopicRejected = "rejected"

	PrivacyPublic  = "public"
	PrivacyPrivate = "private"

	ReactionLike    = "like"
	ReactionDislike = "dislike"
)

type User struct {
	ID                     string     `db:"id"`
	Email                  string     `db:"email"`
	PasswordHash           string     `db:"password_hash"`
	FirstName              string     `db:"first_name"`
	LastName               string     `db:"last_name"`
	Role                   string     `db:"role"`
	Status                 string     `db:"status"`
	IsEmailVerified        bool       `db:"is_email_verified"`
	VerificationCode       *string    `db:"email_verification_code"`
	VerificationExpiresAt  *time.Time `db:"email_verification_expires_at"`
	PasswordResetToken     *string    `db:"password_reset_token"`
	PasswordResetExpiresAt *time.Time `db:"password_reset_expires_at"`
	BlockReason            *string    `db:"block_reason"`
	BlockReasonForUser     *string    `db:"block_reason_for_user"`
	BlockedAt              *time.Time `db:"blocked_at"`
	CreatedAt              time.Time  `db:"created_at"`
	UpdatedAt              time.Time  `db:"updated_at"`
}

func (u User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u User) IsBlocked() bool { return u.Status == UserBlocked }

// CanAuthenticate reports whether the account may hold a live session.
func (u User) CanAuthenticate() bool {
	return u.Status == UserActive && u.IsEmailVerified
}

type Topic struct {
	ID          string     `db:"id"`
	Title       string     `db:"title"`
	Description string     `db:"description"`
	Status      string     `db:"status"`
	Privacy     string     `db:"privacy"`
	Deadline    *time.Time `db:"deadline"`
	IdeaCount   int        `db:"idea_count"`
	CreatedBy   string     `db:"created_by"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`

	// Joined for display.
	CreatorFirstName string `db:"creator_first_name"`
	CreatorLastName  string `db:"creator_last_name"`
}

// IsExpired is false for topics without a deadline.
func (t Topic) IsExpired(now time.Time) bool {
	return t.Deadline != nil && now.After(*t.Deadline)
}

func (t Topic) CanAddIdeas(now time.Time) bool {
	return t.Status == TopicApproved && !t.IsExpired(now)
}

func (t Topic) VisibleToPublic() bool {
	return t.Status == TopicApproved && t.Privacy == PrivacyPublic
}

type TopicFilter struct {
	Status  string
	Privacy string
}

type Idea struct {
	ID           string         `db:"id"`
	TopicID      string         `db:"topic_id"`
	AuthorID     string         `db:"author_id"`
	Title        string         `db:"title"`
	Description  string         `db:"description"`
	Images       pq.StringArray `db:"images"`
	Likes        int            `db:"likes"`
	Dislikes     int            `db:"dislikes"`
	CommentCount int            `db:"comment_count"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`

	AuthorFirstName string `db:"author_first_name"`
	AuthorLastName  string `db:"author_last_name"`
	TopicTitle      string `db:"topic_title"`
	TopicStatus     string `db:"topic_status"`
	TopicPrivacy    string `db:"topic_privacy"`
}

func (i Idea) Rating() int { return i.Likes - i.Dislikes }

type Reaction struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	IdeaID    string    `db:"idea_id"`
	Type      string    `db:"type"`
	CreatedAt time.Time `db:"created_at"`
}

type ReactionCounts struct {
	Likes    int `db:"likes"`
	Dislikes int `db:"dislikes"`
}

type Comment struct {
	ID        string    `db:"id"`
	IdeaID    string    `db:"idea_id"`
	ParentID  *string   `db:"parent_id"`
	AuthorID  string    `db:"author_id"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`

	AuthorFirstName string `db:"author_first_name"`
	AuthorLastName  string `db:"author_last_name"`
	IdeaTitle       string `db:"idea_title"`
	TopicID         string `db:"topic_id"`
	TopicTitle      string `db:"topic_title"`
}

type SupportMessage struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	Message     string    `db:"message"`
	BlockReason *string   `db:"block_reason"`
	IsRead      bool      `db:"is_read"`
	CreatedAt   time.Time `db:"created_at"`

	UserEmail     string `db:"user_email"`
	UserFirstName string `db:"user_first_name"`
	UserLastName  string `db:"user_last_name"`
}
