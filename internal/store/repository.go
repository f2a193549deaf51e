package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("store: not found")
	ErrConflict = errors.New("store: conflict")
)

var (
	_ Repository = (*PostgresStore)(nil)
	_ Repository = (*MemoryStore)(nil)
)

// Repository is the transactional contract the services are written against.
// Calls made on the Repository handed to WithTx's callback share one
// transaction; a nested WithTx joins the outer one.
type Repository interface {
	WithTx(ctx context.Context, fn func(Repository) error) error
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, user User) error
	GetUserByID(ctx context.Context, userID string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByResetToken(ctx context.Context, token string) (User, error)
	UpdateUser(ctx context.Context, user User) error
	ListUsers(ctx context.Context) ([]User, error)

	RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
	PruneRevokedTokens(ctx context.Context, before time.Time) (int64, error)

	CreateTopic(ctx context.Context, topic Topic) error
	GetTopic(ctx context.Context, topicID string) (Topic, error)
	// GetTopicForUpdate reads the topic and holds its row lock until the
	// surrounding transaction ends.
	GetTopicForUpdate(ctx context.Context, topicID string) (Topic, error)
	ListTopics(ctx context.Context, filter TopicFilter) ([]Topic, error)
	UpdateTopic(ctx context.Context, topic Topic) error
	DeleteTopic(ctx context.Context, topicID string) error
	AdjustTopicIdeaCount(ctx context.Context, topicID string, delta int) error

	CreateIdea(ctx context.Context, idea Idea) error
	GetIdea(ctx context.Context, ideaID string) (Idea, error)
	// GetIdeaForUpdate reads the idea and holds its row lock until the
	// surrounding transaction ends.
	GetIdeaForUpdate(ctx context.Context, ideaID string) (Idea, error)
	ListIdeasByTopic(ctx context.Context, topicID string) ([]Idea, error)
	ListIdeas(ctx context.Context) ([]Idea, error)
	ListIdeasByAuthor(ctx context.Context, authorID string) ([]Idea, error)
	UpdateIdea(ctx context.Context, idea Idea) error
	DeleteIdea(ctx context.Context, ideaID string) error
	AdjustIdeaReactions(ctx context.Context, ideaID string, likesDelta, dislikesDelta int) error
	AdjustIdeaCommentCount(ctx context.Context, ideaID string, delta int) error

	GetReaction(ctx context.Context, userID, ideaID string) (Reaction, error)
	InsertReaction(ctx context.Context, reaction Reaction) error
	UpdateReactionType(ctx context.Context, reactionID, reactionType string) error
	DeleteReaction(ctx context.Context, reactionID string) error
	CountReactions(ctx context.Context, ideaID string) (ReactionCounts, error)

	CreateComment(ctx context.Context, comment Comment) error
	GetComment(ctx context.Context, commentID string) (Comment, error)
	ListCommentsByIdea(ctx context.Context, ideaID string) ([]Comment, error)
	ListComments(ctx context.Context) ([]Comment, error)
	// DeleteComment removes the comment and its reply subtree and reports
	// how many rows went away.
	DeleteComment(ctx context.Context, commentID string) (int, error)

	CreateSupportMessage(ctx context.Context, message SupportMessage) error
	GetSupportMessage(ctx context.Context, messageID string) (SupportMessage, error)
	ListSupportMessages(ctx context.Context) ([]SupportMessage, error)
	MarkSupportMessageRead(ctx context.Context, messageID string) error
}
