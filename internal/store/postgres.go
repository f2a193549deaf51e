package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

type queryer interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

type PostgresStore struct {
	db   *sqlx.DB
	q    queryer
	inTx bool
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db, q: db}
}

func (s *PostgresStore) DB() *sqlx.DB {
	return s.db
}

func (s *PostgresStore) WithTx(ctx context.Context, fn func(Repository) error) error {
	if s.inTx {
		return fn(s)
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(&PostgresStore{db: s.db, q: tx, inTx: true}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", mapError(err))
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// mapError folds driver errors into the store's sentinels so callers never
// see raw constraint failures.
func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
		case "23503":
			return fmt.Errorf("%w: %s", ErrNotFound, pgErr.ConstraintName)
		}
	}
	return err
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, mapError(err))
}

func requireAffected(op string, result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

const userColumns = `
	id, email, password_hash, first_name, last_name, role, status, is_email_verified,
	email_verification_code, email_verification_expires_at,
	password_reset_token, password_reset_expires_at,
	block_reason, block_reason_for_user, blocked_at, created_at, updated_at`

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := sqlx.NamedExecContext(ctx, s.q, `
		INSERT INTO users (`+userColumns+`)
		VALUES (
			:id, :email, :password_hash, :first_name, :last_name, :role, :status, :is_email_verified,
			:email_verification_code, :email_verification_expires_at,
			:password_reset_token, :password_reset_expires_at,
			:block_reason, :block_reason_for_user, :blocked_at, :created_at, :updated_at
		)
	`, user)
	return wrap("insert user", err)
}

func (s *PostgresStore) getUser(ctx context.Context, op, where string, arg any) (User, error) {
	var user User
	err := s.q.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	if err != nil {
		return User{}, wrap(op, err)
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	return s.getUser(ctx, "get user", "id=$1", userID)
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.getUser(ctx, "get user by email", "email=$1", email)
}

func (s *PostgresStore) GetUserByResetToken(ctx context.Context, token string) (User, error) {
	return s.getUser(ctx, "get user by reset token", "password_reset_token=$1", token)
}

func (s *PostgresStore) UpdateUser(ctx context.Context, user User) error {
	result, err := sqlx.NamedExecContext(ctx, s.q, `
		UPDATE users SET
			email=:email,
			password_hash=:password_hash,
			first_name=:first_name,
			last_name=:last_name,
			role=:role,
			status=:status,
			is_email_verified=:is_email_verified,
			email_verification_code=:email_verification_code,
			email_verification_expires_at=:email_verification_expires_at,
			password_reset_token=:password_reset_token,
			password_reset_expires_at=:password_reset_expires_at,
			block_reason=:block_reason,
			block_reason_for_user=:block_reason_for_user,
			blocked_at=:blocked_at,
			updated_at=:updated_at
		WHERE id=:id
	`, user)
	if err != nil {
		return wrap("update user", err)
	}
	return requireAffected("update user", result)
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]User, error) {
	users := make([]User, 0)
	if err := s.q.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id`); err != nil {
		return nil, wrap("list users", err)
	}
	return users, nil
}

func (s *PostgresStore) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO revoked_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, expiresAt)
	return wrap("revoke token", err)
}

func (s *PostgresStore) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	if err := s.q.GetContext(ctx, &revoked, `SELECT EXISTS(SELECT 1 FROM revoked_tokens WHERE jti=$1)`, jti); err != nil {
		return false, wrap("check revoked token", err)
	}
	return revoked, nil
}

func (s *PostgresStore) PruneRevokedTokens(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.q.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at < $1`, before)
	if err != nil {
		return 0, wrap("prune revoked tokens", err)
	}
	return result.RowsAffected()
}

const topicSelect = `
	SELECT t.id, t.title, t.description, t.status, t.privacy, t.deadline, t.idea_count,
	       t.created_by, t.created_at, t.updated_at,
	       u.first_name AS creator_first_name, u.last_name AS creator_last_name
	FROM topics t
	JOIN users u ON u.id = t.created_by`

func (s *PostgresStore) CreateTopic(ctx context.Context, topic Topic) error {
	_, err := sqlx.NamedExecContext(ctx, s.q, `
		INSERT INTO topics (id, title, description, status, privacy, deadline, idea_count, created_by, created_at, updated_at)
		VALUES (:id, :title, :description, :status, :privacy, :deadline, :idea_count, :created_by, :created_at, :updated_at)
	`, topic)
	return wrap("insert topic", err)
}

func (s *PostgresStore) GetTopic(ctx context.Context, topicID string) (Topic, error) {
	var topic Topic
	if err := s.q.GetContext(ctx, &topic, topicSelect+` WHERE t.id=$1`, topicID); err != nil {
		return Topic{}, wrap("get topic", err)
	}
	return topic, nil
}

const topicLockQuery = topicSelect + ` WHERE t.id=$1 FOR UPDATE OF t`

func (s *PostgresStore) GetTopicForUpdate(ctx context.Context, topicID string) (Topic, error) {
	var topic Topic
	if err := s.q.GetContext(ctx, &topic, topicLockQuery, topicID); err != nil {
		return Topic{}, wrap("lock topic", err)
	}
	return topic, nil
}

func (s *PostgresStore) ListTopics(ctx context.Context, filter TopicFilter) ([]Topic, error) {
	topics := make([]Topic, 0)
	err := s.q.SelectContext(ctx, &topics, topicSelect+`
		WHERE ($1 = '' OR t.status = $1)
		  AND ($2 = '' OR t.privacy = $2)
		ORDER BY t.created_at DESC, t.id
	`, filter.Status, filter.Privacy)
	if err != nil {
		return nil, wrap("list topics", err)
	}
	return topics, nil
}

func (s *PostgresStore) UpdateTopic(ctx context.Context, topic Topic) error {
	result, err := sqlx.NamedExecContext(ctx, s.q, `
		UPDATE topics SET
			title=:title,
			description=:description,
			status=:status,
			privacy=:privacy,
			deadline=:deadline,
			updated_at=:updated_at
		WHERE id=:id
	`, topic)
	if err != nil {
		return wrap("update topic", err)
	}
	return requireAffected("update topic", result)
}

func (s *PostgresStore) DeleteTopic(ctx context.Context, topicID string) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM topics WHERE id=$1`, topicID)
	if err != nil {
		return wrap("delete topic", err)
	}
	return requireAffected("delete topic", result)
}

func (s *PostgresStore) AdjustTopicIdeaCount(ctx context.Context, topicID string, delta int) error {
	result, err := s.q.ExecContext(ctx, `
		UPDATE topics SET idea_count = GREATEST(idea_count + $2, 0)
		WHERE id=$1
	`, topicID, delta)
	if err != nil {
		return wrap("adjust topic idea count", err)
	}
	return requireAffected("adjust topic idea count", result)
}

const ideaSelect = `
	SELECT i.id, i.topic_id, i.author_id, i.title, i.description, i.images,
	       i.likes, i.dislikes, i.comment_count, i.created_at, i.updated_at,
	       u.first_name AS author_first_name, u.last_name AS author_last_name,
	       t.title AS topic_title, t.status AS topic_status, t.privacy AS topic_privacy
	FROM ideas i
	JOIN users u ON u.id = i.author_id
	JOIN topics t ON t.id = i.topic_id`

func (s *PostgresStore) CreateIdea(ctx context.Context, idea Idea) error {
	if idea.Images == nil {
		idea.Images = []string{}
	}
	_, err := sqlx.NamedExecContext(ctx, s.q, `
		INSERT INTO ideas (id, topic_id, author_id, title, description, images, likes, dislikes, comment_count, created_at, updated_at)
		VALUES (:id, :topic_id, :author_id, :title, :description, :images, :likes, :dislikes, :comment_count, :created_at, :updated_at)
	`, idea)
	return wrap("insert idea", err)
}

func (s *PostgresStore) GetIdea(ctx context.Context, ideaID string) (Idea, error) {
	var idea Idea
	if err := s.q.GetContext(ctx, &idea, ideaSelect+` WHERE i.id=$1`, ideaID); err != nil {
		return Idea{}, wrap("get idea", err)
	}
	return idea, nil
}

func (s *PostgresStore) GetIdeaForUpdate(ctx context.Context, ideaID string) (Idea, error) {
	var idea Idea
	if err := s.q.GetContext(ctx, &idea, ideaSelect+` WHERE i.id=$1 FOR UPDATE OF i`, ideaID); err != nil {
		return Idea{}, wrap("lock idea", err)
	}
	return idea, nil
}

func (s *PostgresStore) listIdeas(ctx context.Context, op, where string, args ...any) ([]Idea, error) {
	ideas := make([]Idea, 0)
	if err := s.q.SelectContext(ctx, &ideas, ideaSelect+where+` ORDER BY i.created_at DESC, i.id`, args...); err != nil {
		return nil, wrap(op, err)
	}
	return ideas, nil
}

func (s *PostgresStore) ListIdeasByTopic(ctx context.Context, topicID string) ([]Idea, error) {
	return s.listIdeas(ctx, "list ideas by topic", ` WHERE i.topic_id=$1`, topicID)
}

func (s *PostgresStore) ListIdeas(ctx context.Context) ([]Idea, error) {
	return s.listIdeas(ctx, "list ideas", "")
}

func (s *PostgresStore) ListIdeasByAuthor(ctx context.Context, authorID string) ([]Idea, error) {
	return s.listIdeas(ctx, "list ideas by author", ` WHERE i.author_id=$1`, authorID)
}

func (s *PostgresStore) UpdateIdea(ctx context.Context, idea Idea) error {
	if idea.Images == nil {
		idea.Images = []string{}
	}
	result, err := sqlx.NamedExecContext(ctx, s.q, `
		UPDATE ideas SET
			title=:title,
			description=:description,
			images=:images,
			updated_at=:updated_at
		WHERE id=:id
	`, idea)
	if err != nil {
		return wrap("update idea", err)
	}
	return requireAffected("update idea", result)
}

func (s *PostgresStore) DeleteIdea(ctx context.Context, ideaID string) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM ideas WHERE id=$1`, ideaID)
	if err != nil {
		return wrap("delete idea", err)
	}
	return requireAffected("delete idea", result)
}

func (s *PostgresStore) AdjustIdeaReactions(ctx context.Context, ideaID string, likesDelta, dislikesDelta int) error {
	result, err := s.q.ExecContext(ctx, `
		UPDATE ideas SET
			likes = GREATEST(likes + $2, 0),
			dislikes = GREATEST(dislikes + $3, 0)
		WHERE id=$1
	`, ideaID, likesDelta, dislikesDelta)
	if err != nil {
		return wrap("adjust idea reactions", err)
	}
	return requireAffected("adjust idea reactions", result)
}

func (s *PostgresStore) AdjustIdeaCommentCount(ctx context.Context, ideaID string, delta int) error {
	result, err := s.q.ExecContext(ctx, `
		UPDATE ideas SET comment_count = GREATEST(comment_count + $2, 0)
		WHERE id=$1
	`, ideaID, delta)
	if err != nil {
		return wrap("adjust idea comment count", err)
	}
	return requireAffected("adjust idea comment count", result)
}

func (s *PostgresStore) GetReaction(ctx context.Context, userID, ideaID string) (Reaction, error) {
	var reaction Reaction
	err := s.q.GetContext(ctx, &reaction, `
		SELECT id, user_id, idea_id, type, created_at
		FROM user_reactions
		WHERE user_id=$1 AND idea_id=$2
	`, userID, ideaID)
	if err != nil {
		return Reaction{}, wrap("get reaction", err)
	}
	return reaction, nil
}

func (s *PostgresStore) InsertReaction(ctx context.Context, reaction Reaction) error {
	_, err := sqlx.NamedExecContext(ctx, s.q, `
		INSERT INTO user_reactions (id, user_id, idea_id, type, created_at)
		VALUES (:id, :user_id, :idea_id, :type, :created_at)
	`, reaction)
	return wrap("insert reaction", err)
}

func (s *PostgresStore) UpdateReactionType(ctx context.Context, reactionID, reactionType string) error {
	result, err := s.q.ExecContext(ctx, `UPDATE user_reactions SET type=$2 WHERE id=$1`, reactionID, reactionType)
	if err != nil {
		return wrap("update reaction", err)
	}
	return requireAffected("update reaction", result)
}

func (s *PostgresStore) DeleteReaction(ctx context.Context, reactionID string) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM user_reactions WHERE id=$1`, reactionID)
	if err != nil {
		return wrap("delete reaction", err)
	}
	return requireAffected("delete reaction", result)
}

func (s *PostgresStore) CountReactions(ctx context.Context, ideaID string) (ReactionCounts, error) {
	var counts ReactionCounts
	err := s.q.GetContext(ctx, &counts, `
		SELECT
			COUNT(*) FILTER (WHERE type='like')::int AS likes,
			COUNT(*) FILTER (WHERE type='dislike')::int AS dislikes
		FROM user_reactions
		WHERE idea_id=$1
	`, ideaID)
	if err != nil {
		return ReactionCounts{}, wrap("count reactions", err)
	}
	return counts, nil
}

const commentSelect = `
	SELECT c.id, c.idea_id, c.parent_id, c.author_id, c.content, c.created_at,
	       u.first_name AS author_first_name, u.last_name AS author_last_name,
	       i.title AS idea_title, t.id AS topic_id, t.title AS topic_title
	FROM comments c
	JOIN users u ON u.id = c.author_id
	JOIN ideas i ON i.id = c.idea_id
	JOIN topics t ON t.id = i.topic_id`

func (s *PostgresStore) CreateComment(ctx context.Context, comment Comment) error {
	_, err := sqlx.NamedExecContext(ctx, s.q, `
		INSERT INTO comments (id, idea_id, parent_id, author_id, content, created_at)
		VALUES (:id, :idea_id, :parent_id, :author_id, :content, :created_at)
	`, comment)
	return wrap("insert comment", err)
}

func (s *PostgresStore) GetComment(ctx context.Context, commentID string) (Comment, error) {
	var comment Comment
	if err := s.q.GetContext(ctx, &comment, commentSelect+` WHERE c.id=$1`, commentID); err != nil {
		return Comment{}, wrap("get comment", err)
	}
	return comment, nil
}

func (s *PostgresStore) ListCommentsByIdea(ctx context.Context, ideaID string) ([]Comment, error) {
	comments := make([]Comment, 0)
	if err := s.q.SelectContext(ctx, &comments, commentSelect+` WHERE c.idea_id=$1 ORDER BY c.created_at, c.id`, ideaID); err != nil {
		return nil, wrap("list comments", err)
	}
	return comments, nil
}

func (s *PostgresStore) ListComments(ctx context.Context) ([]Comment, error) {
	comments := make([]Comment, 0)
	if err := s.q.SelectContext(ctx, &comments, commentSelect+` ORDER BY c.created_at DESC, c.id`); err != nil {
		return nil, wrap("list all comments", err)
	}
	return comments, nil
}

func (s *PostgresStore) DeleteComment(ctx context.Context, commentID string) (int, error) {
	result, err := s.q.ExecContext(ctx, `
		WITH RECURSIVE subtree AS (
			SELECT id FROM comments WHERE id=$1
			UNION ALL
			SELECT c.id FROM comments c JOIN subtree s ON c.parent_id = s.id
		)
		DELETE FROM comments WHERE id IN (SELECT id FROM subtree)
	`, commentID)
	if err != nil {
		return 0, wrap("delete comment", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete comment rows: %w", err)
	}
	if affected == 0 {
		return 0, fmt.Errorf("delete comment: %w", ErrNotFound)
	}
	return int(affected), nil
}

const supportSelect = `
	SELECT m.id, m.user_id, m.message, m.block_reason, m.is_read, m.created_at,
	       u.email AS user_email, u.first_name AS user_first_name, u.last_name AS user_last_name
	FROM support_messages m
	JOIN users u ON u.id = m.user_id`

func (s *PostgresStore) CreateSupportMessage(ctx context.Context, message SupportMessage) error {
	_, err := sqlx.NamedExecContext(ctx, s.q, `
		INSERT INTO support_messages (id, user_id, message, block_reason, is_read, created_at)
		VALUES (:id, :user_id, :message, :block_reason, :is_read, :created_at)
	`, message)
	return wrap("insert support message", err)
}

func (s *PostgresStore) GetSupportMessage(ctx context.Context, messageID string) (SupportMessage, error) {
	var message SupportMessage
	if err := s.q.GetContext(ctx, &message, supportSelect+` WHERE m.id=$1`, messageID); err != nil {
		return SupportMessage{}, wrap("get support message", err)
	}
	return message, nil
}

func (s *PostgresStore) ListSupportMessages(ctx context.Context) ([]SupportMessage, error) {
	messages := make([]SupportMessage, 0)
	if err := s.q.SelectContext(ctx, &messages, supportSelect+` ORDER BY m.created_at DESC, m.id`); err != nil {
		return nil, wrap("list support messages", err)
	}
	return messages, nil
}

func (s *PostgresStore) MarkSupportMessageRead(ctx context.Context, messageID string) error {
	result, err := s.q.ExecContext(ctx, `UPDATE support_messages SET is_read=TRUE WHERE id=$1`, messageID)
	if err != nil {
		return wrap("mark support message read", err)
	}
	return requireAffected("mark support message read", result)
}
