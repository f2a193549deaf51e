package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process Repository used by tests and local runs
// without Postgres. Transactions hold one lock for their whole duration and
// restore a snapshot when the callback fails.
type MemoryStore struct {
	mu   *sync.Mutex
	db   *memDB
	inTx bool
}

type memDB struct {
	state memState
}

type memState struct {
	seq       int64
	order     map[string]int64
	users     map[string]User
	revoked   map[string]time.Time
	topics    map[string]Topic
	ideas     map[string]Idea
	reactions map[string]Reaction
	comments  map[string]Comment
	support   map[string]SupportMessage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mu: &sync.Mutex{},
		db: &memDB{state: memState{
			order:     map[string]int64{},
			users:     map[string]User{},
			revoked:   map[string]time.Time{},
			topics:    map[string]Topic{},
			ideas:     map[string]Idea{},
			reactions: map[string]Reaction{},
			comments:  map[string]Comment{},
			support:   map[string]SupportMessage{},
		}},
	}
}

func (s memState) clone() memState {
	out := memState{
		seq:       s.seq,
		order:     make(map[string]int64, len(s.order)),
		users:     make(map[string]User, len(s.users)),
		revoked:   make(map[string]time.Time, len(s.revoked)),
		topics:    make(map[string]Topic, len(s.topics)),
		ideas:     make(map[string]Idea, len(s.ideas)),
		reactions: make(map[string]Reaction, len(s.reactions)),
		comments:  make(map[string]Comment, len(s.comments)),
		support:   make(map[string]SupportMessage, len(s.support)),
	}
	for k, v := range s.order {
		out.order[k] = v
	}
	for k, v := range s.users {
		out.users[k] = v
	}
	for k, v := range s.revoked {
		out.revoked[k] = v
	}
	for k, v := range s.topics {
		out.topics[k] = v
	}
	for k, v := range s.ideas {
		v.Images = append([]string(nil), v.Images...)
		out.ideas[k] = v
	}
	for k, v := range s.reactions {
		out.reactions[k] = v
	}
	for k, v := range s.comments {
		out.comments[k] = v
	}
	for k, v := range s.support {
		out.support[k] = v
	}
	return out
}

func (s *MemoryStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *MemoryStore) state() *memState {
	return &s.db.state
}

func (s *MemoryStore) WithTx(_ context.Context, fn func(Repository) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.db.state.clone()
	defer func() {
		if p := recover(); p != nil {
			s.db.state = snapshot
			panic(p)
		}
	}()
	if err := fn(&MemoryStore{mu: s.mu, db: s.db, inTx: true}); err != nil {
		s.db.state = snapshot
		return err
	}
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (st *memState) track(id string) {
	st.seq++
	st.order[id] = st.seq
}

func notFound(op string) error {
	return fmt.Errorf("%s: %w", op, ErrNotFound)
}

func conflict(op, detail string) error {
	return fmt.Errorf("%s: %w: %s", op, ErrConflict, detail)
}

func (s *MemoryStore) CreateUser(_ context.Context, user User) error {
	defer s.lock()()
	st := s.state()
	if _, ok := st.users[user.ID]; ok {
		return conflict("insert user", "users_pkey")
	}
	for _, existing := range st.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return conflict("insert user", "users_email_key")
		}
	}
	st.users[user.ID] = user
	st.track(user.ID)
	return nil
}

func (s *MemoryStore) GetUserByID(_ context.Context, userID string) (User, error) {
	defer s.lock()()
	user, ok := s.state().users[userID]
	if !ok {
		return User{}, notFound("get user")
	}
	return user, nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (User, error) {
	defer s.lock()()
	for _, user := range s.state().users {
		if user.Email == email {
			return user, nil
		}
	}
	return User{}, notFound("get user by email")
}

func (s *MemoryStore) GetUserByResetToken(_ context.Context, token string) (User, error) {
	defer s.lock()()
	for _, user := range s.state().users {
		if user.PasswordResetToken != nil && *user.PasswordResetToken == token {
			return user, nil
		}
	}
	return User{}, notFound("get user by reset token")
}

func (s *MemoryStore) UpdateUser(_ context.Context, user User) error {
	defer s.lock()()
	st := s.state()
	existing, ok := st.users[user.ID]
	if !ok {
		return notFound("update user")
	}
	for id, other := range st.users {
		if id == user.ID {
			continue
		}
		if strings.EqualFold(other.Email, user.Email) {
			return conflict("update user", "users_email_key")
		}
		if user.PasswordResetToken != nil && other.PasswordResetToken != nil && *other.PasswordResetToken == *user.PasswordResetToken {
			return conflict("update user", "users_password_reset_token_key")
		}
	}
	user.CreatedAt = existing.CreatedAt
	st.users[user.ID] = user
	return nil
}

func (s *MemoryStore) ListUsers(_ context.Context) ([]User, error) {
	defer s.lock()()
	st := s.state()
	users := make([]User, 0, len(st.users))
	for _, user := range st.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		return st.newerFirst(users[i].ID, users[i].CreatedAt, users[j].ID, users[j].CreatedAt)
	})
	return users, nil
}

func (st *memState) newerFirst(idA string, a time.Time, idB string, b time.Time) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return st.order[idA] > st.order[idB]
}

func (st *memState) olderFirst(idA string, a time.Time, idB string, b time.Time) bool {
	if !a.Equal(b) {
		return a.Before(b)
	}
	return st.order[idA] < st.order[idB]
}

func (s *MemoryStore) RevokeToken(_ context.Context, jti string, expiresAt time.Time) error {
	defer s.lock()()
	st := s.state()
	if _, ok := st.revoked[jti]; !ok {
		st.revoked[jti] = expiresAt
	}
	return nil
}

func (s *MemoryStore) IsTokenRevoked(_ context.Context, jti string) (bool, error) {
	defer s.lock()()
	_, ok := s.state().revoked[jti]
	return ok, nil
}

func (s *MemoryStore) PruneRevokedTokens(_ context.Context, before time.Time) (int64, error) {
	defer s.lock()()
	st := s.state()
	var removed int64
	for jti, expiresAt := range st.revoked {
		if expiresAt.Before(before) {
			delete(st.revoked, jti)
			removed++
		}
	}
	return removed, nil
}

func (st *memState) decorateTopic(topic Topic) Topic {
	if creator, ok := st.users[topic.CreatedBy]; ok {
		topic.CreatorFirstName = creator.FirstName
		topic.CreatorLastName = creator.LastName
	}
	return topic
}

func (s *MemoryStore) CreateTopic(_ context.Context, topic Topic) error {
	defer s.lock()()
	st := s.state()
	if _, ok := st.users[topic.CreatedBy]; !ok {
		return notFound("insert topic")
	}
	if _, ok := st.topics[topic.ID]; ok {
		return conflict("insert topic", "topics_pkey")
	}
	topic.CreatorFirstName, topic.CreatorLastName = "", ""
	st.topics[topic.ID] = topic
	st.track(topic.ID)
	return nil
}

func (s *MemoryStore) GetTopic(_ context.Context, topicID string) (Topic, error) {
	defer s.lock()()
	st := s.state()
	topic, ok := st.topics[topicID]
	if !ok {
		return Topic{}, notFound("get topic")
	}
	return st.decorateTopic(topic), nil
}

// GetTopicForUpdate is GetTopic here; the store lock already serializes
// transactions.
func (s *MemoryStore) GetTopicForUpdate(ctx context.Context, topicID string) (Topic, error) {
	return s.GetTopic(ctx, topicID)
}

func (s *MemoryStore) ListTopics(_ context.Context, filter TopicFilter) ([]Topic, error) {
	defer s.lock()()
	st := s.state()
	topics := make([]Topic, 0)
	for _, topic := range st.topics {
		if filter.Status != "" && topic.Status != filter.Status {
			continue
		}
		if filter.Privacy != "" && topic.Privacy != filter.Privacy {
			continue
		}
		topics = append(topics, st.decorateTopic(topic))
	}
	sort.Slice(topics, func(i, j int) bool {
		return st.newerFirst(topics[i].ID, topics[i].CreatedAt, topics[j].ID, topics[j].CreatedAt)
	})
	return topics, nil
}

func (s *MemoryStore) UpdateTopic(_ context.Context, topic Topic) error {
	defer s.lock()()
	st := s.state()
	existing, ok := st.topics[topic.ID]
	if !ok {
		return notFound("update topic")
	}
	existing.Title = topic.Title
	existing.Description = topic.Description
	existing.Status = topic.Status
	existing.Privacy = topic.Privacy
	existing.Deadline = topic.Deadline
	existing.UpdatedAt = topic.UpdatedAt
	st.topics[topic.ID] = existing
	return nil
}

func (s *MemoryStore) DeleteTopic(_ context.Context, topicID string) error {
	defer s.lock()()
	st := s.state()
	if _, ok := st.topics[topicID]; !ok {
		return notFound("delete topic")
	}
	for id, idea := range st.ideas {
		if idea.TopicID == topicID {
			st.deleteIdea(id)
		}
	}
	delete(st.topics, topicID)
	delete(st.order, topicID)
	return nil
}

func (s *MemoryStore) AdjustTopicIdeaCount(_ context.Context, topicID string, delta int) error {
	defer s.lock()()
	st := s.state()
	topic, ok := st.topics[topicID]
	if !ok {
		return notFound("adjust topic idea count")
	}
	topic.IdeaCount = clampAdd(topic.IdeaCount, delta)
	st.topics[topicID] = topic
	return nil
}

func clampAdd(value, delta int) int {
	if value+delta < 0 {
		return 0
	}
	return value + delta
}

func (st *memState) decorateIdea(idea Idea) Idea {
	idea.Images = append([]string{}, idea.Images...)
	if author, ok := st.users[idea.AuthorID]; ok {
		idea.AuthorFirstName = author.FirstName
		idea.AuthorLastName = author.LastName
	}
	if topic, ok := st.topics[idea.TopicID]; ok {
		idea.TopicTitle = topic.Title
		idea.TopicStatus = topic.Status
		idea.TopicPrivacy = topic.Privacy
	}
	return idea
}

func (s *MemoryStore) CreateIdea(_ context.Context, idea Idea) error {
	defer s.lock()()
	st := s.state()
	if _, ok := st.topics[idea.TopicID]; !ok {
		return notFound("insert idea")
	}
	if _, ok := st.users[idea.AuthorID]; !ok {
		return notFound("insert idea")
	}
	if _, ok := st.ideas[idea.ID]; ok {
		return conflict("insert idea", "ideas_pkey")
	}
	idea.Images = append([]string{}, idea.Images...)
	st.ideas[idea.ID] = idea
	st.track(idea.ID)
	return nil
}

func (s *MemoryStore) GetIdea(_ context.Context, ideaID string) (Idea, error) {
	defer s.lock()()
	st := s.state()
	idea, ok := st.ideas[ideaID]
	if !ok {
		return Idea{}, notFound("get idea")
	}
	return st.decorateIdea(idea), nil
}

// GetIdeaForUpdate is GetIdea here; the store lock already serializes
// transactions.
func (s *MemoryStore) GetIdeaForUpdate(ctx context.Context, ideaID string) (Idea, error) {
	return s.GetIdea(ctx, ideaID)
}

func (s *MemoryStore) listIdeas(match func(Idea) bool) []Idea {
	st := s.state()
	ideas := make([]Idea, 0)
	for _, idea := range st.ideas {
		if match(idea) {
			ideas = append(ideas, st.decorateIdea(idea))
		}
	}
	sort.Slice(ideas, func(i, j int) bool {
		return st.newerFirst(ideas[i].ID, ideas[i].CreatedAt, ideas[j].ID, ideas[j].CreatedAt)
	})
	return ideas
}

func (s *MemoryStore) ListIdeasByTopic(_ context.Context, topicID string) ([]Idea, error) {
	defer s.lock()()
	return s.listIdeas(func(idea Idea) bool { return idea.TopicID == topicID }), nil
}

func (s *MemoryStore) ListIdeas(_ context.Context) ([]Idea, error) {
	defer s.lock()()
	return s.listIdeas(func(Idea) bool { return true }), nil
}

func (s *MemoryStore) ListIdeasByAuthor(_ context.Context, authorID string) ([]Idea, error) {
	defer s.lock()()
	return s.listIdeas(func(idea Idea) bool { return idea.AuthorID == authorID }), nil
}

func (s *MemoryStore) UpdateIdea(_ context.Context, idea Idea) error {
	defer s.lock()()
	st := s.state()
	existing, ok := st.ideas[idea.ID]
	if !ok {
		return notFound("update idea")
	}
	existing.Title = idea.Title
	existing.Description = idea.Description
	existing.Images = append([]string{}, idea.Images...)
	existing.UpdatedAt = idea.UpdatedAt
	st.ideas[idea.ID] = existing
	return nil
}

func (st *memState) deleteIdea(ideaID string) {
	for id, comment := range st.comments {
		if comment.IdeaID == ideaID {
			delete(st.comments, id)
			delete(st.order, id)
		}
	}
	for id, reaction := range st.reactions {
		if reaction.IdeaID == ideaID {
			delete(st.reactions, id)
		}
	}
	delete(st.ideas, ideaID)
	delete(st.order, ideaID)
}

func (s *MemoryStore) DeleteIdea(_ context.Context, ideaID string) error {
	defer s.lock()()
	st := s.state()
	if _, ok := st.ideas[ideaID]; !ok {
		return notFound("delete idea")
	}
	st.deleteIdea(ideaID)
	return nil
}

func (s *MemoryStore) AdjustIdeaReactions(_ context.Context, ideaID string, likesDelta, dislikesDelta int) error {
	defer s.lock()()
	st := s.state()
	idea, ok := st.ideas[ideaID]
	if !ok {
		return notFound("adjust idea reactions")
	}
	idea.Likes = clampAdd(idea.Likes, likesDelta)
	idea.Dislikes = clampAdd(idea.Dislikes, dislikesDelta)
	st.ideas[ideaID] = idea
	return nil
}

func (s *MemoryStore) AdjustIdeaCommentCount(_ context.Context, ideaID string, delta int) error {
	defer s.lock()()
	st := s.state()
	idea, ok := st.ideas[ideaID]
	if !ok {
		return notFound("adjust idea comment count")
	}
	idea.CommentCount = clampAdd(idea.CommentCount, delta)
	st.ideas[ideaID] = idea
	return nil
}

func (s *MemoryStore) GetReaction(_ context.Context, userID, ideaID string) (Reaction, error) {
	defer s.lock()()
	for _, reaction := range s.state().reactions {
		if reaction.UserID == userID && reaction.IdeaID == ideaID {
			return reaction, nil
		}
	}
	return Reaction{}, notFound("get reaction")
}

func (s *MemoryStore) InsertReaction(_ context.Context, reaction Reaction) error {
	defer s.lock()()
	st := s.state()
	if _, ok := st.ideas[reaction.IdeaID]; !ok {
		return notFound("insert reaction")
	}
	for _, existing := range st.reactions {
		if existing.UserID == reaction.UserID && existing.IdeaID == reaction.IdeaID {
			return conflict("insert reaction", "user_reactions_user_id_idea_id_key")
		}
	}
	st.reactions[reaction.ID] = reaction
	return nil
}

func (s *MemoryStore) UpdateReactionType(_ context.Context, reactionID, reactionType string) error {
	defer s.lock()()
	st := s.state()
	reaction, ok := st.reactions[reactionID]
	if !ok {
		return notFound("update reaction")
	}
	reaction.Type = reactionType
	st.reactions[reactionID] = reaction
	return nil
}

func (s *MemoryStore) DeleteReaction(_ context.Context, reactionID string) error {
	defer s.lock()()
	st := s.state()
	if _, ok := st.reactions[reactionID]; !ok {
		return notFound("delete reaction")
	}
	delete(st.reactions, reactionID)
	return nil
}

func (s *MemoryStore) CountReactions(_ context.Context, ideaID string) (ReactionCounts, error) {
	defer s.lock()()
	var counts ReactionCounts
	for _, reaction := range s.state().reactions {
		if reaction.IdeaID != ideaID {
			continue
		}
		switch reaction.Type {
		case ReactionLike:
			counts.Likes++
		case ReactionDislike:
			counts.Dislikes++
		}
	}
	return counts, nil
}

func (st *memState) decorateComment(comment Comment) Comment {
	if author, ok := st.users[comment.AuthorID]; ok {
		comment.AuthorFirstName = author.FirstName
		comment.AuthorLastName = author.LastName
	}
	if idea, ok := st.ideas[comment.IdeaID]; ok {
		comment.IdeaTitle = idea.Title
		comment.TopicID = idea.TopicID
		if topic, ok := st.topics[idea.TopicID]; ok {
			comment.TopicTitle = topic.Title
		}
	}
	return comment
}

func (s *MemoryStore) CreateComment(_ context.Context, comment Comment) error {
	defer s.lock()()
	st := s.state()
	if _, ok := st.ideas[comment.IdeaID]; !ok {
		return notFound("insert comment")
	}
	if comment.ParentID != nil {
		if _, ok := st.comments[*comment.ParentID]; !ok {
			return notFound("insert comment")
		}
	}
	if _, ok := st.comments[comment.ID]; ok {
		return conflict("insert comment", "comments_pkey")
	}
	st.comments[comment.ID] = comment
	st.track(comment.ID)
	return nil
}

func (s *MemoryStore) GetComment(_ context.Context, commentID string) (Comment, error) {
	defer s.lock()()
	st := s.state()
	comment, ok := st.comments[commentID]
	if !ok {
		return Comment{}, notFound("get comment")
	}
	return st.decorateComment(comment), nil
}

func (s *MemoryStore) ListCommentsByIdea(_ context.Context, ideaID string) ([]Comment, error) {
	defer s.lock()()
	st := s.state()
	comments := make([]Comment, 0)
	for _, comment := range st.comments {
		if comment.IdeaID == ideaID {
			comments = append(comments, st.decorateComment(comment))
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		return st.olderFirst(comments[i].ID, comments[i].CreatedAt, comments[j].ID, comments[j].CreatedAt)
	})
	return comments, nil
}

func (s *MemoryStore) ListComments(_ context.Context) ([]Comment, error) {
	defer s.lock()()
	st := s.state()
	comments := make([]Comment, 0, len(st.comments))
	for _, comment := range st.comments {
		comments = append(comments, st.decorateComment(comment))
	}
	sort.Slice(comments, func(i, j int) bool {
		return st.newerFirst(comments[i].ID, comments[i].CreatedAt, comments[j].ID, comments[j].CreatedAt)
	})
	return comments, nil
}

func (s *MemoryStore) DeleteComment(_ context.Context, commentID string) (int, error) {
	defer s.lock()()
	st := s.state()
	if _, ok := st.comments[commentID]; !ok {
		return 0, notFound("delete comment")
	}
	subtree := []string{commentID}
	for i := 0; i < len(subtree); i++ {
		for id, comment := range st.comments {
			if comment.ParentID != nil && *comment.ParentID == subtree[i] {
				subtree = append(subtree, id)
			}
		}
	}
	for _, id := range subtree {
		delete(st.comments, id)
		delete(st.order, id)
	}
	return len(subtree), nil
}

func (st *memState) decorateSupport(message SupportMessage) SupportMessage {
	if user, ok := st.users[message.UserID]; ok {
		message.UserEmail = user.Email
		message.UserFirstName = user.FirstName
		message.UserLastName = user.LastName
	}
	return message
}

func (s *MemoryStore) CreateSupportMessage(_ context.Context, message SupportMessage) error {
	defer s.lock()()
	st := s.state()
	if _, ok := st.users[message.UserID]; !ok {
		return notFound("insert support message")
	}
	st.support[message.ID] = message
	st.track(message.ID)
	return nil
}

func (s *MemoryStore) GetSupportMessage(_ context.Context, messageID string) (SupportMessage, error) {
	defer s.lock()()
	st := s.state()
	message, ok := st.support[messageID]
	if !ok {
		return SupportMessage{}, notFound("get support message")
	}
	return st.decorateSupport(message), nil
}

func (s *MemoryStore) ListSupportMessages(_ context.Context) ([]SupportMessage, error) {
	defer s.lock()()
	st := s.state()
	messages := make([]SupportMessage, 0, len(st.support))
	for _, message := range st.support {
		messages = append(messages, st.decorateSupport(message))
	}
	sort.Slice(messages, func(i, j int) bool {
		return st.newerFirst(messages[i].ID, messages[i].CreatedAt, messages[j].ID, messages[j].CreatedAt)
	})
	return messages, nil
}

func (s *MemoryStore) MarkSupportMessageRead(_ context.Context, messageID string) error {
	defer s.lock()()
	st := s.state()
	message, ok := st.support[messageID]
	if !ok {
		return notFound("mark support message read")
	}
	message.IsRead = true
	st.support[messageID] = message
	return nil
}
