package app

import (
	"time"

	"ideaflow/api/internal/admin"
	"ideaflow/api/internal/store"
)

// Projections returned over HTTP. Admin variants add ids and internal
// fields that regular users never see.

type personView struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type blockInfoView struct {
	BlockedAt      *time.Time `json:"blockedAt"`
	BlockReason    *string    `json:"blockReason"`
	ContactSupport string     `json:"contactSupport"`
}

type profileView struct {
	FirstName string         `json:"firstName"`
	LastName  string         `json:"lastName"`
	Email     string         `json:"email"`
	Role      string         `json:"role"`
	Status    string         `json:"status"`
	BlockInfo *blockInfoView `json:"blockInfo,omitempty"`
}

func profileOf(user store.User) profileView {
	view := profileView{
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Role:      user.Role,
		Status:    user.Status,
	}
	if user.IsBlocked() {
		view.BlockInfo = &blockInfoView{
			BlockedAt:      user.BlockedAt,
			BlockReason:    user.BlockReasonForUser,
			ContactSupport: "Please contact support for assistance",
		}
	}
	return view
}

type adminUserView struct {
	ID                 string     `json:"id"`
	Email              string     `json:"email"`
	FirstName          string     `json:"firstName"`
	LastName           string     `json:"lastName"`
	Role               string     `json:"role"`
	Status             string     `json:"status"`
	IsEmailVerified    bool       `json:"isEmailVerified"`
	BlockReason        *string    `json:"blockReason"`
	BlockReasonForUser *string    `json:"blockReasonForUser"`
	BlockedAt          *time.Time `json:"blockedAt"`
	CreatedAt          time.Time  `json:"createdAt"`
}

func adminUserOf(user store.User) adminUserView {
	return adminUserView{
		ID:                 user.ID,
		Email:              user.Email,
		FirstName:          user.FirstName,
		LastName:           user.LastName,
		Role:               user.Role,
		Status:             user.Status,
		IsEmailVerified:    user.IsEmailVerified,
		BlockReason:        user.BlockReason,
		BlockReasonForUser: user.BlockReasonForUser,
		BlockedAt:          user.BlockedAt,
		CreatedAt:          user.CreatedAt,
	}
}

type topicView struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Privacy     string     `json:"privacy"`
	Deadline    *time.Time `json:"deadline"`
	IsExpired   bool       `json:"isExpired"`
	IdeaCount   int        `json:"ideaCount"`
	CreatedAt   time.Time  `json:"createdAt"`
	CreatedBy   personView `json:"createdBy"`
	CreatorID   string     `json:"createdById,omitempty"`
}

func topicOf(topic store.Topic, now time.Time, isAdmin bool) topicView {
	view := topicView{
		ID:          topic.ID,
		Title:       topic.Title,
		Description: topic.Description,
		Status:      topic.Status,
		Privacy:     topic.Privacy,
		Deadline:    topic.Deadline,
		IsExpired:   topic.IsExpired(now),
		IdeaCount:   topic.IdeaCount,
		CreatedAt:   topic.CreatedAt,
		CreatedBy:   personView{FirstName: topic.CreatorFirstName, LastName: topic.CreatorLastName},
	}
	if isAdmin {
		view.CreatorID = topic.CreatedBy
	}
	return view
}

type topicRef struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

type ideaView struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Images       []string   `json:"images"`
	Likes        int        `json:"likes"`
	Dislikes     int        `json:"dislikes"`
	Rating       int        `json:"rating"`
	CommentCount int        `json:"commentCount"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	Author       personView `json:"author"`
	Topic        topicRef   `json:"topic"`
	IsOwner      bool       `json:"isOwner"`
	TopicID      string     `json:"topicId,omitempty"`
	AuthorID     string     `json:"authorId,omitempty"`
}

func ideaOf(idea store.Idea, viewerID string, isAdmin bool) ideaView {
	images := []string(idea.Images)
	if images == nil {
		images = []string{}
	}
	view := ideaView{
		ID:           idea.ID,
		Title:        idea.Title,
		Description:  idea.Description,
		Images:       images,
		Likes:        idea.Likes,
		Dislikes:     idea.Dislikes,
		Rating:       idea.Rating(),
		CommentCount: idea.CommentCount,
		CreatedAt:    idea.CreatedAt,
		UpdatedAt:    idea.UpdatedAt,
		Author:       personView{FirstName: idea.AuthorFirstName, LastName: idea.AuthorLastName},
		Topic:        topicRef{ID: idea.TopicID, Title: idea.TopicTitle, Status: idea.TopicStatus},
		IsOwner:      viewerID != "" && viewerID == idea.AuthorID,
	}
	if isAdmin {
		view.TopicID = idea.TopicID
		view.AuthorID = idea.AuthorID
	}
	return view
}

type ideaRef struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Topic topicRef `json:"topic"`
}

type commentView struct {
	ID        string     `json:"id"`
	Content   string     `json:"content"`
	ParentID  *string    `json:"parentId"`
	CreatedAt time.Time  `json:"createdAt"`
	Author    personView `json:"author"`
	Idea      *ideaRef   `json:"idea,omitempty"`
	AuthorID  string     `json:"authorId,omitempty"`
}

func commentOf(comment store.Comment) commentView {
	return commentView{
		ID:        comment.ID,
		Content:   comment.Content,
		ParentID:  comment.ParentID,
		CreatedAt: comment.CreatedAt,
		Author:    personView{FirstName: comment.AuthorFirstName, LastName: comment.AuthorLastName},
	}
}

// adminCommentOf adds the idea and topic the comment sits under.
func adminCommentOf(comment store.Comment) commentView {
	view := commentOf(comment)
	view.AuthorID = comment.AuthorID
	view.Idea = &ideaRef{
		ID:    comment.IdeaID,
		Title: comment.IdeaTitle,
		Topic: topicRef{ID: comment.TopicID, Title: comment.TopicTitle},
	}
	return view
}

type supportMessageView struct {
	ID          string    `json:"id"`
	UserEmail   string    `json:"userEmail"`
	UserName    string    `json:"userName"`
	Message     string    `json:"message"`
	BlockReason *string   `json:"blockReason"`
	IsRead      bool      `json:"isRead"`
	CreatedAt   time.Time `json:"createdAt"`
}

func supportMessageOf(msg store.SupportMessage) supportMessageView {
	return supportMessageView{
		ID:          msg.ID,
		UserEmail:   msg.UserEmail,
		UserName:    msg.UserFirstName + " " + msg.UserLastName,
		Message:     msg.Message,
		BlockReason: msg.BlockReason,
		IsRead:      msg.IsRead,
		CreatedAt:   msg.CreatedAt,
	}
}

func mapSlice[T, V any](items []T, fn func(T) V) []V {
	out := make([]V, 0, len(items))
	for _, item := range items {
		out = append(out, fn(item))
	}
	return out
}

type counterAuditView struct {
	Drift []admin.CounterDrift `json:"drift"`
	Clean bool                 `json:"clean"`
}
