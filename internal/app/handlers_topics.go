package app

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"ideaflow/api/internal/apperr"
	"ideaflow/api/internal/rbac"
	"ideaflow/api/internal/store"
	"ideaflow/api/internal/topics"
)

// parseDeadline accepts RFC 3339 timestamps or bare dates; a bare date
// means the end of that day in UTC.
func parseDeadline(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		ts = ts.UTC()
		return &ts, nil
	}
	day, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, apperr.BadRequest("Deadline must be a date or an RFC 3339 timestamp")
	}
	end := day.Add(24*time.Hour - time.Second)
	return &end, nil
}

type topicBody struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
	Privacy     string `json:"privacy"`
	Deadline    string `json:"deadline"`
}

func (b topicBody) input() (topics.TopicInput, error) {
	deadline, err := parseDeadline(b.Deadline)
	if err != nil {
		return topics.TopicInput{}, err
	}
	return topics.TopicInput{
		Title:       b.Title,
		Description: b.Description,
		Privacy:     b.Privacy,
		Deadline:    deadline,
	}, nil
}

func (s *HTTPServer) writeTopic(c *gin.Context, status int, topic store.Topic) {
	c.JSON(status, topicOf(topic, s.clock.Now(), actorFrom(c).IsAdmin()))
}

func (s *HTTPServer) writeTopics(c *gin.Context, list []store.Topic) {
	now := s.clock.Now()
	isAdmin := actorFrom(c).IsAdmin()
	c.JSON(http.StatusOK, mapSlice(list, func(topic store.Topic) topicView {
		return topicOf(topic, now, isAdmin)
	}))
}

func (s *HTTPServer) handleCreateTopic(c *gin.Context) {
	s.createTopic(c, s.topics.Create)
}

func (s *HTTPServer) handleSuggestTopic(c *gin.Context) {
	s.createTopic(c, s.topics.Suggest)
}

func (s *HTTPServer) createTopic(c *gin.Context, create func(context.Context, rbac.Actor, topics.TopicInput) (store.Topic, error)) {
	var body topicBody
	if !s.bindJSON(c, &body) {
		return
	}
	in, err := body.input()
	if err != nil {
		s.fail(c, err)
		return
	}
	topic, err := create(c.Request.Context(), actorFrom(c), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.writeTopic(c, http.StatusCreated, topic)
}

func (s *HTTPServer) handleListAllTopics(c *gin.Context) {
	list, err := s.topics.FindAll(c.Request.Context(), actorFrom(c), c.Query("status"))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.writeTopics(c, list)
}

func (s *HTTPServer) handleTopicsForUser(c *gin.Context) {
	list, err := s.topics.FindForUser(c.Request.Context(), actorFrom(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.writeTopics(c, list)
}

func (s *HTTPServer) handlePendingTopics(c *gin.Context) {
	list, err := s.topics.Pending(c.Request.Context(), actorFrom(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.writeTopics(c, list)
}

func (s *HTTPServer) handleGetTopic(c *gin.Context) {
	topic, err := s.topics.FindOne(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.writeTopic(c, http.StatusOK, topic)
}

func (s *HTTPServer) handleUpdateTopic(c *gin.Context) {
	var body struct {
		Title         *string `json:"title"`
		Description   *string `json:"description"`
		Privacy       *string `json:"privacy"`
		Deadline      *string `json:"deadline"`
		ClearDeadline bool    `json:"clearDeadline"`
	}
	if !s.bindJSON(c, &body) {
		return
	}
	patch := topics.TopicPatch{
		Title:         body.Title,
		Description:   body.Description,
		Privacy:       body.Privacy,
		ClearDeadline: body.ClearDeadline,
	}
	if body.Deadline != nil {
		deadline, err := parseDeadline(*body.Deadline)
		if err != nil {
			s.fail(c, err)
			return
		}
		if deadline == nil {
			patch.ClearDeadline = true
		}
		patch.Deadline = deadline
	}
	topic, err := s.topics.Update(c.Request.Context(), actorFrom(c), c.Param("id"), patch)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.writeTopic(c, http.StatusOK, topic)
}

func (s *HTTPServer) handleRemoveTopic(c *gin.Context) {
	if err := s.topics.Remove(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, message("Topic deleted successfully"))
}

func (s *HTTPServer) handleApproveTopic(c *gin.Context) {
	topic, err := s.topics.Approve(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.writeTopic(c, http.StatusOK, topic)
}

func (s *HTTPServer) handleRejectTopic(c *gin.Context) {
	topic, err := s.topics.Reject(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.writeTopic(c, http.StatusOK, topic)
}
