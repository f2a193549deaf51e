package app

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ideaflow/api/internal/apperr"
	"ideaflow/api/internal/ideas"
	"ideaflow/api/internal/store"
)

func (s *HTTPServer) writeIdea(c *gin.Context, status int, idea store.Idea) {
	actor := actorFrom(c)
	c.JSON(status, ideaOf(idea, actor.UserID, actor.IsAdmin()))
}

func (s *HTTPServer) writeIdeas(c *gin.Context, list []store.Idea) {
	actor := actorFrom(c)
	c.JSON(http.StatusOK, mapSlice(list, func(idea store.Idea) ideaView {
		return ideaOf(idea, actor.UserID, actor.IsAdmin())
	}))
}

func (s *HTTPServer) handleCreateIdea(c *gin.Context) {
	var body struct {
		TopicID     string   `json:"topicId" binding:"required"`
		Title       string   `json:"title" binding:"required"`
		Description string   `json:"description" binding:"required"`
		Images      []string `json:"images"`
	}
	if !s.bindJSON(c, &body) {
		return
	}
	idea, err := s.ideas.Create(c.Request.Context(), actorFrom(c), ideas.IdeaInput{
		TopicID:     body.TopicID,
		Title:       body.Title,
		Description: body.Description,
		Images:      body.Images,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	s.writeIdea(c, http.StatusCreated, idea)
}

func (s *HTTPServer) handleIdeasByTopic(c *gin.Context) {
	topicID := c.Query("topicId")
	if topicID == "" {
		s.fail(c, apperr.BadRequest("topicId query parameter is required"))
		return
	}
	list, err := s.ideas.FindByTopic(c.Request.Context(), actorFrom(c), topicID)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.writeIdeas(c, list)
}

func (s *HTTPServer) handleAllIdeas(c *gin.Context) {
	list, err := s.ideas.FindAll(c.Request.Context(), actorFrom(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.writeIdeas(c, list)
}

func (s *HTTPServer) handleGetIdea(c *gin.Context) {
	idea, err := s.ideas.FindOne(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.writeIdea(c, http.StatusOK, idea)
}

func (s *HTTPServer) handleUpdateIdea(c *gin.Context) {
	var body struct {
		Title       *string   `json:"title"`
		Description *string   `json:"description"`
		Images      *[]string `json:"images"`
	}
	if !s.bindJSON(c, &body) {
		return
	}
	idea, err := s.ideas.Update(c.Request.Context(), actorFrom(c), c.Param("id"), ideas.IdeaPatch{
		Title:       body.Title,
		Description: body.Description,
		Images:      body.Images,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	s.writeIdea(c, http.StatusOK, idea)
}

func (s *HTTPServer) handleRemoveIdea(c *gin.Context) {
	if err := s.ideas.Remove(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, message("Idea deleted successfully"))
}

func (s *HTTPServer) writeReaction(c *gin.Context, result ideas.ReactionResult, err error) {
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *HTTPServer) handleLike(c *gin.Context) {
	result, err := s.ideas.Like(c.Request.Context(), actorFrom(c), c.Param("id"))
	s.writeReaction(c, result, err)
}

func (s *HTTPServer) handleDislike(c *gin.Context) {
	result, err := s.ideas.Dislike(c.Request.Context(), actorFrom(c), c.Param("id"))
	s.writeReaction(c, result, err)
}

func (s *HTTPServer) handleRemoveReaction(c *gin.Context) {
	result, err := s.ideas.RemoveReaction(c.Request.Context(), actorFrom(c), c.Param("id"))
	s.writeReaction(c, result, err)
}

func (s *HTTPServer) handleMyReaction(c *gin.Context) {
	result, err := s.ideas.MyReaction(c.Request.Context(), actorFrom(c), c.Param("id"))
	s.writeReaction(c, result, err)
}

func (s *HTTPServer) handleAddComment(c *gin.Context) {
	var body struct {
		Content  string  `json:"content" binding:"required"`
		ParentID *string `json:"parentId"`
	}
	if !s.bindJSON(c, &body) {
		return
	}
	comment, err := s.ideas.AddComment(c.Request.Context(), actorFrom(c), c.Param("id"), body.Content, body.ParentID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, commentOf(comment))
}

func (s *HTTPServer) handleComments(c *gin.Context) {
	list, err := s.ideas.Comments(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, mapSlice(list, commentOf))
}

func (s *HTTPServer) handleRemoveComment(c *gin.Context) {
	removed, err := s.ideas.RemoveComment(c.Request.Context(), actorFrom(c), c.Param("commentId"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully", "removed": removed})
}

func (s *HTTPServer) handleAllComments(c *gin.Context) {
	list, err := s.ideas.AllComments(c.Request.Context(), actorFrom(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, mapSlice(list, adminCommentOf))
}

func (s *HTTPServer) handleAdminRemoveComment(c *gin.Context) {
	removed, err := s.ideas.AdminRemoveComment(c.Request.Context(), actorFrom(c), c.Param("commentId"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted by admin", "removed": removed})
}

func (s *HTTPServer) handleMyStatistics(c *gin.Context) {
	actor := actorFrom(c)
	stats, err := s.ideas.UserStatistics(c.Request.Context(), actor, actor.UserID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *HTTPServer) handleUserStatistics(c *gin.Context) {
	stats, err := s.ideas.UserStatistics(c.Request.Context(), actorFrom(c), c.Param("userId"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
