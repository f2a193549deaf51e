package app

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ideaflow/api/internal/admin"
)

func (s *HTTPServer) handleListUsers(c *gin.Context) {
	users, err := s.admin.ListUsers(c.Request.Context(), actorFrom(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, mapSlice(users, adminUserOf))
}

func (s *HTTPServer) handleGetUser(c *gin.Context) {
	user, err := s.admin.GetUser(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, adminUserOf(user))
}

func (s *HTTPServer) handleBlockUser(c *gin.Context) {
	var body struct {
		Reason        string `json:"reason" binding:"required"`
		ReasonForUser string `json:"reasonForUser"`
	}
	if !s.bindJSON(c, &body) {
		return
	}
	user, err := s.admin.BlockUser(c.Request.Context(), actorFrom(c), c.Param("id"), admin.BlockRequest{
		Reason:        body.Reason,
		ReasonForUser: body.ReasonForUser,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User successfully blocked", "user": adminUserOf(user)})
}

func (s *HTTPServer) handleUnblockUser(c *gin.Context) {
	user, err := s.admin.UnblockUser(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User successfully unblocked", "user": adminUserOf(user)})
}

func (s *HTTPServer) handleSendSupportMessage(c *gin.Context) {
	var body struct {
		Email       string `json:"email" binding:"required,email"`
		Message     string `json:"message" binding:"required"`
		BlockReason string `json:"blockReason"`
	}
	if !s.bindJSON(c, &body) {
		return
	}
	if _, err := s.admin.SendSupportMessage(c.Request.Context(), body.Email, body.Message, body.BlockReason); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, message("Support message sent successfully"))
}

func (s *HTTPServer) handleSupportMessages(c *gin.Context) {
	list, err := s.admin.SupportMessages(c.Request.Context(), actorFrom(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, mapSlice(list, supportMessageOf))
}

func (s *HTTPServer) handleMarkSupportMessageRead(c *gin.Context) {
	msg, err := s.admin.MarkSupportMessageRead(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, supportMessageOf(msg))
}

func (s *HTTPServer) handleCounterAudit(c *gin.Context) {
	drift, err := s.admin.AuditIdeaCounters(c.Request.Context(), actorFrom(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, counterAuditView{Drift: drift, Clean: len(drift) == 0})
}
