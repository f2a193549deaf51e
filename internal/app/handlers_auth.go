package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ideaflow/api/internal/apperr"
	"ideaflow/api/internal/authpw"
)

// bindJSON decodes and validates the request body, writing a BadRequest
// on failure.
func (s *HTTPServer) bindJSON(c *gin.Context, target any) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		s.fail(c, apperr.BadRequest("Invalid request body: "+err.Error()))
		return false
	}
	return true
}

func sessionResponse(session authpw.Session) gin.H {
	return gin.H{
		"access_token": session.Token,
		"expiresAt":    session.ExpiresAt.UTC().Format(time.RFC3339),
		"user":         profileOf(session.User),
	}
}

func (s *HTTPServer) handleRegister(c *gin.Context) {
	var body struct {
		Email     string `json:"email" binding:"required,email"`
		Password  string `json:"password" binding:"required"`
		FirstName string `json:"firstName" binding:"required"`
		LastName  string `json:"lastName" binding:"required"`
	}
	if !s.bindJSON(c, &body) {
		return
	}
	_, err := s.auth.Register(c.Request.Context(), authpw.RegisterRequest{
		Email:     body.Email,
		Password:  body.Password,
		FirstName: body.FirstName,
		LastName:  body.LastName,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, message("Registration successful. Please check your email for verification code."))
}

func (s *HTTPServer) handleVerifyEmail(c *gin.Context) {
	var body struct {
		Email string `json:"email" binding:"required,email"`
		Code  string `json:"code" binding:"required"`
	}
	if !s.bindJSON(c, &body) {
		return
	}
	session, err := s.auth.VerifyEmail(c.Request.Context(), body.Email, body.Code)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse(session))
}

func (s *HTTPServer) handleResendVerification(c *gin.Context) {
	var body struct {
		Email string `json:"email" binding:"required,email"`
	}
	if !s.bindJSON(c, &body) {
		return
	}
	if err := s.auth.ResendVerification(c.Request.Context(), body.Email); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, message("Verification code sent successfully"))
}

func (s *HTTPServer) handleLogin(c *gin.Context) {
	var body struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if !s.bindJSON(c, &body) {
		return
	}
	session, err := s.auth.Login(c.Request.Context(), body.Email, body.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse(session))
}

func (s *HTTPServer) handleLogout(c *gin.Context) {
	if err := s.auth.Logout(c.Request.Context(), bearerToken(c)); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, message("Successfully logged out"))
}

func (s *HTTPServer) handleForgotPassword(c *gin.Context) {
	var body struct {
		Email string `json:"email" binding:"required,email"`
	}
	if !s.bindJSON(c, &body) {
		return
	}
	if err := s.auth.ForgotPassword(c.Request.Context(), body.Email); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, message("If the email exists, a password reset link has been sent."))
}

func (s *HTTPServer) handleResetPassword(c *gin.Context) {
	var body struct {
		Token    string `json:"token" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if !s.bindJSON(c, &body) {
		return
	}
	if err := s.auth.ResetPassword(c.Request.Context(), body.Token, body.Password); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, message("Password has been successfully reset."))
}

func (s *HTTPServer) handleChangePassword(c *gin.Context) {
	var body struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		NewPassword     string `json:"newPassword" binding:"required"`
	}
	if !s.bindJSON(c, &body) {
		return
	}
	principal := principalFrom(c)
	if err := s.auth.ChangePassword(c.Request.Context(), principal.UserID, body.CurrentPassword, body.NewPassword); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, message("Password has been successfully changed."))
}

func (s *HTTPServer) handleProfile(c *gin.Context) {
	user, err := s.auth.Profile(c.Request.Context(), principalFrom(c).UserID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": profileOf(user)})
}

func (s *HTTPServer) handleAdminProfile(c *gin.Context) {
	user, err := s.auth.Profile(c.Request.Context(), principalFrom(c).UserID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Admin profile information",
		"user":    profileOf(user),
	})
}

// handleBlockInfo only ever sees live sessions, which belong to active
// accounts; blocked users learn their reason from the login error instead.
func (s *HTTPServer) handleBlockInfo(c *gin.Context) {
	user, err := s.auth.Profile(c.Request.Context(), principalFrom(c).UserID)
	if err != nil {
		s.fail(c, err)
		return
	}
	if !user.IsBlocked() {
		c.JSON(http.StatusOK, gin.H{"isBlocked": false, "message": "Your account is active"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"isBlocked":   true,
		"blockedAt":   user.BlockedAt,
		"blockReason": user.BlockReasonForUser,
	})
}
