// Package app is the HTTP transport: gin routes under /api mapped onto the
// auth, topic, idea and admin services.
package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ideaflow/api/internal/admin"
	"ideaflow/api/internal/authpw"
	"ideaflow/api/internal/ideas"
	"ideaflow/api/internal/rbac"
	"ideaflow/api/internal/topics"
	"ideaflow/api/internal/util"
)

// Pinger is a dependency probed by /api/ready.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Auth       *authpw.Service
	Topics     *topics.Service
	Ideas      *ideas.Service
	Admin      *admin.Service
	Clock      util.Clock
	Logger     *slog.Logger
	CORSOrigin string
	// Readiness checks by name, e.g. "database" and "redis".
	Checks map[string]Pinger
}

type HTTPServer struct {
	auth       *authpw.Service
	topics     *topics.Service
	ideas      *ideas.Service
	admin      *admin.Service
	clock      util.Clock
	logger     *slog.Logger
	corsOrigin string
	checks     map[string]Pinger
}

func NewHTTPServer(opts Options) *HTTPServer {
	if opts.Clock == nil {
		opts.Clock = util.SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.CORSOrigin == "" {
		opts.CORSOrigin = "*"
	}
	return &HTTPServer{
		auth:       opts.Auth,
		topics:     opts.Topics,
		ideas:      opts.Ideas,
		admin:      opts.Admin,
		clock:      opts.Clock,
		logger:     opts.Logger,
		corsOrigin: opts.CORSOrigin,
		checks:     opts.Checks,
	}
}

func (s *HTTPServer) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger(), s.cors())
	engine.NoRoute(func(c *gin.Context) {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	})

	api := engine.Group("/api")
	api.GET("/health", s.handleHealth)
	api.HEAD("/health", s.handleHealth)
	api.GET("/ready", s.handleReady)

	authGroup := api.Group("/auth")
	authGroup.POST("/register", s.handleRegister)
	authGroup.POST("/verify-email", s.handleVerifyEmail)
	authGroup.POST("/resend-verification", s.handleResendVerification)
	authGroup.POST("/login", s.handleLogin)
	authGroup.POST("/forgot-password", s.handleForgotPassword)
	authGroup.POST("/reset-password", s.handleResetPassword)

	// Blocked users cannot hold a session, so support is keyed by email.
	api.POST("/support", s.handleSendSupportMessage)

	protected := api.Group("")
	protected.Use(s.requireSession())
	protected.POST("/auth/logout", s.handleLogout)
	protected.POST("/auth/change-password", s.requireAction(rbac.ActionChangePassword), s.handleChangePassword)

	profile := protected.Group("/profile")
	profile.GET("", s.requireAction(rbac.ActionReadProfile), s.handleProfile)
	profile.GET("/admin", s.requireAction(rbac.ActionReadAdminProfile), s.handleAdminProfile)
	profile.GET("/block-info", s.handleBlockInfo)

	topicGroup := protected.Group("/topics")
	topicGroup.POST("", s.requireAction(rbac.ActionCreateTopic), s.handleCreateTopic)
	topicGroup.POST("/suggest", s.requireAction(rbac.ActionSuggestTopic), s.handleSuggestTopic)
	topicGroup.GET("", s.requireAction(rbac.ActionListAllTopics), s.handleListAllTopics)
	topicGroup.GET("/public", s.requireAction(rbac.ActionReadTopics), s.handleTopicsForUser)
	topicGroup.GET("/admin/pending", s.requireAction(rbac.ActionModerateTopic), s.handlePendingTopics)
	topicGroup.PATCH("/admin/:id", s.requireAction(rbac.ActionModerateTopic), s.handleUpdateTopic)
	topicGroup.GET("/:id", s.requireAction(rbac.ActionReadTopics), s.handleGetTopic)
	topicGroup.PATCH("/:id", s.requireAction(rbac.ActionEditOwnTopic), s.handleUpdateTopic)
	topicGroup.DELETE("/:id", s.requireAction(rbac.ActionEditOwnTopic), s.handleRemoveTopic)
	topicGroup.PATCH("/:id/approve", s.requireAction(rbac.ActionModerateTopic), s.handleApproveTopic)
	topicGroup.PATCH("/:id/reject", s.requireAction(rbac.ActionModerateTopic), s.handleRejectTopic)

	ideaGroup := protected.Group("/ideas")
	ideaGroup.POST("", s.requireAction(rbac.ActionCreateIdea), s.handleCreateIdea)
	ideaGroup.GET("", s.requireAction(rbac.ActionReadIdeas), s.handleIdeasByTopic)
	ideaGroup.GET("/profile/statistics", s.requireAction(rbac.ActionReadOwnStats), s.handleMyStatistics)
	ideaGroup.GET("/admin/all", s.requireAction(rbac.ActionAdminIdeas), s.handleAllIdeas)
	ideaGroup.GET("/admin/comments/all", s.requireAction(rbac.ActionAdminComments), s.handleAllComments)
	ideaGroup.DELETE("/admin/comments/:commentId", s.requireAction(rbac.ActionAdminComments), s.handleAdminRemoveComment)
	ideaGroup.GET("/admin/statistics/:userId", s.requireAction(rbac.ActionReadUserStats), s.handleUserStatistics)
	ideaGroup.DELETE("/admin/:id", s.requireAction(rbac.ActionAdminIdeas), s.handleRemoveIdea)
	ideaGroup.DELETE("/comments/:commentId", s.requireAction(rbac.ActionComment), s.handleRemoveComment)
	ideaGroup.GET("/:id", s.requireAction(rbac.ActionReadIdeas), s.handleGetIdea)
	ideaGroup.PATCH("/:id", s.requireAction(rbac.ActionEditOwnIdea), s.handleUpdateIdea)
	ideaGroup.DELETE("/:id", s.requireAction(rbac.ActionEditOwnIdea), s.handleRemoveIdea)
	ideaGroup.POST("/:id/like", s.requireAction(rbac.ActionReact), s.handleLike)
	ideaGroup.POST("/:id/dislike", s.requireAction(rbac.ActionReact), s.handleDislike)
	ideaGroup.DELETE("/:id/reaction", s.requireAction(rbac.ActionReact), s.handleRemoveReaction)
	ideaGroup.GET("/:id/my-reaction", s.requireAction(rbac.ActionReact), s.handleMyReaction)
	ideaGroup.POST("/:id/comments", s.requireAction(rbac.ActionComment), s.handleAddComment)
	ideaGroup.GET("/:id/comments", s.requireAction(rbac.ActionReadIdeas), s.handleComments)

	adminGroup := protected.Group("/admin")
	adminGroup.GET("/users", s.requireAction(rbac.ActionManageUsers), s.handleListUsers)
	adminGroup.GET("/users/:id", s.requireAction(rbac.ActionManageUsers), s.handleGetUser)
	adminGroup.PATCH("/users/:id/block", s.requireAction(rbac.ActionManageUsers), s.handleBlockUser)
	adminGroup.PATCH("/users/:id/unblock", s.requireAction(rbac.ActionManageUsers), s.handleUnblockUser)
	adminGroup.GET("/support-messages", s.requireAction(rbac.ActionReadSupport), s.handleSupportMessages)
	adminGroup.PATCH("/support-messages/:id/read", s.requireAction(rbac.ActionReadSupport), s.handleMarkSupportMessageRead)
	adminGroup.GET("/ideas/counter-audit", s.requireAction(rbac.ActionAuditCounters), s.handleCounterAudit)

	return engine
}

func (s *HTTPServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *HTTPServer) handleReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	statusCode := http.StatusOK
	checks := gin.H{}
	for name, check := range s.checks {
		if err := check.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks[name] = gin.H{"status": "error", "error": err.Error()}
			continue
		}
		checks[name] = gin.H{"status": "ok"}
	}

	c.JSON(statusCode, gin.H{
		"ok":     status == "ready",
		"status": status,
		"checks": checks,
	})
}

func message(text string) gin.H {
	return gin.H{"message": text}
}
