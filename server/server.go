// Package server exposes the campaign workflow engine over HTTP. The surface
// is deliberately small: start a session, resume it with optional human
// feedback, and inspect it.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/deepnoodle-ai/campaign"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SessionLister is implemented by stores that can enumerate their sessions.
// The file, sqlite, and postgres stores all qualify; when the configured
// store does, the server exposes a listing endpoint.
type SessionLister interface {
	ListSessions(ctx context.Context) ([]*campaign.SessionSummary, error)
}

// Options configure the HTTP server.
type Options struct {
	Engine *campaign.Engine
	Logger *slog.Logger

	// APIKeyEnv names the environment variable holding the completion
	// service credential. When set, requests that would run the workflow
	// are rejected with 401 while the variable is empty. Leave empty for
	// offline backends that need no credential.
	APIKeyEnv string

	// Lister enables GET /workflow when non-nil.
	Lister SessionLister
}

// Server is the HTTP facade over a workflow engine.
type Server struct {
	engine    *campaign.Engine
	logger    *slog.Logger
	apiKeyEnv string
	lister    SessionLister
}

// New creates a server.
func New(opts Options) (*Server, error) {
	if opts.Engine == nil {
		return nil, errors.New("engine is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		engine:    opts.Engine,
		logger:    opts.Logger,
		apiKeyEnv: opts.APIKeyEnv,
		lister:    opts.Lister,
	}, nil
}

// StartRequest is the body of POST /workflow/:sessionID/start.
type StartRequest struct {
	Goal string `json:"goal" binding:"required"`
}

// ResumeRequest is the body of POST /workflow/:sessionID/resume. The mutation
// carries the human review decisions; it may be omitted entirely.
type ResumeRequest struct {
	Mutation *campaign.Mutation `json:"mutation"`
}

// Router builds the gin router with all routes and middleware attached.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"*"},
		ExposeHeaders: []string{"Content-Length"},
	}))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	workflow := router.Group("/workflow")
	{
		workflow.POST("/:sessionID/start", s.requireCredential(), s.handleStart)
		workflow.POST("/:sessionID/resume", s.requireCredential(), s.handleResume)
		workflow.GET("/:sessionID", s.handleInspect)
		if s.lister != nil {
			workflow.GET("", s.handleList)
		}
	}
	return router
}

// Run serves HTTP on addr until the listener fails.
func (s *Server) Run(addr string) error {
	return s.Router().Run(addr)
}

func (s *Server) handleStart(c *gin.Context) {
	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "goal is required"})
		return
	}
	result, err := s.engine.Start(c.Request.Context(), c.Param("sessionID"), req.Goal)
	if err != nil {
		s.renderError(c, result, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleResume(c *gin.Context) {
	var req ResumeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed mutation"})
			return
		}
	}
	result, err := s.engine.Resume(c.Request.Context(), c.Param("sessionID"), req.Mutation)
	if err != nil {
		s.renderError(c, result, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleInspect(c *gin.Context) {
	result, err := s.engine.Inspect(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		s.renderError(c, nil, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleList(c *gin.Context) {
	summaries, err := s.lister.ListSessions(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if summaries == nil {
		summaries = []*campaign.SessionSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": summaries})
}

// renderError maps engine errors onto HTTP status codes. A node failure still
// carries the session's last committed state, which is returned alongside the
// error so the caller can decide whether to retry.
func (s *Server) renderError(c *gin.Context, result *campaign.Result, err error) {
	var failure *campaign.NodeFailure
	switch {
	case errors.Is(err, campaign.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, campaign.ErrSessionAlreadyStarted),
		errors.Is(err, campaign.ErrSessionComplete):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &failure):
		body := gin.H{"error": failure.Error(), "node": failure.Node}
		if result != nil {
			body["state"] = result.State
		}
		c.JSON(http.StatusInternalServerError, body)
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// requireCredential rejects workflow execution while the configured
// credential variable is unset.
func (s *Server) requireCredential() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.apiKeyEnv != "" && os.Getenv(s.apiKeyEnv) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing credential: set " + s.apiKeyEnv,
			})
			return
		}
		c.Next()
	}
}
