package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"circles/backend/internal/auth"
	"circles/backend/internal/notify"
	"circles/backend/internal/social"
	apperrors "circles/backend/pkg/errors"
	"circles/backend/pkg/logger"
)

// basePath matches the mobile clients' API prefix.
const basePath = "/circles/api/v1.0"

const requesterKey = "requester"

// Server wires the consistency engine, the token verifier and the
// push sender into the HTTP surface.
type Server struct {
	engine   *social.Engine
	verifier auth.Verifier
	notifier *notify.Sender
	log      *zap.Logger
}

// New creates a server.
func New(engine *social.Engine, verifier auth.Verifier, notifier *notify.Sender) *Server {
	return &Server{
		engine:   engine,
		verifier: verifier,
		notifier: notifier,
		log:      logger.Get(),
	}
}

// Router builds the Gin router with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(requestLogger(s.log))
	router.Use(gin.Recovery())
	router.Use(cors())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group(basePath)

	// Account creation happens before a Person exists, so it cannot
	// require a resolved requester.
	api.POST("/users", s.postUser)

	authed := api.Group("", s.authRequired())
	{
		authed.GET("/getid", s.getID)

		authed.GET("/users/:id", s.getUser)
		authed.GET("/users/:id/:resource", s.getUser)
		authed.PUT("/users/:id", s.putUser)
		authed.DELETE("/users/:id", s.deleteUser)

		authed.POST("/circles", s.postCircle)
		authed.GET("/circles/:id", s.getCircle)
		authed.GET("/circles/:id/:resource", s.getCircle)
		authed.PUT("/circles/:id", s.putCircle)
		authed.DELETE("/circles/:id", s.deleteCircle)
		authed.POST("/circles/:id/sync-knows", s.postSyncKnows)

		authed.POST("/events", s.postEvent)
		authed.GET("/events/:id", s.getEvent)
		authed.GET("/events/:id/:resource", s.getEvent)
		authed.PUT("/events/:id", s.putEvent)
		authed.DELETE("/events/:id", s.deleteEvent)
	}

	return router
}

// authRequired verifies the bearer token and resolves the requesting
// person by their email.
func (s *Server) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		email, err := s.verifier.Verify(c.Request.Context(), token)
		if err != nil {
			s.abortWith(c, err)
			c.Abort()
			return
		}

		requester, err := s.engine.FindPersonByEmail(c.Request.Context(), email)
		if err != nil {
			if apperrors.IsType(err, apperrors.TypeNotFound) {
				err = apperrors.NewAuth("no account for authenticated email", nil)
			}
			s.abortWith(c, err)
			c.Abort()
			return
		}

		c.Set(requesterKey, requester)
		c.Next()
	}
}

func (s *Server) requester(c *gin.Context) *social.Person {
	return c.MustGet(requesterKey).(*social.Person)
}

// abortWith maps a domain error to its transport status. Anything
// outside the taxonomy is an internal error and logged as such.
func (s *Server) abortWith(c *gin.Context, err error) {
	var de *apperrors.Error
	if !errors.As(err, &de) {
		s.log.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(apperrors.HTTPStatus(err), gin.H{"error": de.Message})
}

func success(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func bindPayload(c *gin.Context) (map[string]any, bool) {
	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body must be a JSON object"})
		return nil, false
	}
	return payload, true
}

// tokensFor collects messaging tokens for the given people, skipping
// the excluded id (the actor) and anyone without a token.
func (s *Server) tokensFor(ctx context.Context, personIDs []string, excludeID string) []string {
	var tokens []string
	for _, id := range personIDs {
		if id == excludeID {
			continue
		}
		p, err := s.engine.GetPerson(ctx, id)
		if err != nil {
			s.log.Warn("skipping notification recipient", zap.String("person_id", id), zap.Error(err))
			continue
		}
		if p.MessagingToken != "" {
			tokens = append(tokens, p.MessagingToken)
		}
	}
	return tokens
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// requestLogger logs each request through zap.
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, Messaging, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
