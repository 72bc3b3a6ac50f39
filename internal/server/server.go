package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/quorumapp/quorum-api/internal/config"
	"github.com/quorumapp/quorum-api/internal/handlers"
	"github.com/quorumapp/quorum-api/internal/logger"
	"github.com/quorumapp/quorum-api/internal/middleware/identity"
	"github.com/quorumapp/quorum-api/internal/middleware/requestlog"
	"github.com/quorumapp/quorum-api/internal/scheduler"
	"github.com/quorumapp/quorum-api/internal/storage/postgres"
)

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	config     *config.Config
	store      *postgres.Container
	sched      *scheduler.Scheduler
	scanner    *scheduler.Scanner
}

// New creates a new server instance
func New(cfg *config.Config, store *postgres.Container, sched *scheduler.Scheduler, scanner *scheduler.Scanner) *Server {
	return &Server{
		config:  cfg,
		store:   store,
		sched:   sched,
		scanner: scanner,
	}
}

// Start starts the HTTP server and blocks until it shuts down
func (s *Server) Start() error {
	router := s.setupRouter()

	s.httpServer = &http.Server{
		Addr:    ":" + s.config.Server.Port,
		Handler: router,

		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Get().Info("Starting HTTP server", "port", s.config.Server.Port)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	logger.Get().Info("Shutting down HTTP server...")

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

// setupRouter configures the HTTP router with middleware and routes
func (s *Server) setupRouter() *gin.Engine {
	gin.SetMode(s.config.Server.GinMode)

	router := gin.New()

	router.Use(requestlog.New())
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if s.config.CORS.AllowOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = strings.Split(s.config.CORS.AllowOrigins, ",")
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowMethods = strings.Split(s.config.CORS.AllowMethods, ",")
	corsConfig.AllowHeaders = strings.Split(s.config.CORS.AllowHeaders, ",")
	router.Use(cors.New(corsConfig))

	groupHandler := handlers.NewGroupHandler(s.store.Groups())
	categoryHandler := handlers.NewCategoryHandler(s.store.Categories(), s.store.Groups())
	eventHandler := handlers.NewEventHandler(s.sched, s.store.Events())
	voteHandler := handlers.NewVoteHandler(s.sched)
	scanHandler := handlers.NewScanHandler(s.scanner, s.config.Scheduler.ShardCount)

	// Health check
	router.GET("/ping", func(c *gin.Context) {
		status := "healthy"
		code := http.StatusOK
		if err := s.store.Health(); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"message": "Quorum API is running",
			"status":  status,
		})
	})

	s.setupAPIRoutes(router, groupHandler, categoryHandler, eventHandler, voteHandler, scanHandler)

	return router
}

// setupAPIRoutes configures all API routes
func (s *Server) setupAPIRoutes(
	router *gin.Engine,
	groupHandler *handlers.GroupHandler,
	categoryHandler *handlers.CategoryHandler,
	eventHandler *handlers.EventHandler,
	voteHandler *handlers.VoteHandler,
	scanHandler *handlers.ScanHandler,
) {
	api := router.Group("/api")
	authed := identity.Middleware(s.config.Auth.JWTSecret)
	{
		groups := api.Group("/groups")
		{
			groups.POST("", groupHandler.CreateGroup)
			groups.GET("/:group_id", groupHandler.GetGroup)
			groups.DELETE("/:group_id", groupHandler.DeleteGroup)

			groups.POST("/:group_id/categories", categoryHandler.CreateCategory)

			groups.GET("/:group_id/events", eventHandler.ListEvents)
			groups.POST("/:group_id/events", eventHandler.CreateEvent)
			groups.GET("/:group_id/events/:event_id", eventHandler.GetEvent)
			groups.POST("/:group_id/events/:event_id/votes", authed, voteHandler.CastVote)
		}

		categories := api.Group("/categories")
		{
			categories.PUT("/:category_id/choices/:choice_id/rating", authed, categoryHandler.PutRating)
		}

		internal := api.Group("/internal")
		{
			internal.POST("/scan/:shard", scanHandler.ScanShard)
		}
	}
}
