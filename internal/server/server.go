package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/quillforum/backend/internal/config"
	"github.com/quillforum/backend/internal/database"
	"github.com/quillforum/backend/internal/handlers"
	"github.com/quillforum/backend/internal/middleware"
	"github.com/quillforum/backend/internal/ws"
)

const (
	writeRateRPS   = 5.0
	writeRateBurst = 10
)

type Server struct {
	db      database.Service
	handler *handlers.Handler
	hub     *ws.Hub
	cfg     *config.Config
}

// New wires the database, the handler tree and the realtime hub together.
// The hub is constructed here and handed to the dispatcher through the
// handler constructor; nothing reaches it through package globals.
func New(cfg *config.Config) (*http.Server, *ws.Hub) {
	db := database.New()

	hub := ws.NewHub(middleware.ParseToken)
	handler := handlers.NewHandler(db.GetDB(), hub, cfg)

	s := &Server{
		db:      db,
		handler: handler,
		hub:     hub,
		cfg:     cfg,
	}

	router := s.RegisterRoutes()

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return server, hub
}

// NewForTest builds a router against an injected gorm DB and publisher,
// bypassing the env-driven database service.
func NewForTest(db *gorm.DB, hub *ws.Hub, cfg *config.Config) *gin.Engine {
	s := &Server{
		handler: handlers.NewHandler(db, hub, cfg),
		hub:     hub,
		cfg:     cfg,
	}
	return s.RegisterRoutes()
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{s.cfg.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * 3600,
	}))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		if s.db != nil {
			c.JSON(http.StatusOK, s.db.Health())
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Realtime channel; authenticates via ?token= or a later identify event
	r.GET("/ws", func(c *gin.Context) {
		ws.ServeWs(s.hub, c.Writer, c.Request)
	})

	limiter := middleware.NewIPRateLimiter(rate.Limit(writeRateRPS), writeRateBurst)

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		api.POST("/register", s.handler.Auth.Register)
		api.POST("/login", s.handler.Auth.Login)

		// Post routes (public reads)
		api.GET("/posts", s.handler.Post.GetPosts)
		api.GET("/posts/:id", s.handler.Post.GetPost)

		// Comment routes (public reads)
		api.GET("/posts/:id/comments", s.handler.Comment.GetComments)

		// Protected routes (authentication required)
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			protected.GET("/me", s.handler.Auth.GetMe)

			protected.POST("/posts", middleware.RateLimit(limiter), s.handler.Post.CreatePost)
			protected.POST("/posts/:id/vote", middleware.RateLimit(limiter), s.handler.Post.VotePost)

			protected.POST("/posts/:id/comments", middleware.RateLimit(limiter), s.handler.Comment.CreateComment)
			protected.POST("/comments/:commentId/vote", middleware.RateLimit(limiter), s.handler.Comment.VoteComment)

			protected.GET("/notifications", s.handler.Notification.List)
			protected.GET("/notifications/count", s.handler.Notification.Count)
			protected.PUT("/notifications/:id/read", s.handler.Notification.MarkRead)
			protected.PUT("/notifications/read-all", s.handler.Notification.MarkAllRead)
		}
	}

	return r
}
