// Package httpapi exposes listening sessions over HTTP and websockets.
package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/park285/chess-audio-guide/internal/httpapi/handlers"
	"github.com/park285/chess-audio-guide/internal/httpapi/middleware"
	"go.uber.org/zap"
)

type RouterConfig struct {
	AllowedOrigins []string
	Logger         *zap.Logger

	HealthHandler    *handlers.HealthHandler
	StudyHandler     *handlers.StudyHandler
	SessionHandler   *handlers.SessionHandler
	MatchHandler     *handlers.MatchHandler
	NarrationHandler *handlers.NarrationHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		if cfg.StudyHandler != nil {
			api.GET("/studies", cfg.StudyHandler.List)
			api.GET("/studies/:id", cfg.StudyHandler.Get)
		}

		if h := cfg.SessionHandler; h != nil {
			api.POST("/sessions", h.Create)
			api.GET("/sessions/:id", h.Get)
			api.DELETE("/sessions/:id", h.Delete)
			api.GET("/sessions/:id/board.png", h.BoardPNG)
			api.POST("/sessions/:id/study", h.LoadStudy)
			api.POST("/sessions/:id/advance", h.Advance())
			api.POST("/sessions/:id/retreat", h.Retreat())
			api.POST("/sessions/:id/play", h.Play())
			api.POST("/sessions/:id/pause", h.Pause())
			api.PUT("/sessions/:id/volume", h.SetVolume)
			api.POST("/sessions/:id/upload", h.Upload)
		}

		if h := cfg.MatchHandler; h != nil {
			api.POST("/sessions/:id/moves", h.EnterMove)
			api.POST("/sessions/:id/match/reset", h.Reset)
			api.POST("/sessions/:id/match/archive", h.Archive)
			api.GET("/sessions/:id/matches", h.Recent)
			api.GET("/matches/:id", h.Get)
		}

		if cfg.NarrationHandler != nil {
			api.GET("/sessions/:id/narration", cfg.NarrationHandler.Stream)
		}
	}
	return r
}
