package api

import (
	"github.com/RishiKendai/lichen/internal/config"
	"github.com/gin-gonic/gin"
)

func SetupRoutes(cfg *config.Config, handler *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(MetricsMiddleware())
	router.Use(ErrorHandlerMiddleware())

	rateLimiter := NewRateLimiter(cfg.RateLimitRPS, int(cfg.RateLimitRPS*2))

	// no auth
	router.GET("/health", handler.Health)

	api := router.Group("/api/v1")
	api.Use(JWTAuthMiddleware(cfg.JWTSecret))
	api.Use(RateLimitMiddleware(rateLimiter))
	{
		api.POST("/runs", handler.CreateRun)
		api.GET("/runs/:id", handler.GetRunStatus)
		api.GET("/gradeables/:gradeable/ranking", handler.GetOverallRanking)
		api.GET("/gradeables/:gradeable/users/:user/versions/:version/ranking", handler.GetSubmissionRanking)
	}

	return router
}
