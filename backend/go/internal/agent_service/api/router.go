package api

import (
	"OpenClaw/backend/go/internal/config"
	"OpenClaw/backend/go/pkg/ratelimiter"

	"github.com/gin-gonic/gin"
)

// SetupRouter 配置 Agent 服务的 HTTP 路由。
// /task 与 /health 是前门; 管理路由挂在 JWT 中间件之后。
func SetupRouter(handler *AgentHandler, cfg *config.AppConfig) *gin.Engine {
	router := gin.Default()

	var limiter ratelimiter.RateLimiter
	if cfg.Middleware.RateLimiter.Enabled {
		tb := cfg.Middleware.RateLimiter.TokenBucket
		limiter = ratelimiter.NewTokenBucket(tb.Rate, tb.Capacity)
	}

	router.GET("/health", handler.Health)
	router.POST("/task", RateLimitMiddleware(limiter), handler.RunTask)
	router.POST("/upload", RateLimitMiddleware(limiter), handler.Upload)
	router.POST("/transcribe", RateLimitMiddleware(limiter), handler.Transcribe)

	admin := router.Group("/")
	admin.Use(AuthMiddleware(cfg.Auth.JwtSecret))
	{
		admin.GET("/schedules", handler.ListSchedules)
		admin.DELETE("/schedules/:id", handler.CancelSchedule)

		admin.GET("/skills", handler.ListSkills)
		admin.POST("/skills", handler.CreateSkill)
		admin.GET("/skills/:name", handler.GetSkill)
		admin.DELETE("/skills/:name", handler.DeleteSkill)
		admin.POST("/reload-skills", handler.ReloadSkills)

		admin.GET("/servers", handler.ListServers)
		admin.POST("/servers", handler.InstallServer)
		admin.DELETE("/servers/:alias", handler.RemoveServer)
		admin.GET("/servers/:alias/tools", handler.ServerTools)
		admin.POST("/reload-tools", handler.ReloadTools)
	}

	return router
}
