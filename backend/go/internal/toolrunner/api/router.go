package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// secretHeader 与 Agent 侧客户端约定的共享密钥头一致。
const secretHeader = "X-Runner-Secret"

// SetupRouter 配置 Runner 的 HTTP 路由。
// 除 /health 外的全部路由要求共享密钥头匹配。
func SetupRouter(handler *RunnerHandler, secret string) *gin.Engine {
	router := gin.Default()

	router.GET("/health", handler.Health)

	authed := router.Group("/")
	authed.Use(secretMiddleware(secret))
	{
		authed.GET("/tools", handler.Catalog)
		authed.GET("/servers", handler.ListServers)
		authed.POST("/servers", handler.InstallServer)
		authed.DELETE("/servers/:alias", handler.RemoveServer)
		authed.GET("/servers/:alias/tools", handler.ServerTools)
		authed.POST("/servers/:alias/call", handler.CallTool)
	}

	return router
}

func secretMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" || c.GetHeader(secretHeader) != secret {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "无效的访问密钥"})
			return
		}
		c.Next()
	}
}
