package api

import (
	"net/http"

	"OpenClaw/backend/go/internal/models"
	"OpenClaw/backend/go/internal/toolrunner"
	"OpenClaw/backend/go/internal/tools"
	"OpenClaw/backend/go/pkg/logger"

	"github.com/gin-gonic/gin"
)

// RunnerHandler 持有 Runner 的 HTTP 处理器依赖。
type RunnerHandler struct {
	manager *toolrunner.Manager
	log     *logger.Logger
}

func NewRunnerHandler(manager *toolrunner.Manager, log *logger.Logger) *RunnerHandler {
	return &RunnerHandler{manager: manager, log: log}
}

// Health 处理 GET /health。
func (h *RunnerHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListServers 处理 GET /servers。
func (h *RunnerHandler) ListServers(c *gin.Context) {
	records, err := h.manager.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if records == nil {
		records = []models.ServerRecord{}
	}
	c.JSON(http.StatusOK, records)
}

// InstallServer 处理 POST /servers。
func (h *RunnerHandler) InstallServer(c *gin.Context) {
	var req struct {
		Alias     string            `json:"alias" binding:"required"`
		PackageID string            `json:"package_id" binding:"required"`
		Env       map[string]string `json:"env"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "alias 和 package_id 不能为空"})
		return
	}

	record, err := h.manager.Install(c.Request.Context(), req.Alias, req.PackageID, req.Env)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, record)
}

// RemoveServer 处理 DELETE /servers/:alias。
func (h *RunnerHandler) RemoveServer(c *gin.Context) {
	if err := h.manager.Remove(c.Param("alias")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

// ServerTools 处理 GET /servers/:alias/tools。
func (h *RunnerHandler) ServerTools(c *gin.Context) {
	toolsOut, err := h.manager.Tools(c.Request.Context(), c.Param("alias"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toolsOut)
}

// Catalog 处理 GET /tools: 聚合全部服务器的工具目录。
// 单个服务器内省失败不拖垮整个目录, 用它的缓存清单顶上。
func (h *RunnerHandler) Catalog(c *gin.Context) {
	records, err := h.manager.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	catalogs := make([]tools.RemoteCatalog, 0, len(records))
	for _, record := range records {
		catalogs = append(catalogs, tools.RemoteCatalog{
			Alias: record.Alias,
			Tools: record.Tools,
		})
	}
	c.JSON(http.StatusOK, catalogs)
}

// CallTool 处理 POST /servers/:alias/call。
func (h *RunnerHandler) CallTool(c *gin.Context) {
	var req struct {
		Tool      string         `json:"tool" binding:"required"`
		Arguments map[string]any `json:"arguments"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tool 不能为空"})
		return
	}

	out, err := h.manager.Call(c.Request.Context(), c.Param("alias"), req.Tool, req.Arguments)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"output": out})
}
