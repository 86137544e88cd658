package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"OpenClaw/backend/go/internal/agent_service/service"
	"OpenClaw/backend/go/internal/models"
	"OpenClaw/backend/go/internal/scheduler"
	"OpenClaw/backend/go/pkg/logger"

	"github.com/gin-gonic/gin"
)

// maxUploadBytes 限制单次上传/转写的文件大小。
const maxUploadBytes = 32 << 20

// AgentHandler 持有 Agent 服务的 HTTP 处理器依赖。
type AgentHandler struct {
	svc *service.AgentService
	log *logger.Logger
}

func NewAgentHandler(svc *service.AgentService, log *logger.Logger) *AgentHandler {
	return &AgentHandler{svc: svc, log: log}
}

// Health 处理 GET /health。
func (h *AgentHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Health())
}

// RunTask 处理 POST /task: 以 NDJSON 流式返回运行事件。
// 每个事件一行 JSON, 写一行刷一次, 客户端在运行过程中就能看到进度。
func (h *AgentHandler) RunTask(c *gin.Context) {
	var req struct {
		Message string        `json:"message" binding:"required"`
		History []models.Turn `json:"history"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message 不能为空"})
		return
	}

	c.Header("Content-Type", "application/x-ndjson")
	c.Header("Cache-Control", "no-cache")

	enc := json.NewEncoder(c.Writer)
	flusher, _ := c.Writer.(http.Flusher)
	for ev := range h.svc.RunTask(c.Request.Context(), req.Message, req.History) {
		if err := enc.Encode(ev); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// ListSchedules 处理 GET /schedules。
func (h *AgentHandler) ListSchedules(c *gin.Context) {
	infos, err := h.svc.ListSchedules()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if infos == nil {
		infos = []models.JobInfo{}
	}
	c.JSON(http.StatusOK, infos)
}

// CancelSchedule 处理 DELETE /schedules/:id。
func (h *AgentHandler) CancelSchedule(c *gin.Context) {
	if err := h.svc.CancelSchedule(c.Param("id")); err != nil {
		if errors.Is(err, scheduler.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "任务不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

// ListSkills 处理 GET /skills。
func (h *AgentHandler) ListSkills(c *gin.Context) {
	defs, err := h.svc.ListSkills()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if defs == nil {
		defs = []models.SkillDefinition{}
	}
	c.JSON(http.StatusOK, defs)
}

// GetSkill 处理 GET /skills/:name。
func (h *AgentHandler) GetSkill(c *gin.Context) {
	def, err := h.svc.GetSkill(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, def)
}

// CreateSkill 处理 POST /skills。
func (h *AgentHandler) CreateSkill(c *gin.Context) {
	var def models.SkillDefinition
	if err := c.ShouldBindJSON(&def); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "技能定义格式不正确"})
		return
	}
	if err := h.svc.CreateSkill(def); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "created", "name": def.Name})
}

// DeleteSkill 处理 DELETE /skills/:name。
func (h *AgentHandler) DeleteSkill(c *gin.Context) {
	if err := h.svc.DeleteSkill(c.Param("name")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// ReloadSkills 处理 POST /reload-skills。
func (h *AgentHandler) ReloadSkills(c *gin.Context) {
	count := h.svc.ReloadSkills()
	c.JSON(http.StatusOK, gin.H{"status": "reloaded", "skills": count})
}

// ReloadTools 处理 POST /reload-tools。
func (h *AgentHandler) ReloadTools(c *gin.Context) {
	count := h.svc.ReloadTools(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"status": "reloaded", "remote_tools": count})
}

// ListServers 处理 GET /servers。
func (h *AgentHandler) ListServers(c *gin.Context) {
	records, err := h.svc.ListServers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if records == nil {
		records = []models.ServerRecord{}
	}
	c.JSON(http.StatusOK, records)
}

// InstallServer 处理 POST /servers。
func (h *AgentHandler) InstallServer(c *gin.Context) {
	var req struct {
		Alias     string            `json:"alias" binding:"required"`
		PackageID string            `json:"package_id" binding:"required"`
		Env       map[string]string `json:"env"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "alias 和 package_id 不能为空"})
		return
	}

	record, err := h.svc.InstallServer(c.Request.Context(), req.Alias, req.PackageID, req.Env)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, record)
}

// RemoveServer 处理 DELETE /servers/:alias。
func (h *AgentHandler) RemoveServer(c *gin.Context) {
	if err := h.svc.RemoveServer(c.Request.Context(), c.Param("alias")); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

// ServerTools 处理 GET /servers/:alias/tools。
func (h *AgentHandler) ServerTools(c *gin.Context) {
	out, err := h.svc.ServerTools(c.Request.Context(), c.Param("alias"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, out)
}

// Upload 处理 POST /upload: multipart 文件上传到媒体库。
func (h *AgentHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少 file 字段"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.svc.Upload(c.Request.Context(), data, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, result)
}

// Transcribe 处理 POST /transcribe: 语音文件转文字。
func (h *AgentHandler) Transcribe(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少 file 字段"})
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	text, err := h.svc.Transcribe(c.Request.Context(), header.Filename, audio)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}
