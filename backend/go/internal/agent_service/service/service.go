package service

import (
	"context"
	"fmt"
	"time"

	"OpenClaw/backend/go/internal/agent"
	"OpenClaw/backend/go/internal/config"
	"OpenClaw/backend/go/internal/llm"
	"OpenClaw/backend/go/internal/models"
	"OpenClaw/backend/go/internal/scheduler"
	"OpenClaw/backend/go/internal/skills"
	"OpenClaw/backend/go/internal/toolrunner"
	"OpenClaw/backend/go/internal/tools"
	"OpenClaw/backend/go/internal/wordpress"
	"OpenClaw/backend/go/pkg/logger"

	"github.com/gabriel-vasile/mimetype"
)

// AgentService 把 Agent 的全部子系统捆在一起, 是 HTTP 层唯一的依赖。
type AgentService struct {
	cfg         *config.AppConfig
	loop        *agent.Loop
	registry    *tools.Registry
	skills      *skills.Manager
	scheduler   *scheduler.Scheduler
	runner      *toolrunner.Client
	wp          *wordpress.Client
	transcriber *llm.Transcriber
	log         *logger.Logger
}

func NewAgentService(
	cfg *config.AppConfig,
	loop *agent.Loop,
	registry *tools.Registry,
	skillManager *skills.Manager,
	sched *scheduler.Scheduler,
	runner *toolrunner.Client,
	wp *wordpress.Client,
	transcriber *llm.Transcriber,
	log *logger.Logger,
) *AgentService {
	return &AgentService{
		cfg:         cfg,
		loop:        loop,
		registry:    registry,
		skills:      skillManager,
		scheduler:   sched,
		runner:      runner,
		wp:          wp,
		transcriber: transcriber,
		log:         log,
	}
}

// RunTask 驱动一次完整的 Agent 运行。超出上限的历史从最旧的开始丢弃。
func (s *AgentService) RunTask(ctx context.Context, message string, history []models.Turn) <-chan models.RunEvent {
	if limit := s.cfg.Agent.HistoryLimit; limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	prompt := agent.BuildSystemPrompt(s.cfg, s.wp.LocalMode(), time.Now())
	return s.loop.Run(ctx, prompt, history, message)
}

// HeadlessRunner 返回调度器触发任务时使用的执行函数。
func (s *AgentService) HeadlessRunner() scheduler.Runner {
	return func(ctx context.Context, instruction string) (string, error) {
		prompt := agent.BuildSystemPrompt(s.cfg, s.wp.LocalMode(), time.Now())
		return s.loop.RunHeadless(ctx, prompt, instruction)
	}
}

// Health 汇总服务健康状态。
func (s *AgentService) Health() map[string]any {
	mode := "remote"
	if s.wp.LocalMode() {
		mode = "local"
	}
	return map[string]any{
		"status":            "ok",
		"mode":              mode,
		"skills":            s.registry.SkillCount(),
		"remote_tools":      s.registry.RemoteCount(),
		"model":             s.cfg.LLM.DefaultModel,
		"scheduler_running": s.scheduler.Running(),
		"scheduled_jobs":    s.scheduler.JobCount(),
		"transcription":     s.transcriber != nil,
	}
}

// ReloadSkills 重新扫描技能目录并刷新注册表, 返回加载数量。
func (s *AgentService) ReloadSkills() int {
	return s.registry.ReloadSkills()
}

// ReloadTools 重新拉取 Runner 目录并刷新注册表, 返回远程工具数量。
func (s *AgentService) ReloadTools(ctx context.Context) int {
	return s.registry.ReloadRemote(ctx)
}

// ListSkills / GetSkill / CreateSkill / DeleteSkill 透传技能管理。
// 写操作之后立即重载, 让改动对下一次运行可见。

func (s *AgentService) ListSkills() ([]models.SkillDefinition, error) {
	return s.skills.List()
}

func (s *AgentService) GetSkill(name string) (*models.SkillDefinition, error) {
	return s.skills.Get(name)
}

func (s *AgentService) CreateSkill(def models.SkillDefinition) error {
	if err := s.skills.Create(def); err != nil {
		return err
	}
	s.registry.ReloadSkills()
	return nil
}

func (s *AgentService) DeleteSkill(name string) error {
	if err := s.skills.Delete(name); err != nil {
		return err
	}
	s.registry.ReloadSkills()
	return nil
}

// ListSchedules / CancelSchedule 透传调度管理。

func (s *AgentService) ListSchedules() ([]models.JobInfo, error) {
	return s.scheduler.List()
}

func (s *AgentService) CancelSchedule(id string) error {
	return s.scheduler.Cancel(id)
}

// ListServers / InstallServer / RemoveServer / ServerTools 代理 Runner
// 的管理接口。改动服务器集合之后刷新远程目录。

func (s *AgentService) ListServers(ctx context.Context) ([]models.ServerRecord, error) {
	if s.runner == nil {
		return nil, fmt.Errorf("runner 未配置")
	}
	return s.runner.ListServers(ctx)
}

func (s *AgentService) InstallServer(ctx context.Context, alias, packageID string, env map[string]string) (*models.ServerRecord, error) {
	if s.runner == nil {
		return nil, fmt.Errorf("runner 未配置")
	}
	record, err := s.runner.InstallServer(ctx, alias, packageID, env)
	if err != nil {
		return nil, err
	}
	s.registry.ReloadRemote(ctx)
	return record, nil
}

func (s *AgentService) RemoveServer(ctx context.Context, alias string) error {
	if s.runner == nil {
		return fmt.Errorf("runner 未配置")
	}
	if err := s.runner.RemoveServer(ctx, alias); err != nil {
		return err
	}
	s.registry.ReloadRemote(ctx)
	return nil
}

func (s *AgentService) ServerTools(ctx context.Context, alias string) ([]models.RemoteTool, error) {
	if s.runner == nil {
		return nil, fmt.Errorf("runner 未配置")
	}
	return s.runner.ServerTools(ctx, alias)
}

// Upload 把文件上传到 WordPress 媒体库。MIME 类型缺失时从内容探测。
func (s *AgentService) Upload(ctx context.Context, data []byte, filename, mimeType string) (*wordpress.MediaResult, error) {
	if mimeType == "" {
		mimeType = mimetype.Detect(data).String()
	}
	return s.wp.UploadMedia(ctx, data, filename, mimeType)
}

// Transcribe 把语音转成文字。未配置转写密钥时返回明确错误。
func (s *AgentService) Transcribe(ctx context.Context, filename string, audio []byte) (string, error) {
	if s.transcriber == nil {
		return "", fmt.Errorf("未配置语音转写密钥")
	}
	return s.transcriber.Transcribe(ctx, filename, audio)
}
