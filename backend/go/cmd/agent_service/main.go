package main

import (
	"context"
	"log"
	"time"

	"OpenClaw/backend/go/internal/agent"
	"OpenClaw/backend/go/internal/agent_service/api"
	"OpenClaw/backend/go/internal/agent_service/service"
	"OpenClaw/backend/go/internal/config"
	"OpenClaw/backend/go/internal/database/mysql"
	"OpenClaw/backend/go/internal/database/redis"
	"OpenClaw/backend/go/internal/llm"
	"OpenClaw/backend/go/internal/notify"
	"OpenClaw/backend/go/internal/scheduler"
	"OpenClaw/backend/go/internal/skills"
	"OpenClaw/backend/go/internal/toolrunner"
	"OpenClaw/backend/go/internal/tools"
	"OpenClaw/backend/go/internal/wordpress"
	httpclient "OpenClaw/backend/go/pkg/http"
	"OpenClaw/backend/go/pkg/logger"

	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize logger
	level, err := logrus.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.Init(level)
	appLogger := logger.New("agent_service", "")

	appLogger.Info("Logger initialized")

	// Initialize database connections
	db, err := mysql.GetDB(&cfg.Databases.MySQL)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	defer mysql.Close()
	redisClient, err := redis.GetClient(&cfg.Databases.Redis)
	if err != nil {
		appLogger.WithError(err).Warn("Redis unavailable, remote tool cache disabled")
		redisClient = nil
	} else {
		defer redis.Close()
	}

	// Outbound HTTP client shared by WordPress and the runner proxy
	httpClient, err := httpclient.NewClient(cfg.Middleware.CircuitBreaker, 120*time.Second)
	if err != nil {
		appLogger.Fatal(err.Error())
	}

	// Initialize dependencies (stores -> domain -> service -> handler)
	wpClient := wordpress.NewClient(&cfg.WordPress, httpClient)
	skillManager := skills.NewManager(cfg.Agent.SkillsDir, appLogger)

	var runnerClient *toolrunner.Client
	if cfg.Runner.URL != "" {
		runnerClient = toolrunner.NewClient(cfg.Runner.URL, cfg.Runner.SecretKey, httpClient)
	}

	registry := tools.NewRegistry(skillManager, remoteSource(runnerClient), redisClient, appLogger)
	registry.ReloadSkills()

	jobStore, err := scheduler.NewStore(db)
	if err != nil {
		appLogger.Fatal(err.Error())
	}

	var notifier scheduler.Notifier
	if cfg.Telegram.BotToken != "" {
		notifier = notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.AdminUserIDs, appLogger)
	}

	chatClient := llm.NewClient(&cfg.LLM)
	transcriber := llm.NewTranscriber(cfg.LLM.WhisperAPIKey)

	// Scheduler and loop reference each other through the service layer,
	// so wire them in two steps.
	var svc *service.AgentService
	sched := scheduler.New(jobStore, func(ctx context.Context, instruction string) (string, error) {
		return svc.HeadlessRunner()(ctx, instruction)
	}, notifier, appLogger)

	dispatcher := tools.NewDispatcher(wpClient, sched, runnerCaller(runnerClient), httpClient, cfg.Agent.MaxOutputChars, appLogger)
	loop := agent.NewLoop(chatClient, registry, dispatcher, cfg.LLM, cfg.Agent, appLogger)

	svc = service.NewAgentService(cfg, loop, registry, skillManager, sched, runnerClient, wpClient, transcriber, appLogger)
	appLogger.Info("Dependencies injected")

	// Replay persisted jobs and fetch the remote tool catalog
	if err := sched.Start(); err != nil {
		appLogger.Fatal(err.Error())
	}
	if runnerClient != nil {
		registry.ReloadRemote(context.Background())
	}

	// Setup and start Gin router
	handler := api.NewAgentHandler(svc, appLogger)
	router := api.SetupRouter(handler, cfg)
	appLogger.Info("Starting agent service on " + cfg.Servers.AgentAddress)

	if err := router.Run(cfg.Servers.AgentAddress); err != nil {
		appLogger.Fatal(err.Error())
	}
}

// remoteSource 把可能为 nil 的 runner 客户端适配成注册表依赖。
func remoteSource(c *toolrunner.Client) tools.RemoteSource {
	if c == nil {
		return nil
	}
	return c
}

func runnerCaller(c *toolrunner.Client) tools.RemoteCaller {
	if c == nil {
		return nil
	}
	return c
}
