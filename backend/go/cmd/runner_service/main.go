package main

import (
	"log"

	"OpenClaw/backend/go/internal/config"
	"OpenClaw/backend/go/internal/toolrunner"
	"OpenClaw/backend/go/internal/toolrunner/api"
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
	appLogger := logger.New("runner_service", "")

	appLogger.Info("Logger initialized")

	if cfg.Runner.SecretKey == "" {
		appLogger.Fatal("runner.secretKey 未配置")
	}

	// Initialize dependencies (Manager -> Handler)
	manager := toolrunner.NewManager(cfg.Runner, appLogger)
	handler := api.NewRunnerHandler(manager, appLogger)
	appLogger.Info("Dependencies injected")

	// Setup and start Gin router
	router := api.SetupRouter(handler, cfg.Runner.SecretKey)
	appLogger.Info("Starting runner service on " + cfg.Servers.RunnerAddress)

	if err := router.Run(cfg.Servers.RunnerAddress); err != nil {
		appLogger.Fatal(err.Error())
	}
}
