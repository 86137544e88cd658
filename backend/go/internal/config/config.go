package config

import (
	"fmt"
	"gopkg.in/yaml.v3"
	"os"
)

// RedisConfig 定义了 Redis 数据库的连接配置。
type RedisConfig struct {
	Address  string `yaml:"address"`  // Redis 服务器地址 (例如: "localhost:6379")
	Password string `yaml:"password"` // Redis 密码
	DB       int    `yaml:"db"`       // Redis 数据库编号
}

// MySQLConfig 定义了 MySQL 数据库的连接配置。
type MySQLConfig struct {
	Address         string `yaml:"address"`         // MySQL 服务器地址
	Username        string `yaml:"username"`        // 用户名
	Password        string `yaml:"password"`        // 密码
	Database        string `yaml:"database"`        // 数据库名称
	MaxOpenConns    int    `yaml:"maxOpenConns"`    // 最大打开连接数
	MaxIdleConns    int    `yaml:"maxIdleConns"`    // 最大空闲连接数
	ConnMaxLifetime int    `yaml:"connMaxLifetime"` // 连接最大生命周期 (秒)
}

// DatabaseConfigs 包含所有数据库的配置。
type DatabaseConfigs struct {
	Redis RedisConfig `yaml:"redis"` // Redis 数据库配置
	MySQL MySQLConfig `yaml:"mysql"` // MySQL 数据库配置
}

// LLMConfig 定义了 LLM 代理 (LiteLLM) 的连接配置。
// 所有模型调用都通过代理转发，Agent 本身不持有任何上游 API 密钥。
type LLMConfig struct {
	BaseURL       string `yaml:"baseURL"`       // LiteLLM 代理地址 (例如: "http://openclaw-litellm:4000/v1")
	MasterKey     string `yaml:"masterKey"`     // LiteLLM master key
	DefaultModel  string `yaml:"defaultModel"`  // 默认模型名称
	FallbackModel string `yaml:"fallbackModel"` // 主模型传输失败时使用的回退模型
	WhisperAPIKey string `yaml:"whisperAPIKey"` // 语音转写密钥 (直连 OpenAI Whisper, 可选)
	TimeoutSecs   int    `yaml:"timeoutSecs"`   // 单次模型调用的超时时间 (秒)
}

// WordPressConfig 定义了被管理的 WordPress 站点的连接配置。
type WordPressConfig struct {
	Path          string `yaml:"path"`          // 本地模式下的 WordPress 安装路径
	URL           string `yaml:"url"`           // 站点 URL (远程模式)
	AdminUser     string `yaml:"adminUser"`     // 管理员用户名
	AppPassword   string `yaml:"appPassword"`   // Application Password (REST 认证首选)
	AdminPassword string `yaml:"adminPassword"` // 管理员密码 (AppPassword 缺失时的后备)
	BridgeSecret  string `yaml:"bridgeSecret"`  // CLI 桥接插件的共享密钥
}

// TelegramConfig 定义了调度结果推送所需的 Telegram 凭据。
type TelegramConfig struct {
	BotToken     string   `yaml:"botToken"`     // Bot API token
	AdminUserIDs []string `yaml:"adminUserIDs"` // 接收推送的管理员用户 ID 列表
}

// AgentConfig 定义了 Agent 循环的运行参数。
type AgentConfig struct {
	MaxSteps       int    `yaml:"maxSteps"`       // 单次任务允许的最大工具调用步数
	MaxOutputChars int    `yaml:"maxOutputChars"` // 反馈给模型的工具输出字符上限
	SkillsDir      string `yaml:"skillsDir"`      // 自定义技能 YAML 文件目录
	SkillFile      string `yaml:"skillFile"`      // 系统提示词附加的 SKILL.md 路径
	HistoryLimit   int    `yaml:"historyLimit"`   // 接受的会话历史条数上限
}

// RunnerConfig 定义了工具服务器运行器 (Runner) 的配置。
type RunnerConfig struct {
	URL          string            `yaml:"url"`          // Agent 侧访问 Runner 的地址
	RootDir      string            `yaml:"rootDir"`      // Runner 侧保存服务器记录的根目录
	AllowList    map[string]string `yaml:"allowList"`    // 允许安装的包: packageId -> 启动命令
	SpawnTimeout int               `yaml:"spawnTimeout"` // 子进程单次往返的硬超时 (秒)
	SecretKey    string            `yaml:"secretKey"`    // 凭据加密密钥 (hex 编码, 32 字节)
}

// AuthConfig 用于配置管理接口的认证。
type AuthConfig struct {
	JwtSecret string `yaml:"jwtSecret"` // JWT 密钥
	TokenTTL  int    `yaml:"tokenTTL"`  // JWT 令牌的有效期（秒）
}

// AppInfo 对应 'app' 部分，包含应用程序的基本信息。
type AppInfo struct {
	Name        string `yaml:"name"`        // 应用程序名称
	Version     string `yaml:"version"`     // 应用程序版本
	Environment string `yaml:"environment"` // 运行环境 (例如: "development", "production")
}

// LoggerConfig 定义了日志记录器的配置。
type LoggerConfig struct {
	Level string `yaml:"level"` // 日志级别 (例如: "info", "debug", "warn", "error")
}

// ServerConfig 定义了各 HTTP 服务的监听地址。
type ServerConfig struct {
	AgentAddress  string `yaml:"agentAddress"`  // Agent 服务监听地址
	RunnerAddress string `yaml:"runnerAddress"` // Runner 服务监听地址
}

// MiddlewareConfig 包含所有中间件的配置。
type MiddlewareConfig struct {
	RateLimiter    RateLimiterConfig    `yaml:"rateLimiter"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// RateLimiterConfig 定义了限流器的配置。
type RateLimiterConfig struct {
	Enabled     bool              `yaml:"enabled"`
	TokenBucket TokenBucketConfig `yaml:"tokenBucket"`
}

// TokenBucketConfig 定义了令牌桶算法的配置。
type TokenBucketConfig struct {
	Rate     float64 `yaml:"rate"` // 每秒速率
	Capacity int     `yaml:"capacity"`
}

// CircuitBreakerConfig 定义了熔断器的配置。
type CircuitBreakerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	FailureThreshold uint32 `yaml:"failureThreshold"`
	SuccessThreshold uint32 `yaml:"successThreshold"`
	Timeout          string `yaml:"timeout"` // 例如: "30s"
}

// AppConfig 是整个 YAML 文件的根结构，包含了应用程序的所有配置。
type AppConfig struct {
	App        AppInfo          `yaml:"app"`        // 应用程序信息
	Auth       AuthConfig       `yaml:"auth"`       // 认证配置
	LLM        LLMConfig        `yaml:"llm"`        // LLM 配置部分
	WordPress  WordPressConfig  `yaml:"wordpress"`  // WordPress 站点配置
	Telegram   TelegramConfig   `yaml:"telegram"`   // Telegram 推送配置
	Agent      AgentConfig      `yaml:"agent"`      // Agent 循环配置
	Runner     RunnerConfig     `yaml:"runner"`     // 工具服务器运行器配置
	Logger     LoggerConfig     `yaml:"logger"`     // 日志记录器配置
	Databases  DatabaseConfigs  `yaml:"databases"`  // 数据库配置
	Servers    ServerConfig     `yaml:"servers"`    // HTTP 服务监听地址
	Middleware MiddlewareConfig `yaml:"middleware"` // 中间件配置
}

// LoadConfig 函数从指定路径加载并解析 YAML 配置文件。
//
// 参数:
//
//	path: YAML 配置文件的路径。
//
// 返回值:
//
//	*AppConfig: 解析后的应用程序配置结构体。
//	error: 如果文件读取或解析失败，则返回错误。
func LoadConfig(path string) (*AppConfig, error) {
	// 读取 YAML 文件内容。
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取 YAML 文件 '%s': %w", path, err)
	}
	var cfg AppConfig // 声明一个AppConfig变量用于存储解析后的配置。
	// 将 YAML 内容解析到 cfg 结构体中。
	err = yaml.Unmarshal(yamlFile, &cfg)
	if err != nil {
		return nil, fmt.Errorf("解析 YAML 文件失败: %w", err)
	}
	cfg.applyDefaults()
	cfg.applyEnvOverrides()
	return &cfg, nil // 返回解析后的配置和nil错误。
}

// applyDefaults 为省略的字段填充默认值。
func (cfg *AppConfig) applyDefaults() {
	if cfg.LLM.DefaultModel == "" {
		cfg.LLM.DefaultModel = "claude-sonnet-4-6"
	}
	if cfg.LLM.FallbackModel == "" {
		cfg.LLM.FallbackModel = "deepseek-chat"
	}
	if cfg.LLM.TimeoutSecs == 0 {
		cfg.LLM.TimeoutSecs = 120
	}
	if cfg.Agent.MaxSteps == 0 {
		cfg.Agent.MaxSteps = 25
	}
	if cfg.Agent.MaxOutputChars == 0 {
		cfg.Agent.MaxOutputChars = 8000
	}
	if cfg.Agent.HistoryLimit == 0 {
		cfg.Agent.HistoryLimit = 20
	}
	if cfg.Runner.SpawnTimeout == 0 {
		cfg.Runner.SpawnTimeout = 60
	}
	if cfg.Servers.AgentAddress == "" {
		cfg.Servers.AgentAddress = ":8080"
	}
	if cfg.Servers.RunnerAddress == "" {
		cfg.Servers.RunnerAddress = ":8090"
	}
}

// applyEnvOverrides 允许通过环境变量覆盖敏感字段，避免把密钥写进配置文件。
func (cfg *AppConfig) applyEnvOverrides() {
	if v := os.Getenv("LITELLM_MASTER_KEY"); v != "" {
		cfg.LLM.MasterKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLM.WhisperAPIKey = v
	}
	if v := os.Getenv("WP_APP_PASSWORD"); v != "" {
		cfg.WordPress.AppPassword = v
	}
	if v := os.Getenv("BRIDGE_SECRET"); v != "" {
		cfg.WordPress.BridgeSecret = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("RUNNER_SECRET_KEY"); v != "" {
		cfg.Runner.SecretKey = v
	}
}
