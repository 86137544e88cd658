package toolrunner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"OpenClaw/backend/go/internal/config"
	"OpenClaw/backend/go/internal/models"
	"OpenClaw/backend/go/pkg/logger"
	"OpenClaw/backend/go/pkg/mcp_host"

	"github.com/mark3labs/mcp-go/mcp"
	"gopkg.in/yaml.v3"
)

// validAlias 限制别名为文件系统安全的标识符。
var validAlias = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

const (
	recordFile      = "record.yaml"
	credentialsFile = "credentials.enc"
)

// Manager 管理 Runner 侧的工具服务器: 安装 (仅限允许列表内的包)、
// 内省、调用与卸载。每个服务器一个目录, 目录里是清单与加密凭据;
// 没有常驻子进程, 每次内省和调用单独启动。
type Manager struct {
	cfg  config.RunnerConfig
	host *mcp_host.Host
	log  *logger.Logger
}

func NewManager(cfg config.RunnerConfig, log *logger.Logger) *Manager {
	return &Manager{
		cfg:  cfg,
		host: mcp_host.NewHost(time.Duration(cfg.SpawnTimeout) * time.Second),
		log:  log,
	}
}

// Install 校验包在允许列表内, 启动一次以内省工具目录, 然后写入
// 服务器记录与加密凭据。内省失败则什么都不落盘。
func (m *Manager) Install(ctx context.Context, alias, packageID string, env map[string]string) (*models.ServerRecord, error) {
	if !validAlias.MatchString(alias) {
		return nil, fmt.Errorf("别名 %q 非法: 仅允许字母、数字、下划线和连字符", alias)
	}
	command, ok := m.cfg.AllowList[packageID]
	if !ok {
		return nil, fmt.Errorf("包 %q 不在允许列表内", packageID)
	}

	dir := filepath.Join(m.cfg.RootDir, alias)
	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("别名 %q 已存在", alias)
	}

	opts := m.spawnOptions(command, env)
	mcpTools, err := m.host.ListTools(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("内省工具服务器失败: %w", err)
	}

	record := &models.ServerRecord{
		Alias:       alias,
		PackageID:   packageID,
		Tools:       convertTools(mcpTools),
		InstalledAt: time.Now(),
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	if err := m.writeRecord(dir, record); err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	if len(env) > 0 {
		sealed, err := sealEnv(m.cfg.SecretKey, env)
		if err != nil {
			os.RemoveAll(dir)
			return nil, fmt.Errorf("加密凭据失败: %w", err)
		}
		if err := os.WriteFile(filepath.Join(dir, credentialsFile), sealed, 0o600); err != nil {
			os.RemoveAll(dir)
			return nil, err
		}
	}

	m.log.WithPayload(map[string]any{"alias": alias, "package": packageID, "tools": len(record.Tools)}).
		Info("工具服务器已安装")
	return record, nil
}

// Remove 卸载一个服务器: 删除其目录即可, 没有进程需要停。
func (m *Manager) Remove(alias string) error {
	if !validAlias.MatchString(alias) {
		return fmt.Errorf("别名 %q 非法", alias)
	}
	dir := filepath.Join(m.cfg.RootDir, alias)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("服务器 %q 不存在", alias)
	}
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	m.log.WithField("alias", alias).Info("工具服务器已卸载")
	return nil
}

// List 返回全部已安装的服务器记录, 按别名排序。
func (m *Manager) List() ([]models.ServerRecord, error) {
	entries, err := os.ReadDir(m.cfg.RootDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var records []models.ServerRecord
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		record, err := m.readRecord(filepath.Join(m.cfg.RootDir, e.Name()))
		if err != nil {
			m.log.WithField("alias", e.Name()).WithError(err).Warn("服务器记录损坏, 跳过")
			continue
		}
		records = append(records, *record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Alias < records[j].Alias })
	return records, nil
}

// Tools 重新内省一个服务器并刷新其清单。服务器起不来时
// 回退到上次安装/内省留下的清单。
func (m *Manager) Tools(ctx context.Context, alias string) ([]models.RemoteTool, error) {
	record, opts, err := m.load(alias)
	if err != nil {
		return nil, err
	}

	mcpTools, err := m.host.ListTools(ctx, opts)
	if err != nil {
		m.log.WithField("alias", alias).WithError(err).Warn("实时内省失败, 使用缓存清单")
		return record.Tools, nil
	}

	record.Tools = convertTools(mcpTools)
	if err := m.writeRecord(filepath.Join(m.cfg.RootDir, alias), record); err != nil {
		m.log.WithField("alias", alias).WithError(err).Warn("刷新清单落盘失败")
	}
	return record.Tools, nil
}

// Call 执行一次远程工具调用: 启动子进程、调用、回收。
func (m *Manager) Call(ctx context.Context, alias, tool string, args map[string]any) (string, error) {
	_, opts, err := m.load(alias)
	if err != nil {
		return "", err
	}
	return m.host.CallTool(ctx, opts, tool, args)
}

// load 读取记录与凭据并构造启动参数。
func (m *Manager) load(alias string) (*models.ServerRecord, mcp_host.SpawnOptions, error) {
	if !validAlias.MatchString(alias) {
		return nil, mcp_host.SpawnOptions{}, fmt.Errorf("别名 %q 非法", alias)
	}
	dir := filepath.Join(m.cfg.RootDir, alias)
	record, err := m.readRecord(dir)
	if err != nil {
		return nil, mcp_host.SpawnOptions{}, fmt.Errorf("服务器 %q 不存在: %w", alias, err)
	}

	command, ok := m.cfg.AllowList[record.PackageID]
	if !ok {
		// 允许列表收紧后, 已装的服务器也随之失效。
		return nil, mcp_host.SpawnOptions{}, fmt.Errorf("包 %q 已不在允许列表内", record.PackageID)
	}

	env := map[string]string{}
	if sealed, err := os.ReadFile(filepath.Join(dir, credentialsFile)); err == nil {
		env, err = openEnv(m.cfg.SecretKey, sealed)
		if err != nil {
			return nil, mcp_host.SpawnOptions{}, err
		}
	}
	return record, m.spawnOptions(command, env), nil
}

func (m *Manager) spawnOptions(command string, env map[string]string) mcp_host.SpawnOptions {
	fields := strings.Fields(command)
	opts := mcp_host.SpawnOptions{Command: fields[0]}
	if len(fields) > 1 {
		opts.Args = fields[1:]
	}
	for k, v := range env {
		opts.Env = append(opts.Env, k+"="+v)
	}
	sort.Strings(opts.Env)
	return opts
}

func (m *Manager) writeRecord(dir string, record *models.ServerRecord) error {
	data, err := yaml.Marshal(record)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, recordFile), data, 0o644)
}

func (m *Manager) readRecord(dir string) (*models.ServerRecord, error) {
	data, err := os.ReadFile(filepath.Join(dir, recordFile))
	if err != nil {
		return nil, err
	}
	var record models.ServerRecord
	if err := yaml.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func convertTools(mcpTools []mcp.Tool) []models.RemoteTool {
	out := make([]models.RemoteTool, 0, len(mcpTools))
	for _, t := range mcpTools {
		schema := map[string]interface{}{
			"type":       t.InputSchema.Type,
			"properties": t.InputSchema.Properties,
		}
		if len(t.InputSchema.Required) > 0 {
			schema["required"] = t.InputSchema.Required
		}
		out = append(out, models.RemoteTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schema,
		})
	}
	return out
}
