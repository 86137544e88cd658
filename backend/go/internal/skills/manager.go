package skills

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"OpenClaw/backend/go/internal/models"
	"OpenClaw/backend/go/internal/tools"
	"OpenClaw/backend/go/pkg/logger"

	"gopkg.in/yaml.v3"
)

// validSkillName 限定技能标识符的字符集, 与工具名的约束一致。
var validSkillName = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// Manager 管理技能目录: 一个技能一个 YAML 文件, 文件名即技能名。
// 加载是宽容的 (坏文件跳过并记日志), 创建是严格的 (非法定义直接拒绝)。
type Manager struct {
	dir      string
	reserved map[string]bool
	log      *logger.Logger
}

func NewManager(dir string, log *logger.Logger) *Manager {
	reserved := map[string]bool{}
	for _, b := range tools.BuiltinDescriptors() {
		reserved[b.Name] = true
	}
	return &Manager{dir: dir, reserved: reserved, log: log}
}

// Load 扫描技能目录并返回全部可用定义, 按文件名排序。
// 单个文件解析失败或被禁用只影响该文件。
func (m *Manager) Load() ([]models.SkillDefinition, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("读取技能目录失败: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ext := filepath.Ext(e.Name()); ext != ".yaml" && ext != ".yml" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var defs []models.SkillDefinition
	for _, name := range names {
		def, err := m.parseFile(filepath.Join(m.dir, name))
		if err != nil {
			m.log.WithField("file", name).WithError(err).Warn("技能文件解析失败, 跳过")
			continue
		}
		if def.Disabled {
			continue
		}
		defs = append(defs, *def)
	}
	return defs, nil
}

// List 返回全部技能 (含禁用的), 供管理接口展示。
func (m *Manager) List() ([]models.SkillDefinition, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var defs []models.SkillDefinition
	for _, e := range entries {
		if e.IsDir() || (filepath.Ext(e.Name()) != ".yaml" && filepath.Ext(e.Name()) != ".yml") {
			continue
		}
		def, err := m.parseFile(filepath.Join(m.dir, e.Name()))
		if err != nil {
			continue
		}
		defs = append(defs, *def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs, nil
}

// Get 按名字读取单个技能定义。
func (m *Manager) Get(name string) (*models.SkillDefinition, error) {
	if !validSkillName.MatchString(name) {
		return nil, fmt.Errorf("非法的技能名: %q", name)
	}
	def, err := m.parseFile(filepath.Join(m.dir, name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("技能 %q 不存在: %w", name, err)
	}
	return def, nil
}

// Create 校验并持久化一个新技能。与内置工具同名、名字非法、
// 或命令模板本身命中拒绝列表的定义在这里被拒绝。
func (m *Manager) Create(def models.SkillDefinition) error {
	if err := m.Validate(def); err != nil {
		return err
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("创建技能目录失败: %w", err)
	}

	data, err := yaml.Marshal(def)
	if err != nil {
		return fmt.Errorf("序列化技能定义失败: %w", err)
	}
	path := filepath.Join(m.dir, def.Name+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("写入技能文件失败: %w", err)
	}
	m.log.WithField("skill", def.Name).Info("技能已创建")
	return nil
}

// Delete 删除一个技能文件。不存在视为错误。
func (m *Manager) Delete(name string) error {
	if !validSkillName.MatchString(name) {
		return fmt.Errorf("非法的技能名: %q", name)
	}
	path := filepath.Join(m.dir, name+".yaml")
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("技能 %q 不存在", name)
		}
		return err
	}
	m.log.WithField("skill", name).Info("技能已删除")
	return nil
}

// Validate 检查一个技能定义是否可接受。
func (m *Manager) Validate(def models.SkillDefinition) error {
	if !validSkillName.MatchString(def.Name) {
		return fmt.Errorf("技能名 %q 非法: 仅允许字母、数字和下划线", def.Name)
	}
	if m.reserved[def.Name] || m.reserved["skill_"+def.Name] {
		return fmt.Errorf("技能名 %q 与内置工具冲突", def.Name)
	}

	switch def.Type {
	case models.SkillTypeCommand:
		if strings.TrimSpace(def.Command) == "" {
			return fmt.Errorf("command 类型的技能必须提供 command 模板")
		}
		// 模板在创建时就过一遍拒绝列表, 调度时代入实参后还会再查一次。
		if pattern, blocked := tools.IsBlocked(def.Command); blocked {
			return fmt.Errorf("命令模板命中拒绝列表 (%s)", pattern)
		}
	case models.SkillTypeHTTP, models.SkillTypeWebhook:
		if strings.TrimSpace(def.URL) == "" {
			return fmt.Errorf("%s 类型的技能必须提供 url", def.Type)
		}
	default:
		return fmt.Errorf("未知的技能类型: %q", def.Type)
	}

	for _, p := range def.Parameters {
		if !validSkillName.MatchString(p.Name) {
			return fmt.Errorf("参数名 %q 非法", p.Name)
		}
	}
	return nil
}

func (m *Manager) parseFile(path string) (*models.SkillDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var def models.SkillDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("YAML 解析失败: %w", err)
	}
	if def.Name == "" {
		def.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &def, nil
}
