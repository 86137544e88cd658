package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sync"
	"time"

	"OpenClaw/backend/go/internal/models"
	"OpenClaw/backend/go/pkg/logger"

	"github.com/go-redis/redis/v8"
)

// remoteCacheKey 是远程工具目录在 Redis 中的缓存键。
// Runner 不可达时 (包括进程刚重启、内存里还没有上一份快照时) 从这里回退。
const remoteCacheKey = "openclaw:remote_tools"

// validToolName 校验工具标识符的字符集: 仅限字母、数字、下划线。
var validToolName = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// SkillSource 提供声明式技能的全量加载。
type SkillSource interface {
	Load() ([]models.SkillDefinition, error)
}

// RemoteCatalog 是一个工具服务器上报的目录。
type RemoteCatalog struct {
	Alias string              `json:"alias"`
	Tools []models.RemoteTool `json:"tools"`
}

// RemoteSource 查询 Runner 的聚合工具目录。
type RemoteSource interface {
	Catalog(ctx context.Context) ([]RemoteCatalog, error)
}

// Registry 把三个工具来源聚合成模型可见的单一能力目录。
// 快照在重载时整体替换而非原地修改, 因此可以被任意多个并发的
// Agent 循环安全地只读共享。组合顺序：内置工具在前, 然后是按源文件名
// 排序的声明式技能, 最后是按所属服务器分组的远程工具。
type Registry struct {
	builtins []models.ToolDescriptor
	skills   SkillSource
	remote   RemoteSource
	cache    *redis.Client
	log      *logger.Logger

	mu             sync.RWMutex
	skillSnapshot  []models.ToolDescriptor
	remoteSnapshot []models.ToolDescriptor
}

// NewRegistry 创建一个注册表。cache 允许为 nil (禁用远程目录的持久缓存)。
func NewRegistry(skills SkillSource, remote RemoteSource, cache *redis.Client, log *logger.Logger) *Registry {
	return &Registry{
		builtins: BuiltinDescriptors(),
		skills:   skills,
		remote:   remote,
		cache:    cache,
		log:      log,
	}
}

// Snapshot 返回当前目录的有序快照。Agent 循环在每一步之前调用它,
// 因此两次工具调用之间的显式重载会立即生效。
func (r *Registry) Snapshot() []models.ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.ToolDescriptor, 0, len(r.builtins)+len(r.skillSnapshot)+len(r.remoteSnapshot))
	out = append(out, r.builtins...)
	out = append(out, r.skillSnapshot...)
	out = append(out, r.remoteSnapshot...)
	return out
}

// Lookup 在当前快照中按名字解析一个工具。
func (r *Registry) Lookup(name string) (*models.ToolDescriptor, bool) {
	for _, d := range r.Snapshot() {
		if d.Name == name {
			desc := d
			return &desc, true
		}
	}
	return nil, false
}

// SkillCount 返回当前加载的声明式技能数量 (供 /health 上报)。
func (r *Registry) SkillCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.skillSnapshot)
}

// RemoteCount 返回当前加载的远程工具数量 (供 /health 上报)。
func (r *Registry) RemoteCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.remoteSnapshot)
}

// ReloadSkills 重新扫描技能目录并整体替换技能快照。
// 解析失败或名字非法的文件被跳过 (记日志, 不致命);
// 与内置工具同名的技能在这里被拒绝。返回加载成功的数量。
func (r *Registry) ReloadSkills() int {
	defs, err := r.skills.Load()
	if err != nil {
		r.log.WithError(err).Warn("技能目录扫描失败, 保留旧快照")
		return r.SkillCount()
	}

	builtinNames := map[string]bool{}
	for _, b := range r.builtins {
		builtinNames[b.Name] = true
	}

	seen := map[string]bool{}
	var snapshot []models.ToolDescriptor
	for _, def := range defs {
		name := "skill_" + def.Name
		if !validToolName.MatchString(def.Name) {
			r.log.WithField("skill", def.Name).Warn("技能名包含非法字符, 跳过")
			continue
		}
		if builtinNames[name] || builtinNames[def.Name] {
			r.log.WithField("skill", def.Name).Warn("技能名与内置工具冲突, 拒绝加载")
			continue
		}
		if seen[name] {
			r.log.WithField("skill", def.Name).Warn("技能名重复, 跳过后者")
			continue
		}
		seen[name] = true

		d := def
		snapshot = append(snapshot, models.ToolDescriptor{
			Name:        name,
			Description: def.Description,
			Kind:        models.ToolKindSkill,
			Params:      def.Parameters,
			Skill:       &d,
		})
	}

	r.mu.Lock()
	r.skillSnapshot = snapshot
	r.mu.Unlock()

	r.log.WithField("count", len(snapshot)).Info("声明式技能已重载")
	return len(snapshot)
}

// ReloadRemote 查询 Runner 的聚合目录并整体替换远程快照。
// Runner 不可达时保留上一份内存快照; 内存为空 (刚重启) 则尝试 Redis 缓存。
// 注册表永远返回可用的最佳快照, 而不是让整个目录失败。
func (r *Registry) ReloadRemote(ctx context.Context) int {
	if r.remote == nil {
		return 0
	}

	catalogs, err := r.remote.Catalog(ctx)
	if err != nil {
		r.log.WithError(err).Warn("Runner 目录不可达, 回退到缓存快照")
		r.mu.RLock()
		cached := len(r.remoteSnapshot)
		r.mu.RUnlock()
		if cached == 0 {
			r.loadRemoteFromCache(ctx)
		}
		return r.RemoteCount()
	}

	snapshot := flattenCatalogs(catalogs)

	r.mu.Lock()
	r.remoteSnapshot = snapshot
	r.mu.Unlock()

	r.persistRemoteCache(ctx, catalogs)
	r.log.WithField("count", len(snapshot)).Info("远程工具目录已重载")
	return len(snapshot)
}

// flattenCatalogs 把按服务器分组的目录展开为前缀命名的描述符列表,
// 保持发现顺序。
func flattenCatalogs(catalogs []RemoteCatalog) []models.ToolDescriptor {
	var out []models.ToolDescriptor
	for _, cat := range catalogs {
		for _, t := range cat.Tools {
			out = append(out, models.ToolDescriptor{
				Name:        fmt.Sprintf("srv_%s_%s", cat.Alias, t.Name),
				Description: fmt.Sprintf("[%s] %s", cat.Alias, t.Description),
				Kind:        models.ToolKindRemote,
				ServerAlias: cat.Alias,
				RemoteName:  t.Name,
				RawSchema:   t.InputSchema,
			})
		}
	}
	return out
}

func (r *Registry) persistRemoteCache(ctx context.Context, catalogs []RemoteCatalog) {
	if r.cache == nil {
		return
	}
	data, err := json.Marshal(catalogs)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, remoteCacheKey, data, 24*time.Hour).Err(); err != nil {
		r.log.WithError(err).Warn("远程目录写入 Redis 缓存失败")
	}
}

func (r *Registry) loadRemoteFromCache(ctx context.Context) {
	if r.cache == nil {
		return
	}
	data, err := r.cache.Get(ctx, remoteCacheKey).Bytes()
	if err != nil {
		return
	}
	var catalogs []RemoteCatalog
	if err := json.Unmarshal(data, &catalogs); err != nil {
		return
	}

	snapshot := flattenCatalogs(catalogs)
	r.mu.Lock()
	r.remoteSnapshot = snapshot
	r.mu.Unlock()
	r.log.WithField("count", len(snapshot)).Info("远程工具目录从缓存恢复")
}
