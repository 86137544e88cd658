package models

// 技能执行类型。command 在 Agent 主机上执行 shell 模板；
// http 以指定方法请求 URL 模板；webhook 与 http 相同但把参数作为 JSON body POST 出去。
const (
	SkillTypeCommand = "command"
	SkillTypeHTTP    = "http"
	SkillTypeWebhook = "webhook"
)

// SkillDefinition 是一条声明式技能记录，完全由数据定义，新增无需编码。
// 对应技能目录下的单个 YAML 文件，文件名由技能名派生。
type SkillDefinition struct {
	Name        string      `yaml:"name" json:"name"`                           // 工具标识符: 仅限字母/数字/下划线
	Label       string      `yaml:"label,omitempty" json:"label,omitempty"`     // 展示名称
	Description string      `yaml:"description" json:"description"`             // 供模型阅读的用途描述
	Type        string      `yaml:"type" json:"type"`                           // command | http | webhook
	Command     string      `yaml:"command,omitempty" json:"command,omitempty"` // type=command 时的 shell 模板, 占位符 {param}
	URL         string      `yaml:"url,omitempty" json:"url,omitempty"`         // type=http/webhook 时的 URL 模板
	Method      string      `yaml:"method,omitempty" json:"method,omitempty"`   // type=http 时的 HTTP 方法, 默认 GET
	Disabled    bool        `yaml:"disabled,omitempty" json:"disabled,omitempty"`
	Parameters  []ParamSpec `yaml:"parameters,omitempty" json:"parameters,omitempty"`
}
