package models

// ToolKind 是工具来源的封闭枚举。
// 路由在注册表快照生成时一次性解析，而不是在每次调用时重新解析名称字符串。
type ToolKind int

const (
	// ToolKindBuiltin 表示编译进运行时的内置工具。
	ToolKindBuiltin ToolKind = iota
	// ToolKindSkill 表示由 YAML 数据记录定义的声明式技能。
	ToolKindSkill
	// ToolKindRemote 表示由外部工具服务器 (Runner 托管的子进程) 提供的工具。
	ToolKindRemote
)

// String 返回工具来源的字符串表示。
func (k ToolKind) String() string {
	switch k {
	case ToolKindBuiltin:
		return "builtin"
	case ToolKindSkill:
		return "skill"
	case ToolKindRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// ParamSpec 描述工具的一个参数。
type ParamSpec struct {
	Name        string `yaml:"name" json:"name"`               // 参数名称
	Type        string `yaml:"type" json:"type"`               // 参数类型: string | integer | boolean
	Description string `yaml:"description" json:"description"` // 参数描述 (供模型阅读)
	Required    bool   `yaml:"required" json:"required"`       // 是否必填
}

// ToolDescriptor 是注册表快照中的一条工具能力记录。
// Name 在同一快照内全局唯一；与内置工具同名的声明式技能在加载时被拒绝。
type ToolDescriptor struct {
	Name        string      // 全局唯一的工具名
	Description string      // 工具描述 (供模型决定是否调用)
	Kind        ToolKind    // 工具来源
	Params      []ParamSpec // 参数列表

	// Kind == ToolKindSkill 时有效：完整的技能定义。
	Skill *SkillDefinition

	// Kind == ToolKindRemote 时有效：所属服务器别名与服务器侧原始工具名。
	ServerAlias string
	RemoteName  string

	// Kind == ToolKindRemote 时有效：服务器提供的原始 JSON Schema。
	RawSchema map[string]interface{}
}
