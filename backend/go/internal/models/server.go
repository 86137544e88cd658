package models

import "time"

// RemoteTool 是工具服务器在内省阶段上报的一条工具能力。
type RemoteTool struct {
	Name        string                 `yaml:"name" json:"name"`
	Description string                 `yaml:"description" json:"description"`
	InputSchema map[string]interface{} `yaml:"inputSchema" json:"input_schema"`
}

// ServerRecord 是 Runner 拥有的工具服务器记录。
// Agent 侧只通过内省看到扁平化的工具列表，从不接触该记录本身。
type ServerRecord struct {
	Alias       string       `yaml:"alias" json:"alias"`             // 本地别名, 文件系统安全
	PackageID   string       `yaml:"packageId" json:"package_id"`    // 后备包标识符 (必须在允许列表内)
	Tools       []RemoteTool `yaml:"tools" json:"tools"`             // 内省发现的工具清单
	InstalledAt time.Time    `yaml:"installedAt" json:"installed_at"`
}
