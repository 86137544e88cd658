package models

// 会话角色。tool 角色携带某次工具调用的文本结果。
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Turn 是一条会话记录。Agent 循环不拥有会话历史，
// 历史由调用方（聊天适配层）按最近 N 条截断后随请求传入。
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
