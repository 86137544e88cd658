package models

// 运行事件类型。一次 Agent 运行产生的事件流以恰好一个 result 事件结束。
const (
	EventThinking = "thinking"
	EventProgress = "progress"
	EventResult   = "result"
)

// RunEvent 是 Agent 循环向调用方输出的进度/结果事件，
// 以 NDJSON 形式流式返回给聊天适配层。
type RunEvent struct {
	Type    string  `json:"type"`
	Text    string  `json:"text,omitempty"`
	Elapsed float64 `json:"elapsed,omitempty"` // 秒, 仅 result 事件携带
	Model   string  `json:"model,omitempty"`   // 实际使用的模型, 仅 result 事件携带
}

// ThinkingEvent 构造一个 thinking 事件。
func ThinkingEvent() RunEvent {
	return RunEvent{Type: EventThinking}
}

// ProgressEvent 构造一个带人类可读标签的 progress 事件。
func ProgressEvent(text string) RunEvent {
	return RunEvent{Type: EventProgress, Text: text}
}

// ResultEvent 构造终止事件。
func ResultEvent(text string, elapsed float64, model string) RunEvent {
	return RunEvent{Type: EventResult, Text: text, Elapsed: elapsed, Model: model}
}
