package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"OpenClaw/backend/go/internal/config"
	"OpenClaw/backend/go/internal/llm"
	"OpenClaw/backend/go/internal/models"
	"OpenClaw/backend/go/internal/tools"
	"OpenClaw/backend/go/pkg/logger"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// ChatClient 是 Agent 循环对 LLM 的最小依赖, 测试时用假实现替换。
type ChatClient interface {
	Chat(ctx context.Context, model string, messages []openai.ChatCompletionMessage, toolDefs []openai.Tool) (openai.ChatCompletionMessage, error)
}

// Loop 驱动一次完整的 Agent 运行: 取目录快照、请求模型、顺序执行
// 工具调用、把结果喂回去, 直到模型给出纯文本回答或步数预算耗尽。
type Loop struct {
	chat       ChatClient
	registry   *tools.Registry
	dispatcher *tools.Dispatcher
	llmCfg     config.LLMConfig
	agentCfg   config.AgentConfig
	log        *logger.Logger
}

func NewLoop(chat ChatClient, registry *tools.Registry, dispatcher *tools.Dispatcher, llmCfg config.LLMConfig, agentCfg config.AgentConfig, log *logger.Logger) *Loop {
	return &Loop{
		chat:       chat,
		registry:   registry,
		dispatcher: dispatcher,
		llmCfg:     llmCfg,
		agentCfg:   agentCfg,
		log:        log,
	}
}

// Run 执行一次运行并把事件流写入返回的 channel。channel 在运行结束时
// 关闭, 最后一个事件必然是 result (正常回答、错误或预算耗尽都折叠成
// result 文本)。调用方取消 ctx 可提前终止。
func (l *Loop) Run(ctx context.Context, systemPrompt string, history []models.Turn, userMessage string) <-chan models.RunEvent {
	events := make(chan models.RunEvent, 16)
	go func() {
		defer close(events)
		l.drive(ctx, systemPrompt, history, userMessage, events)
	}()
	return events
}

// RunHeadless 以无会话模式执行一条指令, 只返回最终文本。
// 调度器触发任务时走这条路径。
func (l *Loop) RunHeadless(ctx context.Context, systemPrompt, instruction string) (string, error) {
	var result string
	for ev := range l.Run(ctx, systemPrompt, nil, instruction) {
		if ev.Type == models.EventResult {
			result = ev.Text
		}
	}
	if result == "" {
		return "", fmt.Errorf("运行未产生结果")
	}
	return result, nil
}

func (l *Loop) drive(ctx context.Context, systemPrompt string, history []models.Turn, userMessage string, events chan<- models.RunEvent) {
	start := time.Now()

	messages := llm.BuildMessages(systemPrompt, history, userMessage)
	model := l.llmCfg.DefaultModel
	usedFallback := false

	emit := func(ev models.RunEvent) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}
	finish := func(text string) {
		emit(models.ResultEvent(text, time.Since(start).Seconds(), model))
	}

	for step := 0; step < l.agentCfg.MaxSteps; step++ {
		if ctx.Err() != nil {
			return
		}

		// 每一步开始都提示 thinking: 工具批次结束后调用方也能看到
		// 下一次模型请求正在进行。
		if !emit(models.ThinkingEvent()) {
			return
		}

		// 每一步都重新取快照: 两次工具调用之间的重载立即可见。
		snapshot := l.registry.Snapshot()
		toolDefs := llm.ConvertDescriptors(snapshot)

		msg, err := l.chat.Chat(ctx, model, messages, toolDefs)
		if err != nil {
			// 主模型失败切备用模型重试一次, 备用也失败才放弃。
			if !usedFallback && l.llmCfg.FallbackModel != "" && l.llmCfg.FallbackModel != model {
				l.log.WithField("model", model).WithError(err).Warn("主模型调用失败, 切换备用模型")
				if !emit(models.ProgressEvent(fmt.Sprintf("Switching to fallback model (%s)...", l.llmCfg.FallbackModel))) {
					return
				}
				model = l.llmCfg.FallbackModel
				usedFallback = true
				msg, err = l.chat.Chat(ctx, model, messages, toolDefs)
			}
			if err != nil {
				l.log.WithError(err).Error("LLM 调用失败")
				finish(fmt.Sprintf("ERROR: The model request failed: %v", err))
				return
			}
		}

		if len(msg.ToolCalls) == 0 {
			finish(msg.Content)
			return
		}

		messages = append(messages, msg)
		for _, call := range msg.ToolCalls {
			name := call.Function.Name
			args := map[string]any{}
			var out string
			if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
				out = fmt.Sprintf("ERROR: Invalid tool arguments: %v", err)
			} else {
				if !emit(models.ProgressEvent(tools.ToolLabel(name, args))) {
					return
				}
				desc := lookup(snapshot, name)
				out = l.dispatcher.Execute(ctx, desc, name, args)
			}
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    out,
				ToolCallID: call.ID,
			})
		}
	}

	l.log.WithField("max_steps", l.agentCfg.MaxSteps).Warn("步数预算耗尽")
	finish(fmt.Sprintf("I hit the step limit (%d) before finishing. Here is where I got; "+
		"ask me to continue if needed.", l.agentCfg.MaxSteps))
}

func lookup(snapshot []models.ToolDescriptor, name string) *models.ToolDescriptor {
	for i := range snapshot {
		if snapshot[i].Name == name {
			return &snapshot[i]
		}
	}
	return nil
}
