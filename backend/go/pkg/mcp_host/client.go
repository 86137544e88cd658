package mcp_host

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// Host 按需把工具服务器包启动为子进程，通过标准输入输出执行
// 两阶段 JSON-RPC 握手 (initialize, 然后 list-tools 或 call-tool)。
// 每次内省和每次调用各启动一个进程，不维护常驻连接池——该路径由
// 操作员触发，不是热路径，简单性优先于吞吐。
// 每个出口路径 (成功、错误、超时) 都保证子进程被终止。
type Host struct {
	timeout time.Duration // 单次往返的硬超时
}

// SpawnOptions 描述如何启动一个工具服务器子进程。
type SpawnOptions struct {
	Command string   // 可执行文件
	Args    []string // 启动参数
	Env     []string // 附加环境变量 (KEY=VALUE)
}

// NewHost 创建一个新的 Host 实例。
func NewHost(timeout time.Duration) *Host {
	return &Host{timeout: timeout}
}

// connect 启动子进程并完成 initialize 握手。
// 调用方必须在所有路径上调用返回的 closer。
func (h *Host) connect(ctx context.Context, opts SpawnOptions) (*client.Client, func(), error) {
	mcpClient, err := client.NewStdioMCPClient(opts.Command, opts.Env, opts.Args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to spawn tool server: %w", err)
	}
	closer := func() {
		// Close 终止子进程并回收, 不会留下孤儿进程。
		_ = mcpClient.Close()
	}

	initRequest := mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			ClientInfo: mcp.Implementation{
				Name:    "openclaw-runner",
				Version: "1.0.0",
			},
			Capabilities: mcp.ClientCapabilities{},
		},
	}

	if _, err := mcpClient.Initialize(ctx, initRequest); err != nil {
		closer()
		return nil, nil, fmt.Errorf("failed to initialize tool server: %w", err)
	}

	return mcpClient, closer, nil
}

// ListTools 启动一次子进程, 内省其工具目录后立即终止它。
func (h *Host) ListTools(ctx context.Context, opts SpawnOptions) ([]mcp.Tool, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	mcpClient, closer, err := h.connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	defer closer()

	result, err := mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	return result.Tools, nil
}

// CallTool 启动一次子进程, 调用指定工具并把结果扁平化为文本。
// 服务器以 isError 标记的结果作为 error 返回, 由上层转成模型可见的错误文本。
func (h *Host) CallTool(ctx context.Context, opts SpawnOptions, toolName string, args map[string]interface{}) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	mcpClient, closer, err := h.connect(ctx, opts)
	if err != nil {
		return "", err
	}
	defer closer()

	result, err := mcpClient.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      toolName,
			Arguments: args,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to call tool '%s': %w", toolName, err)
	}

	text := FlattenContent(result.Content)
	if result.IsError {
		return "", fmt.Errorf("tool '%s' reported an error: %s", toolName, text)
	}
	return text, nil
}

// FlattenContent 把 MCP 内容块拼接为纯文本, 非文本块以占位符表示。
func FlattenContent(content []mcp.Content) string {
	var parts []string
	for _, c := range content {
		if tc, ok := mcp.AsTextContent(c); ok {
			parts = append(parts, tc.Text)
			continue
		}
		parts = append(parts, "(non-text content)")
	}
	return strings.Join(parts, "\n")
}
