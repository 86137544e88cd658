package tools

import "OpenClaw/backend/go/internal/models"

// BuiltinDescriptors 返回始终存在的内置工具目录。
// 顺序即呈现给模型的顺序。
func BuiltinDescriptors() []models.ToolDescriptor {
	return []models.ToolDescriptor{
		{
			Name: "run_command",
			Description: "Run a shell command on the server. Use this for WP-CLI (wp) commands to manage " +
				"the WordPress site: plugins, themes, posts, users, options, database queries. " +
				"Also usable for general server tasks (ls, cat, curl, df). Output is truncated if very long.",
			Kind: models.ToolKindBuiltin,
			Params: []models.ParamSpec{
				{Name: "command", Type: "string", Description: "The shell command to execute", Required: true},
			},
		},
		{
			Name: "wp_rest",
			Description: "Call the WordPress REST API directly. Use when WP-CLI is unavailable or for " +
				"endpoints that are easier over REST. Returns the HTTP status and response body.",
			Kind: models.ToolKindBuiltin,
			Params: []models.ParamSpec{
				{Name: "method", Type: "string", Description: "HTTP method: GET, POST, PUT or DELETE", Required: true},
				{Name: "route", Type: "string", Description: "REST route, e.g. /wp/v2/posts", Required: true},
				{Name: "body", Type: "string", Description: "JSON request body for POST/PUT", Required: false},
			},
		},
		{
			Name: "wp_cli_remote",
			Description: "Run a WP-CLI command on the remote WordPress site through its bridge plugin. " +
				"Only available when the site is managed remotely. Pass the command without the leading 'wp'.",
			Kind: models.ToolKindBuiltin,
			Params: []models.ParamSpec{
				{Name: "command", Type: "string", Description: "WP-CLI subcommand, e.g. 'plugin list --format=json'", Required: true},
			},
		},
		{
			Name: "schedule_task",
			Description: "Schedule an instruction to run later, once or on a recurring cron expression. " +
				"The instruction is executed by the agent at the scheduled time and the result is " +
				"delivered to the administrators. Provide exactly one of run_at or cron.",
			Kind: models.ToolKindBuiltin,
			Params: []models.ParamSpec{
				{Name: "instruction", Type: "string", Description: "Natural-language instruction to execute at fire time", Required: true},
				{Name: "label", Type: "string", Description: "Short human-readable label for the job", Required: true},
				{Name: "run_at", Type: "string", Description: "One-shot fire time, RFC 3339 (e.g. 2026-09-01T09:00:00Z)", Required: false},
				{Name: "cron", Type: "string", Description: "Recurring 5-field cron expression (e.g. '0 9 * * 1')", Required: false},
			},
		},
	}
}
