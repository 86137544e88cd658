package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"OpenClaw/backend/go/internal/models"
	"OpenClaw/backend/go/internal/wordpress"
	httpclient "OpenClaw/backend/go/pkg/http"
	"OpenClaw/backend/go/pkg/logger"
)

// JobScheduler 是 schedule_task 内置工具背后的调度器。
// 接口定义在这里以避免与 scheduler 包形成环: 调度器触发 Agent,
// Agent 的调度工具又指回调度器。
type JobScheduler interface {
	Schedule(ctx context.Context, instruction, label string, runAt *time.Time, cron string) (*models.ScheduledJob, time.Time, error)
}

// RemoteCaller 把一次远程工具调用转发给 Runner。
type RemoteCaller interface {
	Call(ctx context.Context, alias, tool string, args map[string]any) (string, error)
}

// Dispatcher 按工具种类路由一次工具调用并返回喂回模型的文本。
// Execute 从不返回 error: 任何失败都被折叠成 "ERROR: ..." 文本, 由模型
// 决定如何继续。种类在快照时已经解析好, 这里只做 switch, 不再猜名字。
type Dispatcher struct {
	wp        *wordpress.Client
	scheduler JobScheduler
	remote    RemoteCaller
	httpc     *httpclient.Client
	maxOutput int
	log       *logger.Logger
}

func NewDispatcher(wp *wordpress.Client, scheduler JobScheduler, remote RemoteCaller, httpc *httpclient.Client, maxOutput int, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		wp:        wp,
		scheduler: scheduler,
		remote:    remote,
		httpc:     httpc,
		maxOutput: maxOutput,
		log:       log,
	}
}

// Execute 执行一个已解析的工具调用。desc 为 nil 表示模型报了一个
// 快照里不存在的名字。
func (d *Dispatcher) Execute(ctx context.Context, desc *models.ToolDescriptor, name string, args map[string]any) string {
	if desc == nil {
		return fmt.Sprintf("ERROR: Unknown tool: %s", name)
	}

	start := time.Now()
	var out string
	switch desc.Kind {
	case models.ToolKindBuiltin:
		out = d.executeBuiltin(ctx, desc.Name, args)
	case models.ToolKindSkill:
		out = d.executeSkill(ctx, desc.Skill, args)
	case models.ToolKindRemote:
		out = d.executeRemote(ctx, desc, args)
	default:
		out = fmt.Sprintf("ERROR: Unknown tool kind for %s", desc.Name)
	}

	d.log.WithPayload(map[string]any{
		"tool":    desc.Name,
		"elapsed": time.Since(start).Seconds(),
	}).Info("工具调用完成")
	return Truncate(out, d.maxOutput)
}

func (d *Dispatcher) executeBuiltin(ctx context.Context, name string, args map[string]any) string {
	switch name {
	case "run_command":
		return RunCommand(ctx, stringArg(args, "command"), d.maxOutput)
	case "wp_rest":
		var body map[string]interface{}
		if raw := stringArg(args, "body"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &body); err != nil {
				return fmt.Sprintf("ERROR: Invalid JSON body: %v", err)
			}
		}
		return d.wp.Rest(ctx, stringArg(args, "method"), stringArg(args, "route"), body, nil)
	case "wp_cli_remote":
		return d.wp.BridgeCLI(ctx, stringArg(args, "command"))
	case "schedule_task":
		return d.executeSchedule(ctx, args)
	}
	return fmt.Sprintf("ERROR: Unknown tool: %s", name)
}

func (d *Dispatcher) executeSchedule(ctx context.Context, args map[string]any) string {
	instruction := stringArg(args, "instruction")
	label := stringArg(args, "label")
	runAtRaw := stringArg(args, "run_at")
	cron := stringArg(args, "cron")

	if instruction == "" || label == "" {
		return "ERROR: schedule_task requires both 'instruction' and 'label'."
	}
	if (runAtRaw == "") == (cron == "") {
		return "ERROR: Provide exactly one of 'run_at' or 'cron'."
	}

	var runAt *time.Time
	if runAtRaw != "" {
		t, err := time.Parse(time.RFC3339, runAtRaw)
		if err != nil {
			return fmt.Sprintf("ERROR: Invalid run_at %q, expected RFC 3339: %v", runAtRaw, err)
		}
		runAt = &t
	}

	job, next, err := d.scheduler.Schedule(ctx, instruction, label, runAt, cron)
	if err != nil {
		return fmt.Sprintf("ERROR: Failed to schedule task: %v", err)
	}
	return fmt.Sprintf("✅ Scheduled %q (id %s), next run at %s.", job.Label, job.ID, next.Format(time.RFC3339))
}

// executeSkill 把实参代入技能模板并按类型执行。
// 代入发生在调度时而非加载时, 每个占位符的所有出现都被替换。
func (d *Dispatcher) executeSkill(ctx context.Context, skill *models.SkillDefinition, args map[string]any) string {
	if skill == nil {
		return "ERROR: Skill definition missing."
	}

	switch skill.Type {
	case models.SkillTypeCommand:
		command := skill.Command
		for _, p := range skill.Parameters {
			command = strings.ReplaceAll(command, "{"+p.Name+"}", shellQuote(stringArg(args, p.Name)))
		}
		// 模板合法不代表代入后合法, 这里是第二道安全检查。
		return RunCommand(ctx, command, d.maxOutput)

	case models.SkillTypeHTTP:
		url := skill.URL
		for _, p := range skill.Parameters {
			url = strings.ReplaceAll(url, "{"+p.Name+"}", stringArg(args, p.Name))
		}
		method := strings.ToUpper(skill.Method)
		if method == "" {
			method = http.MethodGet
		}
		return d.doHTTP(ctx, method, url, nil)

	case models.SkillTypeWebhook:
		url := skill.URL
		for _, p := range skill.Parameters {
			url = strings.ReplaceAll(url, "{"+p.Name+"}", stringArg(args, p.Name))
		}
		// reason 只是进度标签, 不属于 webhook 的载荷。
		body := make(map[string]any, len(args))
		for k, v := range args {
			if k == "reason" {
				continue
			}
			body[k] = v
		}
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Sprintf("ERROR: %v", err)
		}
		return d.doHTTP(ctx, http.MethodPost, url, payload)
	}
	return fmt.Sprintf("ERROR: Unknown skill type: %s", skill.Type)
}

func (d *Dispatcher) doHTTP(ctx context.Context, method, url string, body []byte) string {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Sprintf("ERROR: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := d.httpc.Do(req)
	if err != nil {
		return fmt.Sprintf("ERROR: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Sprintf("ERROR: %v", err)
	}
	return fmt.Sprintf("HTTP %d\n%s", resp.StatusCode, string(respBody))
}

func (d *Dispatcher) executeRemote(ctx context.Context, desc *models.ToolDescriptor, args map[string]any) string {
	if d.remote == nil {
		return "ERROR: No tool runner configured."
	}
	out, err := d.remote.Call(ctx, desc.ServerAlias, desc.RemoteName, args)
	if err != nil {
		return fmt.Sprintf("ERROR: %v", err)
	}
	return out
}

// ToolLabel 生成一次工具调用的进度标签。reason 形参存在于每个工具上,
// 有就用它, 没有再退回到具体实参。
func ToolLabel(name string, args map[string]any) string {
	if reason := stringArg(args, "reason"); reason != "" {
		return reason
	}
	switch name {
	case "run_command":
		if cmd := stringArg(args, "command"); cmd != "" {
			return fmt.Sprintf("Running: %s", firstLine(cmd, 80))
		}
	case "wp_rest":
		return fmt.Sprintf("Calling %s %s", stringArg(args, "method"), stringArg(args, "route"))
	case "wp_cli_remote":
		return fmt.Sprintf("Running: wp %s", firstLine(stringArg(args, "command"), 80))
	case "schedule_task":
		return fmt.Sprintf("Scheduling: %s", stringArg(args, "label"))
	}
	return fmt.Sprintf("Using tool: %s", name)
}

func stringArg(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	v, ok := args[key]
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func firstLine(s string, limit int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}

// shellQuote 用单引号包裹实参, 防止代入后的值改变命令结构。
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
