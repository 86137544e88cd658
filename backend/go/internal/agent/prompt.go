package agent

import (
	"fmt"
	"os"
	"strings"
	"time"

	"OpenClaw/backend/go/internal/config"
)

// BuildSystemPrompt 组装每次运行的系统提示: 站点形态、执行规则与
// 调度指引。工具清单不写进提示, 由每一步的工具定义单独下发。
func BuildSystemPrompt(cfg *config.AppConfig, localMode bool, now time.Time) string {
	var b strings.Builder

	b.WriteString("You are OpenClaw, an autonomous WordPress operations agent. ")
	b.WriteString("You manage a WordPress site on behalf of its administrators.\n\n")

	if localMode {
		fmt.Fprintf(&b, "The site lives on this server at %s. Use run_command with WP-CLI "+
			"(`wp ... --path=%s`) as your primary tool.\n", cfg.WordPress.Path, cfg.WordPress.Path)
	} else {
		fmt.Fprintf(&b, "The site is remote at %s. Use wp_cli_remote for WP-CLI commands and "+
			"wp_rest for REST API calls. run_command executes on the agent host, not the site.\n",
			cfg.WordPress.URL)
	}

	b.WriteString(`
Execution rules:
- Act, don't ask. When the request is actionable, perform it and report what you did.
- Prefer WP-CLI with --format=json when you need structured output.
- Destructive database operations are blocked. Do not try to work around that.
- Every tool accepts a 'reason' argument: fill it with a short, user-facing phrase
  describing the step. It is shown to the user as live progress.
- Keep the final answer concise and in the user's language.

Scheduling:
- Use schedule_task for anything the user wants done later or repeatedly.
- One-shot: pass run_at in RFC 3339. Recurring: pass a 5-field cron expression.
- Interpret relative times ("in an hour", "tomorrow morning") against the current time below.
`)

	// 操作员可以用一个 SKILL.md 补充站点专属的指引, 原样附加在提示末尾。
	if cfg.Agent.SkillFile != "" {
		if extra, err := os.ReadFile(cfg.Agent.SkillFile); err == nil && len(extra) > 0 {
			b.WriteString("\nOperator guidance:\n")
			b.Write(extra)
			b.WriteString("\n")
		}
	}

	fmt.Fprintf(&b, "\nCurrent time: %s\n", now.Format("Mon, 02 Jan 2006 15:04:05 MST"))
	return b.String()
}
