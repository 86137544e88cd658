package tools

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// shellTimeout 是单条命令的硬性墙钟超时。
const shellTimeout = 120 * time.Second

// RunCommand 在 Agent 主机上执行一条 shell 命令。
// 输出超过 maxOutputChars 时截断并附上截断标记；超时后进程组被整体杀掉，
// 返回错误文本而不是悬挂的循环。所有失败都以文本返回，调用方永远不会收到 error。
func RunCommand(ctx context.Context, command string, maxOutputChars int) string {
	if pattern, blocked := IsBlocked(command); blocked {
		return fmt.Sprintf("ERROR: Command '%s' is blocked for safety reasons.", pattern)
	}

	ctx, cancel := context.WithTimeout(ctx, shellTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	cmd.Env = append(os.Environ(), "HOME=/root")
	// 新进程组, 超时时连同子进程一起回收, 不留孤儿。
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Sprintf("ERROR: Command timed out after %d seconds.", int(shellTimeout.Seconds()))
	}

	output := buf.String()
	if err != nil && strings.TrimSpace(output) == "" {
		return fmt.Sprintf("ERROR: %v", err)
	}

	output = Truncate(output, maxOutputChars)
	if strings.TrimSpace(output) == "" {
		return "(command completed with no output)"
	}
	return output
}

// Truncate 在超过上限时截断文本, 并附上说明原始长度的标记。
func Truncate(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return text
	}
	return text[:limit] + fmt.Sprintf("\n... [truncated, %d total chars]", len(text))
}
