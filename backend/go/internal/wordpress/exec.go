package wordpress

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// runLocal 执行一条内部构造的本机命令 (WP-CLI), 返回合并输出。
// 与 Agent 的 shell 工具不同, 这里的命令不来自模型, 无需经过安全过滤。
func runLocal(ctx context.Context, command string) string {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	cmd.Env = append(os.Environ(), "HOME=/root")

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	if err := cmd.Run(); err != nil && buf.Len() == 0 {
		return fmt.Sprintf("ERROR: %v", err)
	}
	return buf.String()
}
