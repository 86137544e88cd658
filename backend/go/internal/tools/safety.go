package tools

import "strings"

// denyList 是大小写不敏感的子串黑名单：破坏性的数据库操作、任意代码
// 求值、交互式 shell、以及文件系统级的毁灭性模式。
var denyList = []string{
	"wp db drop", "wp db reset", "wp site empty",
	"wp eval", "wp eval-file", "wp shell",
	"rm -rf /", "mkfs", "dd if=",
	"> /dev/sda", "chmod 777 /",
}

// IsBlocked 对命令文本做大小写不敏感的子串匹配，命中任意黑名单项即拦截。
// 返回命中的模式, 便于在错误文本里告知模型原因。
//
// 这是尽力而为的纵深防御，不是沙箱：它不解析 shell 语法，既可能误杀
// （无害命令恰好包含黑名单子串），也可能漏杀（等价命令换一种写法绕过
// 字面匹配）。这个局限是已知且接受的，不要试图通过引入 shell 解析器
// 来"修复"它。
//
// 检查点有两处：执行 shell 类工具调用之前，以及注册新的声明式技能之前
// ——坏技能在创建时就被拒绝，而不只是在调用时。
func IsBlocked(commandText string) (string, bool) {
	lower := strings.ToLower(commandText)
	for _, pattern := range denyList {
		if strings.Contains(lower, pattern) {
			return pattern, true
		}
	}
	return "", false
}
