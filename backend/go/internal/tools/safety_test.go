package tools

import (
	"context"
	"strings"
	"testing"
)

func TestIsBlocked_DestructivePatterns(t *testing.T) {
	blocked := []string{
		"wp db drop --yes",
		"wp db reset",
		"wp site empty --uploads",
		"wp eval 'echo 1;'",
		"wp eval-file payload.php",
		"wp shell",
		"rm -rf / --no-preserve-root",
		"mkfs.ext4 /dev/sdb1",
		"dd if=/dev/zero of=/dev/sda",
		"echo x > /dev/sda",
		"chmod 777 /",
	}
	for _, cmd := range blocked {
		if _, ok := IsBlocked(cmd); !ok {
			t.Errorf("Expected %q to be blocked", cmd)
		}
	}
}

func TestIsBlocked_CaseInsensitive(t *testing.T) {
	pattern, ok := IsBlocked("WP DB DROP")
	if !ok {
		t.Fatal("Expected uppercase variant to be blocked")
	}
	if pattern != "wp db drop" {
		t.Errorf("Expected matched pattern 'wp db drop', got %q", pattern)
	}
}

func TestIsBlocked_SubstringAnywhere(t *testing.T) {
	// The filter is a substring match, not a prefix match.
	if _, ok := IsBlocked("echo hello && wp db drop"); !ok {
		t.Error("Expected deny-listed substring inside a compound command to be blocked")
	}
}

func TestIsBlocked_AllowsNormalCommands(t *testing.T) {
	allowed := []string{
		"wp plugin list --format=json",
		"wp db query 'SELECT 1'",
		"wp post create --post_title=Hello",
		"ls -la /var/www/html",
		"df -h",
	}
	for _, cmd := range allowed {
		if pattern, ok := IsBlocked(cmd); ok {
			t.Errorf("Expected %q to be allowed, matched %q", cmd, pattern)
		}
	}
}

func TestRunCommand_BlockedCommandNotExecuted(t *testing.T) {
	out := RunCommand(context.Background(), "wp db drop --yes", 8000)
	if !strings.HasPrefix(out, "ERROR:") {
		t.Fatalf("Expected an error message for a blocked command, got %q", out)
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("a", 100)
	out := Truncate(long, 10)
	if !strings.HasPrefix(out, strings.Repeat("a", 10)) {
		t.Errorf("Expected truncated output to keep the prefix, got %q", out)
	}
	if !strings.Contains(out, "100 total chars") {
		t.Errorf("Expected truncation marker with original length, got %q", out)
	}

	short := "short"
	if got := Truncate(short, 10); got != short {
		t.Errorf("Expected short text to pass through unchanged, got %q", got)
	}
}

func TestRunCommand_CapturesOutput(t *testing.T) {
	out := RunCommand(context.Background(), "echo hello", 8000)
	if strings.TrimSpace(out) != "hello" {
		t.Errorf("Expected 'hello', got %q", out)
	}
}

func TestRunCommand_EmptyOutput(t *testing.T) {
	out := RunCommand(context.Background(), "true", 8000)
	if !strings.Contains(out, "no output") {
		t.Errorf("Expected the no-output placeholder, got %q", out)
	}
}
