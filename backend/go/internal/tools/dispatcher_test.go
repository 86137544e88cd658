package tools

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"OpenClaw/backend/go/internal/config"
	"OpenClaw/backend/go/internal/models"
	httpclient "OpenClaw/backend/go/pkg/http"
)

type fakeJobScheduler struct {
	lastInstruction string
	lastCron        string
	lastRunAt       *time.Time
	err             error
}

func (f *fakeJobScheduler) Schedule(ctx context.Context, instruction, label string, runAt *time.Time, cron string) (*models.ScheduledJob, time.Time, error) {
	if f.err != nil {
		return nil, time.Time{}, f.err
	}
	f.lastInstruction = instruction
	f.lastCron = cron
	f.lastRunAt = runAt
	next := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	return &models.ScheduledJob{ID: "job-1", Label: label}, next, nil
}

func newTestDispatcher(sched JobScheduler) *Dispatcher {
	hc, _ := httpclient.NewClient(config.CircuitBreakerConfig{}, 5*time.Second)
	return NewDispatcher(nil, sched, nil, hc, 8000, testLogger())
}

func TestDispatcher_UnknownTool(t *testing.T) {
	d := newTestDispatcher(nil)
	out := d.Execute(context.Background(), nil, "no_such_tool", nil)
	if !strings.Contains(out, "Unknown tool") {
		t.Errorf("Expected unknown-tool error text, got %q", out)
	}
}

func TestDispatcher_RunCommand(t *testing.T) {
	d := newTestDispatcher(nil)
	desc := &models.ToolDescriptor{Name: "run_command", Kind: models.ToolKindBuiltin}
	out := d.Execute(context.Background(), desc, "run_command", map[string]any{"command": "echo dispatched"})
	if strings.TrimSpace(out) != "dispatched" {
		t.Errorf("Expected command output, got %q", out)
	}
}

func TestDispatcher_ScheduleTask_Validation(t *testing.T) {
	d := newTestDispatcher(&fakeJobScheduler{})
	desc := &models.ToolDescriptor{Name: "schedule_task", Kind: models.ToolKindBuiltin}

	cases := []struct {
		name string
		args map[string]any
	}{
		{"missing instruction", map[string]any{"label": "x", "cron": "0 9 * * *"}},
		{"neither trigger", map[string]any{"instruction": "do it", "label": "x"}},
		{"both triggers", map[string]any{
			"instruction": "do it", "label": "x",
			"run_at": "2026-09-01T09:00:00Z", "cron": "0 9 * * *",
		}},
		{"bad run_at", map[string]any{"instruction": "do it", "label": "x", "run_at": "tomorrow"}},
	}
	for _, tc := range cases {
		out := d.Execute(context.Background(), desc, "schedule_task", tc.args)
		if !strings.HasPrefix(out, "ERROR:") {
			t.Errorf("%s: expected validation error, got %q", tc.name, out)
		}
	}
}

func TestDispatcher_ScheduleTask_Success(t *testing.T) {
	sched := &fakeJobScheduler{}
	d := newTestDispatcher(sched)
	desc := &models.ToolDescriptor{Name: "schedule_task", Kind: models.ToolKindBuiltin}

	out := d.Execute(context.Background(), desc, "schedule_task", map[string]any{
		"instruction": "check for plugin updates",
		"label":       "weekly updates",
		"cron":        "0 9 * * 1",
	})
	if !strings.Contains(out, "job-1") {
		t.Errorf("Expected confirmation with the job id, got %q", out)
	}
	if sched.lastCron != "0 9 * * 1" {
		t.Errorf("Expected cron passed through, got %q", sched.lastCron)
	}
}

func TestDispatcher_SkillSubstitutesEveryOccurrence(t *testing.T) {
	d := newTestDispatcher(nil)
	skill := &models.SkillDefinition{
		Name:    "greet_twice",
		Type:    models.SkillTypeCommand,
		Command: "echo {name} {name}",
		Parameters: []models.ParamSpec{
			{Name: "name", Type: "string", Required: true},
		},
	}
	desc := &models.ToolDescriptor{Name: "skill_greet_twice", Kind: models.ToolKindSkill, Skill: skill}

	out := d.Execute(context.Background(), desc, "skill_greet_twice", map[string]any{"name": "world"})
	if strings.TrimSpace(out) != "world world" {
		t.Errorf("Expected both placeholders substituted, got %q", out)
	}
}

func TestDispatcher_SkillBlockedAfterSubstitution(t *testing.T) {
	d := newTestDispatcher(nil)
	// The template is harmless; the substituted argument makes it destructive.
	skill := &models.SkillDefinition{
		Name:    "run_anything",
		Type:    models.SkillTypeCommand,
		Command: "echo {msg}",
		Parameters: []models.ParamSpec{
			{Name: "msg", Type: "string", Required: true},
		},
	}
	desc := &models.ToolDescriptor{Name: "skill_run_anything", Kind: models.ToolKindSkill, Skill: skill}

	out := d.Execute(context.Background(), desc, "skill_run_anything", map[string]any{"msg": "rm -rf /"})
	if !strings.HasPrefix(out, "ERROR:") {
		t.Errorf("Expected the post-substitution safety check to fire, got %q", out)
	}
}

func TestDispatcher_HTTPSkillSubstitutesURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("page for " + r.URL.Path))
	}))
	defer srv.Close()

	d := newTestDispatcher(nil)
	skill := &models.SkillDefinition{
		Name: "fetch_page",
		Type: models.SkillTypeHTTP,
		URL:  srv.URL + "/pages/{slug}",
		Parameters: []models.ParamSpec{
			{Name: "slug", Type: "string", Required: true},
		},
	}
	desc := &models.ToolDescriptor{Name: "skill_fetch_page", Kind: models.ToolKindSkill, Skill: skill}

	out := d.Execute(context.Background(), desc, "skill_fetch_page", map[string]any{"slug": "about"})
	if !strings.Contains(out, "HTTP 200") {
		t.Errorf("Expected the response status in the output, got %q", out)
	}
	if !strings.Contains(out, "page for /pages/about") {
		t.Errorf("Expected the response body in the output, got %q", out)
	}
}

func TestDispatcher_WebhookSkillSubstitutesURLAndDropsReason(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := newTestDispatcher(nil)
	skill := &models.SkillDefinition{
		Name: "notify_channel",
		Type: models.SkillTypeWebhook,
		URL:  srv.URL + "/hooks/{channel}",
		Parameters: []models.ParamSpec{
			{Name: "channel", Type: "string", Required: true},
			{Name: "text", Type: "string", Required: true},
		},
	}
	desc := &models.ToolDescriptor{Name: "skill_notify_channel", Kind: models.ToolKindSkill, Skill: skill}

	out := d.Execute(context.Background(), desc, "skill_notify_channel", map[string]any{
		"channel": "ops",
		"text":    "deploy done",
		"reason":  "Posting to the ops channel",
	})
	if !strings.Contains(out, "HTTP 200") {
		t.Errorf("Expected success output, got %q", out)
	}
	if gotPath != "/hooks/ops" {
		t.Errorf("Expected the URL placeholder substituted, got %q", gotPath)
	}
	if _, ok := gotBody["reason"]; ok {
		t.Errorf("Expected reason to be stripped from the payload, got %v", gotBody)
	}
	if gotBody["text"] != "deploy done" {
		t.Errorf("Expected the remaining arguments in the payload, got %v", gotBody)
	}
}

func TestDispatcher_RemoteWithoutRunner(t *testing.T) {
	d := newTestDispatcher(nil)
	desc := &models.ToolDescriptor{
		Name: "srv_fs_read_file", Kind: models.ToolKindRemote,
		ServerAlias: "fs", RemoteName: "read_file",
	}
	out := d.Execute(context.Background(), desc, "srv_fs_read_file", nil)
	if !strings.HasPrefix(out, "ERROR:") {
		t.Errorf("Expected an error when no runner is configured, got %q", out)
	}
}

func TestDispatcher_OutputTruncated(t *testing.T) {
	hc, _ := httpclient.NewClient(config.CircuitBreakerConfig{}, 5*time.Second)
	d := NewDispatcher(nil, nil, nil, hc, 50, testLogger())
	desc := &models.ToolDescriptor{Name: "run_command", Kind: models.ToolKindBuiltin}
	out := d.Execute(context.Background(), desc, "run_command", map[string]any{
		"command": "printf 'a%.0s' $(seq 1 500)",
	})
	if !strings.Contains(out, "[truncated") {
		t.Errorf("Expected truncation marker, got %d chars", len(out))
	}
}

func TestToolLabel(t *testing.T) {
	if got := ToolLabel("run_command", map[string]any{"reason": "Listing plugins"}); got != "Listing plugins" {
		t.Errorf("Expected the reason to win, got %q", got)
	}
	if got := ToolLabel("run_command", map[string]any{"command": "wp plugin list"}); !strings.Contains(got, "wp plugin list") {
		t.Errorf("Expected the command in the fallback label, got %q", got)
	}
	if got := ToolLabel("skill_backup", nil); !strings.Contains(got, "skill_backup") {
		t.Errorf("Expected generic label to name the tool, got %q", got)
	}
}
