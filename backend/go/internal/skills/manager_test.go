package skills

import (
	"os"
	"path/filepath"
	"testing"

	"OpenClaw/backend/go/internal/models"
	"OpenClaw/backend/go/pkg/logger"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(t.TempDir(), logger.New("test", ""))
}

func commandSkill(name, command string) models.SkillDefinition {
	return models.SkillDefinition{
		Name:    name,
		Type:    models.SkillTypeCommand,
		Command: command,
	}
}

func TestManager_CreateAndLoadRoundTrip(t *testing.T) {
	m := newTestManager(t)

	def := commandSkill("export_posts", "wp post list --format=json")
	def.Description = "Export all posts as JSON"
	def.Parameters = []models.ParamSpec{
		{Name: "status", Type: "string", Description: "post status filter"},
	}
	if err := m.Create(def); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	defs, err := m.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(defs) != 1 {
		t.Fatalf("Expected 1 skill, got %d", len(defs))
	}
	got := defs[0]
	if got.Name != "export_posts" || got.Command != "wp post list --format=json" {
		t.Errorf("Round trip mangled the definition: %+v", got)
	}
	if len(got.Parameters) != 1 || got.Parameters[0].Name != "status" {
		t.Errorf("Round trip lost parameters: %+v", got.Parameters)
	}
}

func TestManager_RejectsInvalidNames(t *testing.T) {
	m := newTestManager(t)

	for _, name := range []string{"has space", "has-dash", "../escape", "semi;colon", ""} {
		if err := m.Create(commandSkill(name, "echo hi")); err == nil {
			t.Errorf("Expected name %q to be rejected", name)
		}
	}
}

func TestManager_RejectsBuiltinCollision(t *testing.T) {
	m := newTestManager(t)

	if err := m.Create(commandSkill("run_command", "echo hi")); err == nil {
		t.Error("Expected a skill shadowing a builtin to be rejected")
	}
}

func TestManager_RejectsDenyListedTemplate(t *testing.T) {
	m := newTestManager(t)

	if err := m.Create(commandSkill("nuke_db", "wp db drop --yes")); err == nil {
		t.Error("Expected a deny-listed command template to be rejected at creation")
	}
}

func TestManager_RejectsHTTPSkillWithoutURL(t *testing.T) {
	m := newTestManager(t)

	def := models.SkillDefinition{Name: "ping_service", Type: models.SkillTypeHTTP}
	if err := m.Create(def); err == nil {
		t.Error("Expected an http skill without a URL to be rejected")
	}
}

func TestManager_LoadSkipsDisabledAndMalformed(t *testing.T) {
	m := newTestManager(t)

	good := commandSkill("good_one", "echo good")
	if err := m.Create(good); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	disabled := commandSkill("sleepy_one", "echo zzz")
	disabled.Disabled = true
	if err := m.Create(disabled); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	// A malformed file written behind the manager's back.
	if err := os.WriteFile(filepath.Join(m.dir, "broken.yaml"), []byte("{not yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	defs, err := m.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(defs) != 1 || defs[0].Name != "good_one" {
		t.Errorf("Expected only the good skill to load, got %+v", defs)
	}

	// List still shows the disabled one for the management surface.
	all, err := m.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected List to include disabled skills, got %d", len(all))
	}
}

func TestManager_Delete(t *testing.T) {
	m := newTestManager(t)

	if err := m.Create(commandSkill("temp_skill", "echo temp")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := m.Delete("temp_skill"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := m.Delete("temp_skill"); err == nil {
		t.Error("Expected deleting a missing skill to fail")
	}
}

func TestManager_LoadMissingDirectory(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "does-not-exist"), logger.New("test", ""))
	defs, err := m.Load()
	if err != nil {
		t.Fatalf("Expected a missing directory to mean zero skills, got error %v", err)
	}
	if len(defs) != 0 {
		t.Errorf("Expected no skills, got %d", len(defs))
	}
}
