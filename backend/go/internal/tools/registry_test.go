package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"OpenClaw/backend/go/internal/models"
	"OpenClaw/backend/go/pkg/logger"
)

type fakeSkillSource struct {
	defs []models.SkillDefinition
	err  error
}

func (f *fakeSkillSource) Load() ([]models.SkillDefinition, error) {
	return f.defs, f.err
}

type fakeRemoteSource struct {
	catalogs []RemoteCatalog
	err      error
}

func (f *fakeRemoteSource) Catalog(ctx context.Context) ([]RemoteCatalog, error) {
	return f.catalogs, f.err
}

func testLogger() *logger.Logger {
	return logger.New("test", "")
}

func TestRegistry_SnapshotOrdering(t *testing.T) {
	skillSrc := &fakeSkillSource{defs: []models.SkillDefinition{
		{Name: "backup_site", Type: models.SkillTypeCommand, Command: "wp db export"},
	}}
	remoteSrc := &fakeRemoteSource{catalogs: []RemoteCatalog{
		{Alias: "fs", Tools: []models.RemoteTool{{Name: "read_file", Description: "read a file"}}},
	}}

	r := NewRegistry(skillSrc, remoteSrc, nil, testLogger())
	r.ReloadSkills()
	r.ReloadRemote(context.Background())

	snap := r.Snapshot()
	builtinCount := len(BuiltinDescriptors())
	if len(snap) != builtinCount+2 {
		t.Fatalf("Expected %d tools in snapshot, got %d", builtinCount+2, len(snap))
	}

	// Builtins first, then skills, then remote tools.
	if snap[0].Kind != models.ToolKindBuiltin {
		t.Error("Expected builtins at the front of the snapshot")
	}
	if snap[builtinCount].Name != "skill_backup_site" {
		t.Errorf("Expected skill after builtins, got %q", snap[builtinCount].Name)
	}
	if snap[builtinCount+1].Name != "srv_fs_read_file" {
		t.Errorf("Expected prefixed remote tool last, got %q", snap[builtinCount+1].Name)
	}
}

func TestRegistry_SkillCollidingWithBuiltinRejected(t *testing.T) {
	skillSrc := &fakeSkillSource{defs: []models.SkillDefinition{
		{Name: "run_command", Type: models.SkillTypeCommand, Command: "echo hi"},
	}}

	r := NewRegistry(skillSrc, nil, nil, testLogger())
	if count := r.ReloadSkills(); count != 0 {
		t.Fatalf("Expected the colliding skill to be rejected, loaded %d", count)
	}
}

func TestRegistry_ReloadReplacesSnapshot(t *testing.T) {
	skillSrc := &fakeSkillSource{defs: []models.SkillDefinition{
		{Name: "old_skill", Type: models.SkillTypeCommand, Command: "echo old"},
	}}

	r := NewRegistry(skillSrc, nil, nil, testLogger())
	r.ReloadSkills()

	skillSrc.defs = []models.SkillDefinition{
		{Name: "new_skill", Type: models.SkillTypeCommand, Command: "echo new"},
	}
	r.ReloadSkills()

	if _, ok := r.Lookup("skill_old_skill"); ok {
		t.Error("Expected old skill to be gone after reload")
	}
	if _, ok := r.Lookup("skill_new_skill"); !ok {
		t.Error("Expected new skill to be present after reload")
	}
}

func TestRegistry_RemoteFailureKeepsLastSnapshot(t *testing.T) {
	remoteSrc := &fakeRemoteSource{catalogs: []RemoteCatalog{
		{Alias: "fs", Tools: []models.RemoteTool{{Name: "read_file"}}},
	}}

	r := NewRegistry(&fakeSkillSource{}, remoteSrc, nil, testLogger())
	r.ReloadRemote(context.Background())
	if r.RemoteCount() != 1 {
		t.Fatalf("Expected 1 remote tool, got %d", r.RemoteCount())
	}

	// The runner going away must not wipe the catalog.
	remoteSrc.err = errors.New("connection refused")
	r.ReloadRemote(context.Background())
	if r.RemoteCount() != 1 {
		t.Errorf("Expected stale snapshot to survive a failed reload, got %d tools", r.RemoteCount())
	}
}

func TestRegistry_RemoteNamesCarryServerAlias(t *testing.T) {
	remoteSrc := &fakeRemoteSource{catalogs: []RemoteCatalog{
		{Alias: "github", Tools: []models.RemoteTool{{Name: "create_issue"}}},
	}}

	r := NewRegistry(&fakeSkillSource{}, remoteSrc, nil, testLogger())
	r.ReloadRemote(context.Background())

	desc, ok := r.Lookup("srv_github_create_issue")
	if !ok {
		t.Fatal("Expected the remote tool under its prefixed name")
	}
	if desc.ServerAlias != "github" || desc.RemoteName != "create_issue" {
		t.Errorf("Expected alias/name split preserved, got %q/%q", desc.ServerAlias, desc.RemoteName)
	}
	if !strings.HasPrefix(desc.Name, "srv_") {
		t.Errorf("Expected srv_ prefix, got %q", desc.Name)
	}
}
