package domain

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, BackendTF, cfg.Server.Backend)
	assert.Equal(t, "tf", cfg.Server.TFPath)
	assert.Equal(t, DefaultWorkspaceNameTemplate, cfg.Workspace.Name)
	assert.True(t, cfg.Workspace.UseUpdate)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestConfig_Identity(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Workspace.ProjectPath = `$/Project/`
	cfg.Workspace.LocalFolder = "src"
	cfg.Workspace.CloakedPaths = []string{"$/Project/docs/", ""}
	cfg.Workspace.MappedPaths = []PathMapping{
		{ServerPath: "$/Shared", LocalPath: "shared"},
		{ServerPath: "$/Project/big"},
	}

	id := cfg.Identity("/jobs/app", map[string]string{"JOB_NAME": "app", "NODE_NAME": "n1"})

	assert.Equal(t, "Hudson-app-n1", id.Name)
	assert.Equal(t, "$/Project", id.ServerPath)
	assert.Equal(t, filepath.Join("/jobs/app", "src"), id.LocalFolder)
	assert.Equal(t, []string{"$/Project/docs"}, id.CloakedPaths)
	assert.Equal(t, []PathMapping{
		{ServerPath: "$/Shared", LocalPath: filepath.Join("/jobs/app", "shared")},
		{ServerPath: "$/Project/big"},
	}, id.MappedPaths)
}

func TestConfig_StateDir(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.Equal(t, filepath.Join("/jobs/app", ".tfs-checkout"), cfg.StateDir("/jobs/app"))

	cfg.State.Dir = "state"
	assert.Equal(t, filepath.Join("/jobs/app", "state"), cfg.StateDir("/jobs/app"))

	cfg.State.Dir = "/var/lib/tfs"
	assert.Equal(t, "/var/lib/tfs", cfg.StateDir("/jobs/app"))
}

func TestExecCommand_StringMasksSecrets(t *testing.T) {
	cmd := &ExecCommand{
		Program: "tf",
		Args:    []string{"workspaces", "-login:CORP\\jdoe,secret"},
		Masked:  []string{"-login:"},
	}
	assert.Equal(t, "tf workspaces -login:********", cmd.String())
}
