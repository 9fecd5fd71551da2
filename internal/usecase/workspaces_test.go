package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jenkinsci/tfs-checkout/internal/domain"
	"github.com/jenkinsci/tfs-checkout/internal/infra/registry"
	"github.com/jenkinsci/tfs-checkout/internal/testutil"
	"github.com/jenkinsci/tfs-checkout/internal/usecase"
)

func TestListWorkspaces_Execute(t *testing.T) {
	server := testutil.NewMockServer()
	server.AddWorkspace("hudson-b", "/work/b")
	server.AddWorkspace("Hudson-A", "/work/a")
	server.AddWorkspace("manual", "")

	uc := usecase.NewListWorkspaces(registry.New(server))

	t.Run("all sorted by name", func(t *testing.T) {
		out, err := uc.Execute(context.Background(), usecase.ListWorkspacesInput{})
		require.NoError(t, err)

		var names []string
		for _, ref := range out.Workspaces {
			names = append(names, ref.Name)
		}
		assert.Equal(t, []string{"Hudson-A", "hudson-b", "manual"}, names)
	})

	t.Run("prefix filter", func(t *testing.T) {
		out, err := uc.Execute(context.Background(), usecase.ListWorkspacesInput{Prefix: "HUDSON-"})
		require.NoError(t, err)
		assert.Len(t, out.Workspaces, 2)
	})

	// The registry lists once per connection
	assert.Equal(t, 1, server.ListCalls)
}

func TestListWorkspaces_Error(t *testing.T) {
	server := testutil.NewMockServer()
	server.ListErr = errors.New("connection refused")

	_, err := usecase.NewListWorkspaces(registry.New(server)).Execute(context.Background(), usecase.ListWorkspacesInput{})
	assert.ErrorContains(t, err, "connection refused")
}

func TestDeleteWorkspace_Execute(t *testing.T) {
	server := testutil.NewMockServer()
	server.AddWorkspace("ws1", "/work/job")
	configs := testutil.NewMockWorkspaceConfigRepository()
	configs.Configs["agent-1"] = domain.WorkspaceConfiguration{
		Node: "agent-1", WorkspaceName: "ws1", WorkspaceExists: true, UpdatedAt: time.Now(),
	}
	reporter := &testutil.MockReporter{}

	uc := usecase.NewDeleteWorkspace(registry.New(server), configs, reporter)
	out, err := uc.Execute(context.Background(), usecase.DeleteWorkspaceInput{Name: "WS1", Node: "agent-1"})

	require.NoError(t, err)
	assert.Equal(t, "WS1", out.Ref.Name)
	assert.False(t, server.Has("ws1"))
	assert.Equal(t, []string{"WS1"}, server.DeleteLog)
	assert.False(t, configs.Configs["agent-1"].WorkspaceExists)
}

func TestDeleteWorkspace_NotFound(t *testing.T) {
	server := testutil.NewMockServer()

	uc := usecase.NewDeleteWorkspace(registry.New(server), nil, nil)
	_, err := uc.Execute(context.Background(), usecase.DeleteWorkspaceInput{Name: "missing"})

	assert.ErrorIs(t, err, domain.ErrWorkspaceNotFound)
	assert.Zero(t, server.DeleteCalls)
}

func TestDeleteWorkspace_ServerError(t *testing.T) {
	server := testutil.NewMockServer()
	server.AddWorkspace("ws1", "/work/job")
	server.DeleteErr = domain.ErrServerCommand

	uc := usecase.NewDeleteWorkspace(registry.New(server), nil, nil)
	_, err := uc.Execute(context.Background(), usecase.DeleteWorkspaceInput{Name: "ws1"})

	assert.ErrorIs(t, err, domain.ErrServerCommand)
}
