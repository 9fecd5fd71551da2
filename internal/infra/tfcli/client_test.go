package tfcli

import (
	"bytes"
	"context"
	"errors"
	osexec "os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jenkinsci/tfs-checkout/internal/domain"
	"github.com/jenkinsci/tfs-checkout/internal/infra/executor"
	"github.com/jenkinsci/tfs-checkout/internal/testutil"
)

var errExit = errors.New("exit status 100")

func newTestClient(exec *testutil.MockExecutor) *Client {
	return NewClient(exec, Options{
		TFPath:   "/opt/tee/tf",
		URL:      "http://tfs:8080/tfs",
		Computer: "BUILD01",
		User:     `CORP\builder`,
		Password: "s3cret",
	}).WithLocation(time.UTC)
}

func TestClient_CommandLine(t *testing.T) {
	exec := &testutil.MockExecutor{}
	client := newTestClient(exec)

	_, err := client.ListWorkspaces(context.Background())
	require.NoError(t, err)

	require.Len(t, exec.Commands, 1)
	cmd := exec.Commands[0]
	assert.Equal(t, "/opt/tee/tf", cmd.Program)
	assert.Equal(t, []string{
		"workspaces", "-format:brief", "-computer:BUILD01",
		"-noprompt", "-collection:http://tfs:8080/tfs", `-login:CORP\builder,s3cret`,
	}, cmd.Args)
	assert.NotContains(t, cmd.String(), "s3cret")
	assert.Contains(t, cmd.String(), "-login:********")
}

func TestClient_DefaultsAndAnonymous(t *testing.T) {
	exec := &testutil.MockExecutor{}
	client := NewClient(exec, Options{})

	_, _, err := client.MappingOwnerOf(context.Background(), "/work/job")
	require.NoError(t, err)

	cmd := exec.Commands[0]
	assert.Equal(t, "tf", cmd.Program)
	assert.Equal(t, []string{"workfold", "-noprompt", "/work/job"}, cmd.Args)
}

func TestClient_WorkspaceExists(t *testing.T) {
	exec := &testutil.MockExecutor{
		Respond: func(*domain.ExecCommand) testutil.ExecResult {
			return testutil.ExecResult{Output: briefWorkspaces}
		},
	}
	client := newTestClient(exec)

	exists, err := client.WorkspaceExists(context.Background(), "HUDSON-JOB-N1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, "HUDSON-JOB-N1", exec.Commands[0].Args[len(exec.Commands[0].Args)-1])
}

func TestClient_WorkspaceExists_NotFound(t *testing.T) {
	exec := &testutil.MockExecutor{
		Respond: func(*domain.ExecCommand) testutil.ExecResult {
			return testutil.ExecResult{Err: errExit, Output: "No workspace matching missing;CORP\\builder on computer BUILD01 found."}
		},
	}

	exists, err := newTestClient(exec).WorkspaceExists(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestClient_WorkspaceExists_Error(t *testing.T) {
	exec := &testutil.MockExecutor{
		Respond: func(*domain.ExecCommand) testutil.ExecResult {
			return testutil.ExecResult{Err: errExit, Output: "TF30063: You are not authorized"}
		},
	}

	_, err := newTestClient(exec).WorkspaceExists(context.Background(), "ws")
	assert.ErrorIs(t, err, domain.ErrServerCommand)
	assert.ErrorIs(t, err, errExit)
}

func TestClient_ListWorkspaces(t *testing.T) {
	exec := &testutil.MockExecutor{
		Respond: func(*domain.ExecCommand) testutil.ExecResult {
			return testutil.ExecResult{Output: briefWorkspaces}
		},
	}

	refs, err := newTestClient(exec).ListWorkspaces(context.Background())
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "Hudson-job-n1", refs[0].Name)
	assert.Equal(t, "other", refs[1].Name)
}

func TestClient_MappingOwnerOf(t *testing.T) {
	exec := &testutil.MockExecutor{
		Respond: func(*domain.ExecCommand) testutil.ExecResult {
			return testutil.ExecResult{Output: "Workspace : Hudson-job-n1 (CORP\\builder)\n $/Project: /work/job\n"}
		},
	}

	name, ok, err := newTestClient(exec).MappingOwnerOf(context.Background(), "/work/job")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Hudson-job-n1", name)
}

func TestClient_MappingOwnerOf_Unmapped(t *testing.T) {
	for _, output := range []string{
		"There is no working folder mapping for /work/job.",
		"Unable to determine the workspace. You may be able to correct this by running 'tf workspaces -collection:TeamProjectCollectionUrl'.",
	} {
		exec := &testutil.MockExecutor{
			Respond: func(*domain.ExecCommand) testutil.ExecResult {
				return testutil.ExecResult{Err: errExit, Output: output}
			},
		}

		_, ok, err := newTestClient(exec).MappingOwnerOf(context.Background(), "/work/job")
		require.NoError(t, err, output)
		assert.False(t, ok, output)
	}
}

func TestClient_CreateWorkspace(t *testing.T) {
	exec := &testutil.MockExecutor{}
	client := newTestClient(exec)

	ref, err := client.CreateWorkspace(context.Background(), domain.CreateWorkspaceOptions{
		Name:         "ws1",
		ServerPath:   "$/Project",
		LocalPath:    "/work/job",
		CloakedPaths: []string{"$/Project/docs"},
		MappedPaths: []domain.PathMapping{
			{ServerPath: "$/Shared", LocalPath: "/work/shared"},
			{ServerPath: "$/Project/big"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, &domain.WorkspaceRef{
		Name:     "ws1",
		Computer: "BUILD01",
		Owner:    `CORP\builder`,
		Comment:  "Created by tfs-checkout",
	}, ref)

	var lines []string
	for _, c := range exec.Commands {
		var kept []string
		for _, a := range c.Args {
			if a == "-noprompt" || strings.HasPrefix(a, "-collection:") || strings.HasPrefix(a, "-login:") {
				continue
			}
			kept = append(kept, a)
		}
		lines = append(lines, strings.Join(kept, " "))
	}
	assert.Equal(t, []string{
		"workspace -new -comment:Created by tfs-checkout -computer:BUILD01 ws1",
		"workfold -map -workspace:ws1 $/Project /work/job",
		"workfold -map -workspace:ws1 $/Shared /work/shared",
		"workfold -cloak -workspace:ws1 $/Project/big",
		"workfold -cloak -workspace:ws1 $/Project/docs",
	}, lines)
}

func TestClient_CreateWorkspace_StopsOnError(t *testing.T) {
	exec := &testutil.MockExecutor{
		Respond: func(cmd *domain.ExecCommand) testutil.ExecResult {
			if cmd.Args[0] == "workfold" {
				return testutil.ExecResult{Err: errExit, Output: "TF10122: The path is not valid"}
			}
			return testutil.ExecResult{}
		},
	}

	ref, err := newTestClient(exec).CreateWorkspace(context.Background(), domain.CreateWorkspaceOptions{
		Name:         "ws1",
		ServerPath:   "$/Project",
		LocalPath:    "/work/job",
		CloakedPaths: []string{"$/Project/docs"},
	})
	assert.ErrorIs(t, err, domain.ErrServerCommand)
	assert.Nil(t, ref)
	assert.Equal(t, []string{"workspace", "workfold"}, exec.Subcommands())
}

func TestClient_DeleteWorkspace(t *testing.T) {
	exec := &testutil.MockExecutor{}

	err := newTestClient(exec).DeleteWorkspace(context.Background(), domain.WorkspaceRef{Name: "ws1", Owner: `CORP\alice`})
	require.NoError(t, err)

	args := exec.Commands[0].Args
	assert.Equal(t, []string{"workspace", "-delete"}, args[:2])
	assert.Equal(t, `ws1;CORP\alice`, args[len(args)-1])
}

func TestClient_DeleteWorkspace_Absent(t *testing.T) {
	exec := &testutil.MockExecutor{
		Respond: func(*domain.ExecCommand) testutil.ExecResult {
			return testutil.ExecResult{Err: errExit, Output: "TF14061: The workspace ws1;CORP\\builder does not exist."}
		},
	}

	err := newTestClient(exec).DeleteWorkspace(context.Background(), domain.WorkspaceRef{Name: "ws1"})
	assert.NoError(t, err)
	assert.Equal(t, "ws1", exec.Commands[0].Args[len(exec.Commands[0].Args)-1])
}

func TestClient_Materialize(t *testing.T) {
	exec := &testutil.MockExecutor{}

	err := newTestClient(exec).Materialize(context.Background(), "/work/job", "D2009-09-24T12:30:15Z", false)
	require.NoError(t, err)

	cmd := exec.Commands[0]
	assert.Empty(t, cmd.Dir)
	assert.Equal(t, []string{"get", "-recursive", "-version:D2009-09-24T12:30:15Z", "-noprompt"}, cmd.Args[:4])
	assert.Equal(t, "/work/job", cmd.Args[len(cmd.Args)-1])
	assert.NotContains(t, cmd.Args, "-force")
}

func TestClient_Materialize_MissingFolder(t *testing.T) {
	tfPath, err := osexec.LookPath("true")
	if err != nil {
		t.Skip("true not available")
	}
	folder := filepath.Join(t.TempDir(), "ws")

	client := NewClient(executor.NewClient(), Options{TFPath: tfPath})
	err = client.Materialize(context.Background(), folder, "D2009-09-24T00:00:00Z", false)
	require.NoError(t, err)
}

func TestClient_Materialize_OverwriteAndStreaming(t *testing.T) {
	exec := &testutil.MockExecutor{
		Respond: func(*domain.ExecCommand) testutil.ExecResult {
			return testutil.ExecResult{Output: "/work/job:\nGetting main.c\n"}
		},
	}
	var out bytes.Buffer

	err := newTestClient(exec).WithOutput(&out).Materialize(context.Background(), "/work/job", "LRelease-1.0", true)
	require.NoError(t, err)

	assert.Contains(t, exec.Commands[0].Args, "-force")
	assert.Contains(t, exec.Commands[0].Args, "-version:LRelease-1.0")
	assert.Equal(t, "/work/job:\nGetting main.c\n", out.String())
}

func TestClient_History_Window(t *testing.T) {
	exec := &testutil.MockExecutor{
		Respond: func(*domain.ExecCommand) testutil.ExecResult {
			return testutil.ExecResult{Output: detailedHistory}
		},
	}
	from := domain.NewTimestampSpec(time.Date(2009, 9, 23, 8, 0, 0, 0, time.UTC))
	to := domain.NewTimestampSpec(time.Date(2009, 9, 24, 12, 30, 15, 0, time.UTC))

	changes, err := newTestClient(exec).History(context.Background(), domain.HistoryQuery{
		From:       from,
		To:         to,
		ServerPath: "$/Project",
		Excluded:   []string{"$/Project/docs"},
	})
	require.NoError(t, err)

	// Changeset 1042 only touched excluded paths
	require.Len(t, changes, 1)
	assert.Equal(t, "1043", changes[0].Version)

	args := exec.Commands[0].Args
	assert.Equal(t, []string{
		"history", "-recursive", "-format:detailed",
		"-version:D2009-09-23T08:00:00Z~D2009-09-24T12:30:15Z",
	}, args[:4])
	assert.NotContains(t, args, "-stopafter:1")
	assert.Equal(t, "$/Project", args[len(args)-1])
}

func TestClient_History_SingleAnchor(t *testing.T) {
	exec := &testutil.MockExecutor{}

	changes, err := newTestClient(exec).History(context.Background(), domain.HistoryQuery{
		To:         domain.NewLabelSpec("Release-1.0"),
		ServerPath: "$/Project",
	})
	require.NoError(t, err)
	assert.Empty(t, changes)

	args := exec.Commands[0].Args
	assert.Contains(t, args, "-version:LRelease-1.0")
	assert.Contains(t, args, "-stopafter:1")
}

func TestClient_History_Error(t *testing.T) {
	exec := &testutil.MockExecutor{
		Respond: func(*domain.ExecCommand) testutil.ExecResult {
			return testutil.ExecResult{Err: errExit, Output: "TF14021: The item $/Missing could not be found"}
		},
	}

	_, err := newTestClient(exec).History(context.Background(), domain.HistoryQuery{
		To:         domain.NewTimestampSpec(time.Now()),
		ServerPath: "$/Missing",
	})
	assert.ErrorIs(t, err, domain.ErrServerCommand)
}
