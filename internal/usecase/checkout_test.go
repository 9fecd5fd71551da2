package usecase

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
)

var (
	buildStart    = time.Date(2009, 9, 24, 12, 30, 15, 0, time.UTC)
	previousStart = time.Date(2009, 9, 23, 8, 0, 0, 0, time.UTC)
)

type checkoutFixture struct {
	server   *testutil.MockServer
	folders  *testutil.MockLocalFolders
	configs  *testutil.MockWorkspaceConfigRepository
	reporter *testutil.MockReporter
	uc       *Checkout
}

func newCheckoutFixture() *checkoutFixture {
	f := &checkoutFixture{
		server:   testutil.NewMockServer(),
		folders:  testutil.NewMockLocalFolders(localFolder),
		configs:  testutil.NewMockWorkspaceConfigRepository(),
		reporter: &testutil.MockReporter{},
	}
	f.uc = NewCheckout(registry.New(f.server), f.server, f.folders, f.configs, f.reporter, &testutil.MockClock{NowTime: buildStart})
	return f
}

func checkoutInput(token string, previous *time.Time) CheckoutInput {
	return CheckoutInput{
		Identity: testIdentity(),
		Build: domain.BuildInfo{
			PreviousStartTime: previous,
			StartTime:         buildStart,
			Node:              "agent-1",
			JobName:           "job",
			Number:            2,
		},
		StrategyToken: token,
		ServerURL:     "http://tfs:8080/tfs",
		UseUpdate:     true,
	}
}

func TestCheckout_FirstBuildSkipsHistory(t *testing.T) {
	f := newCheckoutFixture()

	out, err := f.uc.Execute(context.Background(), checkoutInput("", nil))
	require.NoError(t, err)

	assert.Equal(t, domain.StateDone, out.State)
	assert.Equal(t, domain.StrategyTimestamp, out.Strategy)
	assert.Nil(t, out.Query)
	assert.Empty(t, out.ChangeSets)
	assert.Equal(t, 0, f.server.HistoryCalls)

	require.Len(t, f.server.MaterializeLog, 1)
	assert.Equal(t, testutil.MaterializeCall{
		LocalFolder: localFolder,
		VersionSpec: "D2009-09-24T12:30:15Z",
	}, f.server.MaterializeLog[0])
}

func TestCheckout_TimestampWindow(t *testing.T) {
	f := newCheckoutFixture()
	f.server.HistoryResult = []domain.ChangeSet{{Version: "42", User: "alice", Comment: "fix"}}
	prev := previousStart

	out, err := f.uc.Execute(context.Background(), checkoutInput("", &prev))
	require.NoError(t, err)

	require.Len(t, f.server.HistoryLog, 1)
	q := f.server.HistoryLog[0]
	assert.Equal(t, domain.NewTimestampSpec(previousStart), q.From)
	assert.Equal(t, domain.NewTimestampSpec(buildStart), q.To)
	assert.Equal(t, "D2009-09-23T08:00:00Z~D2009-09-24T12:30:15Z", q.VersionRange())
	assert.Equal(t, "$/Project", q.ServerPath)

	assert.Equal(t, domain.StateDone, out.State)
	assert.Equal(t, f.server.HistoryResult, out.ChangeSets)
}

func TestCheckout_FetchAndHistoryShareVersion(t *testing.T) {
	f := newCheckoutFixture()
	prev := previousStart

	out, err := f.uc.Execute(context.Background(), checkoutInput("", &prev))
	require.NoError(t, err)

	require.Len(t, f.server.MaterializeLog, 1)
	require.NotNil(t, out.Query)
	assert.Equal(t, f.server.MaterializeLog[0].VersionSpec, out.Query.To.String())
	assert.Equal(t, out.VersionSpec, out.Query.To)
}

func TestCheckout_LabelAlwaysQueriesHistory(t *testing.T) {
	tests := []struct {
		name     string
		previous *time.Time
	}{
		{"first build", nil},
		{"later build", &previousStart},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCheckoutFixture()

			out, err := f.uc.Execute(context.Background(), checkoutInput("LRelease-1.0@$/Project", tt.previous))
			require.NoError(t, err)

			assert.Equal(t, domain.StrategyLabel, out.Strategy)
			require.Len(t, f.server.HistoryLog, 1)
			q := f.server.HistoryLog[0]
			assert.Nil(t, q.From)
			assert.Equal(t, domain.LabelSpec{Name: "Release-1.0", Scope: "$/Project"}, q.To)
			assert.Equal(t, "LRelease-1.0@$/Project", f.server.MaterializeLog[0].VersionSpec)
		})
	}
}

func TestCheckout_LabelWithoutParameterFallsBackToTimestamp(t *testing.T) {
	f := newCheckoutFixture()

	out, err := f.uc.Execute(context.Background(), checkoutInput("L", nil))
	require.NoError(t, err)

	assert.Equal(t, domain.StrategyTimestamp, out.Strategy)
	assert.Equal(t, domain.NewTimestampSpec(buildStart), out.VersionSpec)
}

func TestCheckout_HistoryExcludesCloakedPaths(t *testing.T) {
	f := newCheckoutFixture()
	prev := previousStart
	in := checkoutInput("", &prev)
	in.Identity.CloakedPaths = []string{"$/Project/docs", "$/Project/tools"}
	in.Identity.MappedPaths = append(in.Identity.MappedPaths, domain.PathMapping{ServerPath: "$/Project/big"})

	_, err := f.uc.Execute(context.Background(), in)
	require.NoError(t, err)

	require.Len(t, f.server.HistoryLog, 1)
	assert.Equal(t, []string{"$/Project/docs", "$/Project/tools", "$/Project/big"}, f.server.HistoryLog[0].Excluded)
}

func TestCheckout_InvalidStrategyFailsBeforeServer(t *testing.T) {
	for _, token := range []string{"Xfoo", "foo", "d2009-09-24T00:00:00Z"} {
		t.Run(token, func(t *testing.T) {
			f := newCheckoutFixture()

			out, err := f.uc.Execute(context.Background(), checkoutInput(token, nil))
			require.Error(t, err)

			assert.Equal(t, domain.StateStart, out.State)
			assert.Zero(t, f.server.ExistsCalls+f.server.MappingCalls+f.server.ListCalls)
			assert.Zero(t, f.server.MutatingCalls())
			assert.Zero(t, f.server.MaterializeCnt)
			assert.Zero(t, f.configs.Saved)
		})
	}
}

func TestCheckout_InvalidStrategyError(t *testing.T) {
	f := newCheckoutFixture()

	_, err := f.uc.Execute(context.Background(), checkoutInput("Xfoo", nil))

	assert.ErrorIs(t, err, domain.ErrInvalidCheckoutStrategy)
	var strategyErr *domain.StrategyError
	require.ErrorAs(t, err, &strategyErr)
	assert.Equal(t, "Xfoo", strategyErr.Token)
}

func TestCheckout_InvalidIdentity(t *testing.T) {
	f := newCheckoutFixture()
	in := checkoutInput("", nil)
	in.Identity.Name = ""

	_, err := f.uc.Execute(context.Background(), in)

	assert.ErrorIs(t, err, domain.ErrConfigInvalid)
	assert.Zero(t, f.server.ExistsCalls)
}

func TestCheckout_SavesWorkspaceConfiguration(t *testing.T) {
	f := newCheckoutFixture()

	_, err := f.uc.Execute(context.Background(), checkoutInput("", nil))
	require.NoError(t, err)

	cfg, err := f.configs.Get("agent-1")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "ws1", cfg.WorkspaceName)
	assert.Equal(t, "$/Project", cfg.ProjectPath)
	assert.Equal(t, localFolder, cfg.LocalFolder)
	assert.Equal(t, "http://tfs:8080/tfs", cfg.ServerURL)
	assert.True(t, cfg.WorkspaceExists)
	assert.Equal(t, buildStart, cfg.UpdatedAt)
}

func TestCheckout_ConfigurationChangeRecreatesWorkspace(t *testing.T) {
	f := newCheckoutFixture()
	f.server.AddWorkspace("ws1", localFolder)
	previous := domain.NewWorkspaceConfiguration("agent-1", "http://tfs:8080/tfs", testIdentity(), previousStart)
	previous.ProjectPath = "$/OldProject"
	require.NoError(t, f.configs.Save(previous))

	out, err := f.uc.Execute(context.Background(), checkoutInput("", nil))
	require.NoError(t, err)

	assert.Equal(t, []string{"ws1"}, f.server.DeleteLog)
	assert.Equal(t, 1, f.server.CreateCalls)
	assert.True(t, out.Reconcile.Created)
	assert.True(t, out.Reconcile.FolderCleared)
	assert.Equal(t, []string{localFolder}, f.folders.Cleared)
	assert.NotEmpty(t, f.reporter.Warnings())

	cfg, err := f.configs.Get("agent-1")
	require.NoError(t, err)
	assert.Equal(t, "$/Project", cfg.ProjectPath)
	assert.True(t, cfg.WorkspaceExists)
}

func TestCheckout_ServerChangeKeepsWorkspaceOnNewServer(t *testing.T) {
	f := newCheckoutFixture()
	f.server.AddWorkspace("ws1", localFolder)
	previous := domain.NewWorkspaceConfiguration("agent-1", "http://old-tfs:8080/tfs", testIdentity(), previousStart)
	require.NoError(t, f.configs.Save(previous))

	out, err := f.uc.Execute(context.Background(), checkoutInput("", nil))
	require.NoError(t, err)

	// ws1 on this server is not the recorded workspace and is reused.
	assert.Empty(t, f.server.DeleteLog)
	assert.False(t, out.Reconcile.Created)
	assert.NotEmpty(t, f.reporter.Warnings())

	cfg, err := f.configs.Get("agent-1")
	require.NoError(t, err)
	assert.Equal(t, "http://tfs:8080/tfs", cfg.ServerURL)
	assert.True(t, cfg.WorkspaceExists)
}

func TestCheckout_CorruptedStateIsIgnored(t *testing.T) {
	f := newCheckoutFixture()
	f.configs.GetErr = domain.ErrStateFileCorrupted

	out, err := f.uc.Execute(context.Background(), checkoutInput("", nil))
	require.NoError(t, err)

	assert.Equal(t, domain.StateDone, out.State)
	assert.Equal(t, 1, f.configs.Saved)
	assert.NotEmpty(t, f.reporter.Warnings())
}

func TestCheckout_StateReadError(t *testing.T) {
	f := newCheckoutFixture()
	f.configs.GetErr = errors.New("permission denied")

	out, err := f.uc.Execute(context.Background(), checkoutInput("", nil))

	assert.ErrorIs(t, err, f.configs.GetErr)
	assert.Equal(t, domain.StateIdentityResolved, out.State)
	assert.Zero(t, f.server.MutatingCalls())
}

func TestSameServerURL(t *testing.T) {
	assert.True(t, sameServerURL("http://TFS:8080/tfs/", "http://tfs:8080/tfs"))
	assert.False(t, sameServerURL("http://old:8080/tfs", "http://tfs:8080/tfs"))
}

func TestCheckout_UnchangedConfigurationReusesWorkspace(t *testing.T) {
	f := newCheckoutFixture()
	f.server.AddWorkspace("ws1", localFolder)
	require.NoError(t, f.configs.Save(domain.NewWorkspaceConfiguration("agent-1", "http://tfs:8080/tfs", testIdentity(), previousStart)))

	out, err := f.uc.Execute(context.Background(), checkoutInput("", nil))
	require.NoError(t, err)

	assert.Zero(t, f.server.MutatingCalls())
	assert.False(t, out.Reconcile.Created)
}

func TestCheckout_MaterializeError(t *testing.T) {
	f := newCheckoutFixture()
	f.server.MaterializeErr = errors.New("server unavailable")
	prev := previousStart

	out, err := f.uc.Execute(context.Background(), checkoutInput("", &prev))

	assert.ErrorIs(t, err, f.server.MaterializeErr)
	assert.Equal(t, domain.StateReconciled, out.State)
	assert.Zero(t, f.server.HistoryCalls)
	assert.Zero(t, f.configs.Saved)
}

func TestCheckout_HistoryError(t *testing.T) {
	f := newCheckoutFixture()
	f.server.HistoryErr = errors.New("timeout")
	prev := previousStart

	out, err := f.uc.Execute(context.Background(), checkoutInput("", &prev))

	assert.ErrorIs(t, err, f.server.HistoryErr)
	assert.Equal(t, domain.StateFetched, out.State)
}

func TestCheckout_WithoutConfigRepository(t *testing.T) {
	server := testutil.NewMockServer()
	uc := NewCheckout(registry.New(server), server, testutil.NewMockLocalFolders(), nil, nil, nil)

	out, err := uc.Execute(context.Background(), checkoutInput("", nil))
	require.NoError(t, err)

	assert.Equal(t, domain.StateDone, out.State)
	assert.True(t, out.Reconcile.Created)
}
