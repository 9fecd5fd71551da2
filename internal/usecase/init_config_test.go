package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jenkinsci/tfs-checkout/internal/domain"
	"github.com/jenkinsci/tfs-checkout/internal/testutil"
	"github.com/jenkinsci/tfs-checkout/internal/usecase"
)

func TestInitConfig_Execute(t *testing.T) {
	t.Run("creates repo config", func(t *testing.T) {
		manager := testutil.NewMockConfigManager()
		manager.RepoConfigInfo = domain.ConfigInfo{Path: "/work/job/.tfs-checkout.toml"}

		uc := usecase.NewInitConfig(manager)
		out, err := uc.Execute(context.Background(), usecase.InitConfigInput{})

		require.NoError(t, err)
		assert.Equal(t, "/work/job/.tfs-checkout.toml", out.Path)
		assert.True(t, manager.InitRepoCalled)
		assert.False(t, manager.InitGlobalCalled)
	})

	t.Run("creates global config", func(t *testing.T) {
		manager := testutil.NewMockConfigManager()
		manager.GlobalConfigInfo = domain.ConfigInfo{Path: "/home/jenkins/.config/tfs-checkout/config.toml"}

		uc := usecase.NewInitConfig(manager)
		out, err := uc.Execute(context.Background(), usecase.InitConfigInput{
			Global: true,
			Config: domain.NewDefaultConfig(),
		})

		require.NoError(t, err)
		assert.Equal(t, "/home/jenkins/.config/tfs-checkout/config.toml", out.Path)
		assert.False(t, manager.InitRepoCalled)
		assert.True(t, manager.InitGlobalCalled)
	})

	t.Run("returns error when repo config already exists", func(t *testing.T) {
		manager := testutil.NewMockConfigManager()
		manager.InitRepoErr = domain.ErrConfigExists

		uc := usecase.NewInitConfig(manager)
		_, err := uc.Execute(context.Background(), usecase.InitConfigInput{})

		assert.ErrorIs(t, err, domain.ErrConfigExists)
	})

	t.Run("returns error when global config already exists", func(t *testing.T) {
		manager := testutil.NewMockConfigManager()
		manager.InitGlobalErr = domain.ErrConfigExists

		uc := usecase.NewInitConfig(manager)
		_, err := uc.Execute(context.Background(), usecase.InitConfigInput{Global: true})

		assert.ErrorIs(t, err, domain.ErrConfigExists)
	})
}
