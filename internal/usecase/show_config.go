// Package usecase contains the application use cases.
package usecase

import (
	"context"

	"github.com/jenkinsci/tfs-checkout/internal/domain"
)

// ShowConfigInput contains the input for the ShowConfig use case.
type ShowConfigInput struct {
	IgnoreGlobal bool // Leave the global config file out of the output
	IgnoreRepo   bool // Leave the job config file out of the output
}

// ShowConfigOutput contains the output of the ShowConfig use case.
type ShowConfigOutput struct {
	EffectiveConfig *domain.Config    // Merged configuration
	GlobalConfig    domain.ConfigInfo // Global config file info
	RepoConfig      domain.ConfigInfo // Job config file info
}

// ShowConfig displays configuration file information.
type ShowConfig struct {
	configManager domain.ConfigManager
	configLoader  domain.ConfigLoader
}

// NewShowConfig creates a new ShowConfig use case.
func NewShowConfig(configManager domain.ConfigManager, configLoader domain.ConfigLoader) *ShowConfig {
	return &ShowConfig{
		configManager: configManager,
		configLoader:  configLoader,
	}
}

// Execute retrieves configuration file information and the merged result.
func (uc *ShowConfig) Execute(_ context.Context, in ShowConfigInput) (*ShowConfigOutput, error) {
	effective, err := uc.configLoader.Load()
	if err != nil {
		return nil, err
	}

	out := &ShowConfigOutput{EffectiveConfig: effective}
	if !in.IgnoreGlobal {
		out.GlobalConfig = uc.configManager.GetGlobalConfigInfo()
	}
	if !in.IgnoreRepo {
		out.RepoConfig = uc.configManager.GetRepoConfigInfo()
	}
	return out, nil
}
