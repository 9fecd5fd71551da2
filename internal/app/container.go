// Package app provides the dependency injection container for the application.
package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jenkinsci/tfs-checkout/internal/domain"
	"github.com/jenkinsci/tfs-checkout/internal/infra/config"
	"github.com/jenkinsci/tfs-checkout/internal/infra/crypto"
	"github.com/jenkinsci/tfs-checkout/internal/infra/executor"
	"github.com/jenkinsci/tfs-checkout/internal/infra/gitserver"
	"github.com/jenkinsci/tfs-checkout/internal/infra/localfs"
	"github.com/jenkinsci/tfs-checkout/internal/infra/logging"
	"github.com/jenkinsci/tfs-checkout/internal/infra/registry"
	"github.com/jenkinsci/tfs-checkout/internal/infra/tfcli"
	"github.com/jenkinsci/tfs-checkout/internal/infra/workspace"
	"github.com/jenkinsci/tfs-checkout/internal/usecase"
)

// Options configures New.
type Options struct {
	Console       io.Writer              // Build console, nil for none
	Executor      domain.CommandExecutor // nil runs real processes
	JobDir        string                 // Directory holding .tfs-checkout.toml
	GlobalConfDir string                 // Empty selects $XDG_CONFIG_HOME/tfs-checkout
	Build         int                    // Build number used in log lines, 0 for none
}

// Container provides dependency injection for the application.
// It holds all port implementations and provides factory methods for use cases.
// The server connection is opened on first use so configuration commands
// work without a reachable server.
type Container struct {
	// Ports (interfaces bound to implementations)
	Server        domain.Server
	Registry      domain.WorkspaceRegistry
	Folders       domain.LocalFolders
	Workspaces    domain.WorkspaceConfigRepository
	Clock         domain.Clock
	ConfigLoader  domain.ConfigLoader
	ConfigManager domain.ConfigManager

	executor domain.CommandExecutor
	console  io.Writer

	// Pointer fields
	Logger    *logging.Logger
	AppConfig *domain.Config

	// Paths
	JobDir   string
	StateDir string
}

// New loads the configuration for opts.JobDir and builds the container.
func New(opts Options) (*Container, error) {
	var loader *config.Loader
	var manager *config.Manager
	if opts.GlobalConfDir != "" {
		loader = config.NewLoaderWithGlobalDir(opts.JobDir, opts.GlobalConfDir)
		manager = config.NewManagerWithGlobalDir(opts.JobDir, opts.GlobalConfDir)
	} else {
		loader = config.NewLoader(opts.JobDir)
		manager = config.NewManager(opts.JobDir)
	}

	// Encrypted passwords need the key from the environment
	if key := os.Getenv(crypto.KeyEnv); key != "" {
		enc, err := crypto.NewEncryptor(key)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", crypto.KeyEnv, err)
		}
		loader.WithSecrets(enc)
	}

	appConfig, err := loader.Load()
	if err != nil {
		return nil, err
	}
	stateDir := appConfig.StateDir(opts.JobDir)

	logger := logging.New(stateDir, opts.Build, logging.ParseLevel(appConfig.Log.Level))
	if opts.Console != nil {
		logger.WithConsole(opts.Console)
	}

	exec := opts.Executor
	if exec == nil {
		exec = executor.NewClient()
	}

	return &Container{
		Folders:       localfs.New().WithKeep(filepath.Join(opts.JobDir, domain.RepoConfigFileName), stateDir),
		Workspaces:    workspace.NewStore(stateDir),
		Clock:         domain.RealClock{},
		ConfigLoader:  loader,
		ConfigManager: manager,
		executor:      exec,
		console:       opts.Console,
		Logger:        logger,
		AppConfig:     appConfig,
		JobDir:        opts.JobDir,
		StateDir:      stateDir,
	}, nil
}

// NewWithDeps creates a new Container with custom dependencies for testing.
func NewWithDeps(appConfig *domain.Config, jobDir string, server domain.Server, folders domain.LocalFolders, workspaces domain.WorkspaceConfigRepository, clock domain.Clock, logger *logging.Logger) *Container {
	return &Container{
		Server:     server,
		Registry:   registry.New(server),
		Folders:    folders,
		Workspaces: workspaces,
		Clock:      clock,
		Logger:     logger,
		AppConfig:  appConfig,
		JobDir:     jobDir,
		StateDir:   appConfig.StateDir(jobDir),
	}
}

// NewServer builds the server backend selected by cfg.
// Fetch output of the tf backend is streamed to out when it is not nil.
func NewServer(cfg *domain.Config, exec domain.CommandExecutor, out io.Writer) (domain.Server, error) {
	computer := cfg.Server.Computer
	if computer == "" {
		computer, _ = os.Hostname()
	}

	switch cfg.Server.Backend {
	case "", domain.BackendTF:
		client := tfcli.NewClient(exec, tfcli.Options{
			TFPath:   cfg.Server.TFPath,
			URL:      cfg.Server.URL,
			Computer: computer,
			User:     cfg.Server.User,
			Password: cfg.Server.Password,
		})
		if out != nil {
			client.WithOutput(out)
		}
		return client, nil
	case domain.BackendGit:
		if cfg.Server.Repository == "" {
			return nil, fmt.Errorf("%w: [server] repository is required for the git backend", domain.ErrConfigInvalid)
		}
		return gitserver.Open(cfg.Server.Repository, computer, cfg.Server.User)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownBackend, cfg.Server.Backend)
	}
}

// Connect opens the server connection if it is not open yet.
// One connection serves one checkout: the registry caches its answers.
func (c *Container) Connect() error {
	if c.Server != nil {
		return nil
	}
	server, err := NewServer(c.AppConfig, c.executor, c.console)
	if err != nil {
		return err
	}
	c.Server = server
	c.Registry = registry.New(server)
	return nil
}

// Close releases the log files.
func (c *Container) Close() error {
	if c.Logger == nil {
		return nil
	}
	return c.Logger.Close()
}

// UseCase factory methods

// CheckoutUseCase returns a new Checkout use case.
func (c *Container) CheckoutUseCase() (*usecase.Checkout, error) {
	if err := c.Connect(); err != nil {
		return nil, err
	}
	return usecase.NewCheckout(c.Registry, c.Server, c.Folders, c.Workspaces, c.Logger, c.Clock), nil
}

// ReconcileWorkspaceUseCase returns a new ReconcileWorkspace use case.
func (c *Container) ReconcileWorkspaceUseCase() (*usecase.ReconcileWorkspace, error) {
	if err := c.Connect(); err != nil {
		return nil, err
	}
	return usecase.NewReconcileWorkspace(c.Registry, c.Folders, c.Logger), nil
}

// ListWorkspacesUseCase returns a new ListWorkspaces use case.
func (c *Container) ListWorkspacesUseCase() (*usecase.ListWorkspaces, error) {
	if err := c.Connect(); err != nil {
		return nil, err
	}
	return usecase.NewListWorkspaces(c.Registry), nil
}

// DeleteWorkspaceUseCase returns a new DeleteWorkspace use case.
func (c *Container) DeleteWorkspaceUseCase() (*usecase.DeleteWorkspace, error) {
	if err := c.Connect(); err != nil {
		return nil, err
	}
	return usecase.NewDeleteWorkspace(c.Registry, c.Workspaces, c.Logger), nil
}

// ShowConfigUseCase returns a new ShowConfig use case.
func (c *Container) ShowConfigUseCase() *usecase.ShowConfig {
	return usecase.NewShowConfig(c.ConfigManager, c.ConfigLoader)
}

// InitConfigUseCase returns a new InitConfig use case.
func (c *Container) InitConfigUseCase() *usecase.InitConfig {
	return usecase.NewInitConfig(c.ConfigManager)
}
