// Package cli provides the command-line interface for tfs-checkout.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jenkinsci/tfs-checkout/internal/app"
)

// Command group IDs.
const (
	groupBuild   = "build"
	groupSetup   = "setup"
	groupInspect = "inspect"
)

// envPrefix prefixes the environment variable of every flag:
// --build-number is also read from TFS_CHECKOUT_BUILD_NUMBER.
const envPrefix = "TFS_CHECKOUT"

// annotationNoContainer marks commands that run without configuration.
const annotationNoContainer = "no-container"

// jenkinsEnv lists the build host variables read when the flag and its
// TFS_CHECKOUT_ variable are both unset.
var jenkinsEnv = map[string]string{
	"job-dir":      "WORKSPACE",
	"build-number": "BUILD_NUMBER",
	"node":         "NODE_NAME",
	"job-name":     "JOB_NAME",
}

// ContainerFactory builds the container once flags are parsed.
type ContainerFactory func(opts app.Options) (*app.Container, error)

// state is shared by all commands of one invocation.
type state struct {
	v         *viper.Viper
	newC      ContainerFactory
	container *app.Container
}

// NewRootCommand creates the root command for tfs-checkout.
// newContainer is called before any command that needs configuration.
func NewRootCommand(newContainer ContainerFactory, version string) *cobra.Command {
	st := &state{v: viper.New(), newC: newContainer}

	root := &cobra.Command{
		Use:   "tfs-checkout",
		Short: "Team Foundation Server checkout for build jobs",
		Long: `tfs-checkout reconciles a build job's TFS workspace, fetches the
project at the build's version and records the changesets since the
previous build.

Every flag can also be set through an environment variable named after it,
e.g. --build-number and TFS_CHECKOUT_BUILD_NUMBER. Inside Jenkins the
WORKSPACE, BUILD_NUMBER, NODE_NAME and JOB_NAME variables are used as well.`,
		Version: version,
		// SilenceUsage prevents usage from being printed on errors
		SilenceUsage: true,
		// SilenceErrors prevents Cobra from printing errors (we handle it in main)
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			bindFlags(st.v, cmd.Flags())
			if cmd.Annotations[annotationNoContainer] == "true" || st.newC == nil || isBuiltin(cmd) {
				return nil
			}
			return st.open(cmd)
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if st.container == nil {
				return nil
			}
			return st.container.Close()
		},
	}

	root.PersistentFlags().String("job-dir", "", "Job directory (default: current directory)")
	root.PersistentFlags().String("config-dir", "", "Global configuration directory (default: $XDG_CONFIG_HOME/tfs-checkout)")
	root.PersistentFlags().Int("build-number", 0, "Build number used in logs and the changelog")

	root.AddGroup(
		&cobra.Group{ID: groupBuild, Title: "Build Commands:"},
		&cobra.Group{ID: groupInspect, Title: "Inspection:"},
		&cobra.Group{ID: groupSetup, Title: "Setup Commands:"},
	)

	checkoutCmd := newCheckoutCommand(st)
	checkoutCmd.GroupID = groupBuild

	workspacesCmd := newWorkspacesCommand(st)
	workspacesCmd.GroupID = groupBuild

	changesCmd := newChangesCommand(st)
	changesCmd.GroupID = groupInspect

	versionSpecCmd := newVersionSpecCommand()
	versionSpecCmd.GroupID = groupInspect

	configCmd := newConfigCommand(st)
	configCmd.GroupID = groupSetup

	secretCmd := newSecretCommand()
	secretCmd.GroupID = groupSetup

	root.AddCommand(checkoutCmd, workspacesCmd, changesCmd, versionSpecCmd, configCmd, secretCmd)
	return root
}

// open builds the container and prints configuration warnings.
func (st *state) open(cmd *cobra.Command) error {
	jobDir := st.v.GetString("job-dir")
	if jobDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get current directory: %w", err)
		}
		jobDir = cwd
	}

	c, err := st.newC(app.Options{
		Console:       cmd.ErrOrStderr(),
		JobDir:        jobDir,
		GlobalConfDir: st.v.GetString("config-dir"),
		Build:         st.v.GetInt("build-number"),
	})
	if err != nil {
		return err
	}
	st.container = c

	for _, w := range c.AppConfig.Warnings {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", w)
	}
	return nil
}

// bindFlags makes every flag readable through v, falling back to its
// environment variable when the flag is not given.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	flags.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		if alias, ok := jenkinsEnv[f.Name]; ok {
			own := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			_ = v.BindEnv(f.Name, own, alias)
		}
	})
}

// isBuiltin reports whether cmd is one of cobra's help or completion commands.
func isBuiltin(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return true
		}
	}
	return false
}

// noContainer marks cmd as runnable without configuration.
func noContainer(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[annotationNoContainer] = "true"
	return cmd
}
