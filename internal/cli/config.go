package cli

import (
	"fmt"
	"io"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/jenkinsci/tfs-checkout/internal/domain"
	"github.com/jenkinsci/tfs-checkout/internal/usecase"
)

// newConfigCommand creates the config command.
func newConfigCommand(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `Manage the global and job configuration files.`,
		// No RunE: shows subcommand list when called without arguments
	}

	cmd.AddCommand(newConfigShowCommand(st))
	cmd.AddCommand(newConfigInitCommand(st))

	return cmd
}

// newConfigShowCommand creates the config show subcommand.
func newConfigShowCommand(st *state) *cobra.Command {
	var ignoreGlobal, ignoreRepo bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration",
		Long: `Display effective configuration after merging all sources.

Shows which config files were loaded and the final merged configuration.
Use --ignore-global or --ignore-repo to leave a source out of the list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uc := st.container.ShowConfigUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.ShowConfigInput{
				IgnoreGlobal: ignoreGlobal,
				IgnoreRepo:   ignoreRepo,
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()

			_, _ = fmt.Fprintln(w, "[Loaded from]")
			if !ignoreGlobal {
				printConfigSource(w, out.GlobalConfig)
			}
			if !ignoreRepo {
				printConfigSource(w, out.RepoConfig)
			}
			_, _ = fmt.Fprintln(w)

			_, _ = fmt.Fprintln(w, "[Effective Config]")
			return formatEffectiveConfig(w, out.EffectiveConfig)
		},
	}

	cmd.Flags().BoolVar(&ignoreGlobal, "ignore-global", false, "Ignore global configuration")
	cmd.Flags().BoolVar(&ignoreRepo, "ignore-repo", false, "Ignore job configuration (.tfs-checkout.toml)")

	return cmd
}

func printConfigSource(w io.Writer, info domain.ConfigInfo) {
	if info.Path == "" {
		return
	}
	if info.Exists {
		_, _ = fmt.Fprintf(w, "- %s\n", info.Path)
	} else {
		_, _ = fmt.Fprintf(w, "- %s (not found)\n", info.Path)
	}
}

// formatEffectiveConfig writes cfg as TOML with the password masked.
func formatEffectiveConfig(w io.Writer, cfg *domain.Config) error {
	shown := *cfg
	if shown.Server.Password != "" {
		shown.Server.Password = "********"
	}
	data, err := toml.Marshal(&shown)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// newConfigInitCommand creates the config init subcommand.
func newConfigInitCommand(st *state) *cobra.Command {
	var global bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file with default values",
		Long: `Create a configuration file with default values.

Without --global the file is .tfs-checkout.toml in the job directory.
An existing file is never overwritten.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uc := st.container.InitConfigUseCase()
			out, err := uc.Execute(cmd.Context(), usecase.InitConfigInput{Global: global})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", out.Path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&global, "global", "g", false, "Create the global configuration file")

	return cmd
}
