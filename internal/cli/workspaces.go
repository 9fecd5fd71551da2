package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jenkinsci/tfs-checkout/internal/usecase"
)

// newWorkspacesCommand creates the workspaces command.
func newWorkspacesCommand(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workspaces",
		Aliases: []string{"ws"},
		Short:   "Manage server workspaces of this computer",
	}

	cmd.AddCommand(newWorkspacesListCommand(st))
	cmd.AddCommand(newWorkspacesDeleteCommand(st))

	return cmd
}

func newWorkspacesListCommand(st *state) *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List workspaces on the server",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uc, err := st.container.ListWorkspacesUseCase()
			if err != nil {
				return err
			}
			out, err := uc.Execute(cmd.Context(), usecase.ListWorkspacesInput{Prefix: prefix})
			if err != nil {
				return err
			}

			if len(out.Workspaces) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No workspaces found.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "NAME\tCOMPUTER\tOWNER\tCOMMENT")
			for _, ws := range out.Workspaces {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", ws.Name, ws.Computer, ws.Owner, ws.Comment)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "Only list workspaces whose name starts with prefix")

	return cmd
}

func newWorkspacesDeleteCommand(st *state) *cobra.Command {
	var node string

	cmd := &cobra.Command{
		Use:     "delete <name>",
		Aliases: []string{"rm"},
		Short:   "Delete a workspace from the server",
		Long: `Delete a workspace from the server. With --node the configuration
recorded for that node is marked removed, so the next checkout there
creates the workspace again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uc, err := st.container.DeleteWorkspaceUseCase()
			if err != nil {
				return err
			}
			out, err := uc.Execute(cmd.Context(), usecase.DeleteWorkspaceInput{
				Name: args[0],
				Node: node,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted workspace %s\n", out.Ref.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&node, "node", "", "Node whose recorded workspace configuration is marked removed")

	return cmd
}
