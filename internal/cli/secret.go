package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jenkinsci/tfs-checkout/internal/infra/crypto"
)

// newSecretCommand creates the secret command.
func newSecretCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Encrypt the server password for configuration files",
	}

	cmd.AddCommand(newSecretGenKeyCommand())
	cmd.AddCommand(newSecretEncryptCommand())
	noContainer(cmd)

	return cmd
}

func newSecretGenKeyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "genkey",
		Short: "Generate a key for " + crypto.KeyEnv,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := crypto.GenerateKey()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
	noContainer(cmd)
	return cmd
}

func newSecretEncryptCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encrypt [value]",
		Short: "Encrypt a value with the key in " + crypto.KeyEnv,
		Long: `Encrypt a value with the key in ` + crypto.KeyEnv + ` and print it in the
"enc:" form accepted by [server] password. Without an argument the value
is read from the first line of standard input.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := os.Getenv(crypto.KeyEnv)
			if key == "" {
				return fmt.Errorf("%s is not set", crypto.KeyEnv)
			}
			enc, err := crypto.NewEncryptor(key)
			if err != nil {
				return fmt.Errorf("%s: %w", crypto.KeyEnv, err)
			}

			var value string
			if len(args) > 0 {
				value = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read value: %w", err)
				}
				value = strings.TrimRight(line, "\r\n")
			}

			secret, err := enc.EncryptSecret(value)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), secret)
			return nil
		},
	}
	noContainer(cmd)
	return cmd
}
