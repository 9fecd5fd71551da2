// Package executor provides command execution functionality.
package executor

import (
	"context"
	"io"
	"os/exec"

	"github.com/jenkinsci/tfs-checkout/internal/domain"
)

// Client implements domain.CommandExecutor interface.
type Client struct{}

// NewClient creates a new command executor client.
func NewClient() *Client {
	return &Client{}
}

// Ensure Client implements domain.CommandExecutor interface.
var _ domain.CommandExecutor = (*Client)(nil)

// Execute runs the command and returns its combined output.
// A failed run is reported as a *domain.CommandError carrying the output.
func (c *Client) Execute(ctx context.Context, cmd *domain.ExecCommand) ([]byte, error) {
	// #nosec G204 - cmd.Program and cmd.Args come from trusted backend code
	execCmd := exec.CommandContext(ctx, cmd.Program, cmd.Args...)
	if cmd.Dir != "" {
		execCmd.Dir = cmd.Dir
	}
	out, err := execCmd.CombinedOutput()
	if err != nil {
		return out, &domain.CommandError{Command: cmd.String(), Output: string(out), Err: err}
	}
	return out, nil
}

// ExecuteWithContext runs a command with context and custom stdout/stderr writers.
func (c *Client) ExecuteWithContext(ctx context.Context, cmd *domain.ExecCommand, stdout, stderr io.Writer) error {
	// #nosec G204 - cmd.Program and cmd.Args come from trusted backend code
	execCmd := exec.CommandContext(ctx, cmd.Program, cmd.Args...)
	if cmd.Dir != "" {
		execCmd.Dir = cmd.Dir
	}
	execCmd.Stdout = stdout
	execCmd.Stderr = stderr
	if err := execCmd.Run(); err != nil {
		return &domain.CommandError{Command: cmd.String(), Err: err}
	}
	return nil
}
