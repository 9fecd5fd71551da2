package domain

import "strings"

// ExecCommand represents an external command to be executed.
// This type is used to pass command information between layers
// without exposing implementation details.
type ExecCommand struct {
	Program string
	Dir     string
	Args    []string
	// Masked lists argument prefixes whose values are hidden by String.
	Masked []string
}

// String renders the command line for logs with masked values hidden.
func (c *ExecCommand) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Program)
	for _, arg := range c.Args {
		parts = append(parts, c.maskArg(arg))
	}
	return strings.Join(parts, " ")
}

func (c *ExecCommand) maskArg(arg string) string {
	for _, prefix := range c.Masked {
		if strings.HasPrefix(arg, prefix) {
			return prefix + "********"
		}
	}
	return arg
}

// CommandError reports an external command that failed.
type CommandError struct {
	Err     error
	Command string // Masked command line
	Output  string
}

func (e *CommandError) Error() string {
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return e.Command + ": " + e.Err.Error()
	}
	return e.Command + ": " + e.Err.Error() + ": " + out
}

// Unwrap returns ErrServerCommand and the underlying failure.
func (e *CommandError) Unwrap() []error {
	return []error{ErrServerCommand, e.Err}
}
