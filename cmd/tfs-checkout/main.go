// Package main is the entry point for the tfs-checkout CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jenkinsci/tfs-checkout/internal/app"
	"github.com/jenkinsci/tfs-checkout/internal/cli"
	"github.com/jenkinsci/tfs-checkout/internal/domain"
)

// version is set at build time using -ldflags.
var version = "dev"

func main() {
	err := cli.NewRootCommand(app.New, version).Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(exitCode(err))
}

// exitCode maps err to the process exit status. Configuration mistakes
// exit with 2 so build jobs can tell them from server failures.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, domain.ErrConfigInvalid),
		errors.Is(err, domain.ErrInvalidCheckoutStrategy),
		errors.Is(err, domain.ErrInvalidSecret),
		errors.Is(err, domain.ErrUnknownBackend):
		return 2
	default:
		return 1
	}
}
