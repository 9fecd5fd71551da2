package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jenkinsci/tfs-checkout/internal/domain"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		name string
		want int
	}{
		{nil, "success", 0},
		{fmt.Errorf("load: %w", domain.ErrConfigInvalid), "invalid config", 2},
		{&domain.StrategyError{Token: "X"}, "invalid strategy", 2},
		{domain.ErrUnknownBackend, "unknown backend", 2},
		{domain.ErrInvalidSecret, "invalid secret", 2},
		{&domain.CommandError{Err: errors.New("exit status 100"), Command: "tf get"}, "server command", 1},
		{domain.ErrWorkspaceNotFound, "not found", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
