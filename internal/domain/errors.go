package domain

import "errors"

// Domain errors.
var (
	ErrInvalidCheckoutStrategy = errors.New("invalid checkout strategy")
	ErrInvalidVersionSpec      = errors.New("invalid version spec")
	ErrConfigInvalid           = errors.New("invalid configuration")
	ErrConfigExists            = errors.New("config file already exists")
	ErrWorkspaceNotFound       = errors.New("workspace not found")
	ErrWorkspaceExists         = errors.New("workspace already exists")
	ErrMappingInUse            = errors.New("local folder is mapped by another workspace")
	ErrNoMapping               = errors.New("no workspace maps the local path")
	ErrLabelNotFound           = errors.New("label not found")
	ErrNoVersionAtTime         = errors.New("no version exists at or before the requested time")
	ErrServerCommand           = errors.New("server command failed")
	ErrUnknownBackend          = errors.New("unknown server backend")
	ErrInvalidSecret           = errors.New("invalid secret")
	ErrChangelogCorrupted      = errors.New("changelog file is corrupted")
	ErrStateFileCorrupted      = errors.New("workspace state file is corrupted")
)
