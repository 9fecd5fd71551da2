// Package tfcli implements the version-control server port on top of the
// Team Explorer Everywhere "tf" command line client.
package tfcli

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/jenkinsci/tfs-checkout/internal/domain"
)

// Ensure Client implements domain.Server.
var _ domain.Server = (*Client)(nil)

const loginPrefix = "-login:"

// Output fragments tf prints when a lookup finds nothing.
var (
	noWorkspaceMessages = []string{
		"No workspace matching",
		"TF14061",
	}
	noMappingMessages = []string{
		"no working folder mapping",
		"Unable to determine the workspace",
		"is not mapped",
		"TF14045",
	}
)

// Options configures a Client.
type Options struct {
	TFPath   string // tf executable (default: "tf")
	URL      string // Collection URL
	Computer string // Computer owning the workspaces
	User     string // Login user, DOMAIN\user allowed
	Password string
	Comment  string // Comment stored on created workspaces
}

// Client runs tf commands through a CommandExecutor.
// Fields are ordered to minimize memory padding.
type Client struct {
	exec   domain.CommandExecutor
	output io.Writer      // Receives "tf get" output, nil discards it
	loc    *time.Location // Zone of the dates tf history prints
	opts   Options
}

// NewClient creates a tf client.
func NewClient(exec domain.CommandExecutor, opts Options) *Client {
	if opts.TFPath == "" {
		opts.TFPath = "tf"
	}
	if opts.Comment == "" {
		opts.Comment = "Created by tfs-checkout"
	}
	return &Client{exec: exec, opts: opts, loc: time.Local}
}

// WithOutput streams the output of fetches to w.
func (c *Client) WithOutput(w io.Writer) *Client {
	c.output = w
	return c
}

// WithLocation sets the zone used to read history dates.
func (c *Client) WithLocation(loc *time.Location) *Client {
	c.loc = loc
	return c
}

// command builds a tf invocation. Connection options follow the
// subcommand's options and precede its free arguments.
func (c *Client) command(sub string, opts []string, free ...string) *domain.ExecCommand {
	args := make([]string, 0, len(opts)+len(free)+4)
	args = append(args, sub)
	args = append(args, opts...)
	args = append(args, "-noprompt")
	if c.opts.URL != "" {
		args = append(args, "-collection:"+c.opts.URL)
	}
	if c.opts.User != "" {
		args = append(args, loginPrefix+c.opts.User+","+c.opts.Password)
	}
	args = append(args, free...)
	return &domain.ExecCommand{
		Program: c.opts.TFPath,
		Args:    args,
		Masked:  []string{loginPrefix},
	}
}

func (c *Client) run(ctx context.Context, cmd *domain.ExecCommand) (string, error) {
	out, err := c.exec.Execute(ctx, cmd)
	return string(out), err
}

// outputMentions reports whether err is a failed command whose output
// contains one of the fragments.
func outputMentions(err error, fragments []string) bool {
	var cmdErr *domain.CommandError
	if !errors.As(err, &cmdErr) {
		return false
	}
	for _, f := range fragments {
		if strings.Contains(cmdErr.Output, f) {
			return true
		}
	}
	return false
}

func (c *Client) queryWorkspaces(ctx context.Context, name string) ([]domain.WorkspaceRef, error) {
	opts := []string{"-format:brief"}
	if c.opts.Computer != "" {
		opts = append(opts, "-computer:"+c.opts.Computer)
	}
	var free []string
	if name != "" {
		free = append(free, name)
	}
	out, err := c.run(ctx, c.command("workspaces", opts, free...))
	if err != nil {
		if outputMentions(err, noWorkspaceMessages) {
			return nil, nil
		}
		return nil, err
	}
	return parseWorkspaces(out), nil
}

// WorkspaceExists reports whether a workspace with the name exists on the
// configured computer.
func (c *Client) WorkspaceExists(ctx context.Context, name string) (bool, error) {
	refs, err := c.queryWorkspaces(ctx, name)
	if err != nil {
		return false, err
	}
	for _, ref := range refs {
		if domain.SameWorkspaceName(ref.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

// ListWorkspaces returns the workspaces of the configured computer.
func (c *Client) ListWorkspaces(ctx context.Context) ([]domain.WorkspaceRef, error) {
	return c.queryWorkspaces(ctx, "")
}

// MappingOwnerOf returns the workspace whose working folder contains localPath.
func (c *Client) MappingOwnerOf(ctx context.Context, localPath string) (string, bool, error) {
	out, err := c.run(ctx, c.command("workfold", nil, localPath))
	if err != nil {
		if outputMentions(err, noMappingMessages) {
			return "", false, nil
		}
		return "", false, err
	}
	name, ok := parseWorkfoldOwner(out)
	return name, ok, nil
}

// CreateWorkspace creates the workspace and its working folder mappings.
// Cloaked paths and mappings without a local path are cloaked.
func (c *Client) CreateWorkspace(ctx context.Context, opts domain.CreateWorkspaceOptions) (*domain.WorkspaceRef, error) {
	newOpts := []string{"-new", "-comment:" + c.opts.Comment}
	if c.opts.Computer != "" {
		newOpts = append(newOpts, "-computer:"+c.opts.Computer)
	}
	if _, err := c.run(ctx, c.command("workspace", newOpts, opts.Name)); err != nil {
		return nil, err
	}

	ws := "-workspace:" + opts.Name
	if _, err := c.run(ctx, c.command("workfold", []string{"-map", ws}, opts.ServerPath, opts.LocalPath)); err != nil {
		return nil, err
	}
	for _, m := range opts.MappedPaths {
		var cmd *domain.ExecCommand
		if m.Excluded() {
			cmd = c.command("workfold", []string{"-cloak", ws}, m.ServerPath)
		} else {
			cmd = c.command("workfold", []string{"-map", ws}, m.ServerPath, m.LocalPath)
		}
		if _, err := c.run(ctx, cmd); err != nil {
			return nil, err
		}
	}
	for _, p := range opts.CloakedPaths {
		if _, err := c.run(ctx, c.command("workfold", []string{"-cloak", ws}, p)); err != nil {
			return nil, err
		}
	}

	return &domain.WorkspaceRef{
		Name:     opts.Name,
		Computer: c.opts.Computer,
		Owner:    c.opts.User,
		Comment:  c.opts.Comment,
	}, nil
}

// DeleteWorkspace deletes the workspace. Refs carrying an owner are
// qualified as name;owner. An absent workspace is not an error.
func (c *Client) DeleteWorkspace(ctx context.Context, ref domain.WorkspaceRef) error {
	spec := ref.Name
	if ref.Owner != "" {
		spec += ";" + ref.Owner
	}
	_, err := c.run(ctx, c.command("workspace", []string{"-delete"}, spec))
	if err != nil && outputMentions(err, noWorkspaceMessages) {
		return nil
	}
	return err
}

// Materialize runs "tf get" for the local folder at versionSpec.
func (c *Client) Materialize(ctx context.Context, localFolder, versionSpec string, overwrite bool) error {
	opts := []string{"-recursive", "-version:" + versionSpec}
	if overwrite {
		opts = append(opts, "-force")
	}
	// The folder may not exist yet; tf creates it from the workspace mapping.
	cmd := c.command("get", opts, localFolder)

	if c.output != nil {
		return c.exec.ExecuteWithContext(ctx, cmd, c.output, c.output)
	}
	_, err := c.run(ctx, cmd)
	return err
}

// History runs "tf history" for the query and drops changesets confined to
// excluded paths. A query without a lower bound returns the single
// changeset at To.
func (c *Client) History(ctx context.Context, q domain.HistoryQuery) ([]domain.ChangeSet, error) {
	opts := []string{"-recursive", "-format:detailed", "-version:" + q.VersionRange()}
	if q.From == nil {
		opts = append(opts, "-stopafter:1")
	}
	out, err := c.run(ctx, c.command("history", opts, q.ServerPath))
	if err != nil {
		return nil, err
	}
	changes, err := parseHistory(out, c.loc)
	if err != nil {
		return nil, err
	}
	return domain.FilterExcluded(changes, q.Excluded), nil
}
