package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/kballard/go-shellquote"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tutorialkit/internal/logging"
)

// DefaultShell runs rsconnect when a virtual environment must be activated.
const DefaultShell = "/bin/bash"

// commandFunc matches exec.CommandContext.
type commandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

// CLI publishes by running rsconnect as a child process.
type CLI struct {
	Shell  string
	Stdout io.Writer
	Stderr io.Writer
	Logger *logging.Logger

	command commandFunc
}

// NewCLI returns a CLI that streams rsconnect output to the given writers.
// Nil writers default to os.Stderr; stdout may belong to an MCP transport.
func NewCLI(logger *logging.Logger, stdout, stderr io.Writer) *CLI {
	if logger == nil {
		logger = logging.NewNop()
	}
	if stdout == nil {
		stdout = os.Stderr
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return &CLI{
		Shell:   DefaultShell,
		Stdout:  stdout,
		Stderr:  stderr,
		Logger:  logger,
		command: exec.CommandContext,
	}
}

// Publish implements Publisher. A command that starts and exits non-zero
// returns its exit code and a nil error; failing to start returns an error.
func (c *CLI) Publish(ctx context.Context, req Request) (int, error) {
	if err := req.Validate(); err != nil {
		return -1, err
	}

	name, args := c.argv(req)
	c.Logger.Info(ctx, "deploying notebook",
		zap.String("command", req.Redacted()),
		zap.String("venv", req.VenvPath),
		logging.Secret("api_key", req.APIKey))

	cmd := c.command(ctx, name, args...)
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr

	start := time.Now()
	err := cmd.Run()
	if err == nil {
		c.Logger.Info(ctx, "deploy finished", zap.Duration("took", time.Since(start)))
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		c.Logger.Warn(ctx, "rsconnect exited with non-zero status", zap.Int("exit_code", code))
		return code, nil
	}
	return -1, fmt.Errorf("running rsconnect: %w", err)
}

// argv returns the program and arguments to execute.
func (c *CLI) argv(req Request) (string, []string) {
	args := req.Args()
	if req.VenvPath == "" {
		return args[0], args[1:]
	}
	shell := c.Shell
	if shell == "" {
		shell = DefaultShell
	}
	activate := filepath.Join(req.VenvPath, "bin", "activate")
	script := "source " + shellquote.Join(activate) + " && " + shellquote.Join(args...)
	return shell, []string{"-c", script}
}
