// Package publish deploys rendered notebooks to a Posit Connect server by
// invoking the rsconnect command-line tool.
package publish

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/tutorialkit/internal/config"
)

// DefaultAssetType is the rsconnect deploy subcommand used for tutorials.
const DefaultAssetType = "quarto"

const redacted = "[REDACTED]"

// Request describes one deployment.
type Request struct {
	AssetType    string
	NotebookFile string
	Title        string
	ServerURL    string
	APIKey       config.Secret
	// AppID updates existing content when set; otherwise new content is created.
	AppID string
	// VenvPath, when set, is activated before rsconnect runs.
	VenvPath string
}

// Publisher runs a deployment and reports the tool's exit code.
type Publisher interface {
	Publish(ctx context.Context, req Request) (int, error)
}

// Error reports a failed deployment.
type Error struct {
	ExitCode int
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("publish failed: %v", e.Err)
	}
	return fmt.Sprintf("publish failed: rsconnect exited with code %d", e.ExitCode)
}

func (e *Error) Unwrap() error { return e.Err }

// Validate checks the fields rsconnect cannot run without.
func (r Request) Validate() error {
	var missing []string
	if r.NotebookFile == "" {
		missing = append(missing, "notebook file")
	}
	if r.Title == "" {
		missing = append(missing, "title")
	}
	if r.ServerURL == "" {
		missing = append(missing, "server URL")
	}
	if !r.APIKey.IsSet() {
		missing = append(missing, "API key")
	}
	if len(missing) > 0 {
		return errors.New("publish request is missing " + strings.Join(missing, ", "))
	}
	return nil
}

// Args returns the rsconnect argv, including the program name.
func (r Request) Args() []string {
	return r.args(r.APIKey.Value())
}

// Redacted renders the command line with the API key masked.
func (r Request) Redacted() string {
	return strings.Join(r.args(redacted), " ")
}

func (r Request) args(apiKey string) []string {
	assetType := r.AssetType
	if assetType == "" {
		assetType = DefaultAssetType
	}
	args := []string{
		"rsconnect", "deploy", assetType,
		"--title", r.Title,
		"--server", r.ServerURL,
		"--api-key", apiKey,
	}
	if r.AppID == "" {
		return append(args, "--new", r.NotebookFile)
	}
	return append(args, "--app-id", r.AppID, r.NotebookFile)
}
