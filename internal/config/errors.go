package config

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for errors.Is matching. The typed errors below report
// themselves as the matching sentinel.
var (
	ErrNotFound          = errors.New("not found")
	ErrParse             = errors.New("malformed configuration")
	ErrValidation        = errors.New("configuration validation failed")
	ErrUnknownWorkflow   = errors.New("unknown workflow")
	ErrUnknownServer     = errors.New("unknown connect server")
	ErrMissingCredential = errors.New("missing credential")
)

// NotFoundError reports a missing configuration file or an expected
// directory that does not exist.
type NotFoundError struct {
	Path   string
	Reason string
}

func (e *NotFoundError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Reason, e.Path)
	}
	return fmt.Sprintf("path not found: %s", e.Path)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ParseError reports YAML that could not be decoded.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// FieldError is a single schema violation.
type FieldError struct {
	// Field is the dotted path of the offending key, e.g.
	// "workflows[qc].title". Empty when the decoder could not attribute the
	// problem to a single field.
	Field   string
	Message string
}

func (f FieldError) String() string {
	if f.Field == "" {
		return f.Message
	}
	return f.Field + ": " + f.Message
}

// ValidationError carries every field-level violation found in a document.
type ValidationError struct {
	// Source names what was validated (a file path or "connect settings").
	Source string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.String())
	}
	return fmt.Sprintf("invalid %s: %s", e.Source, strings.Join(msgs, "; "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// UnknownWorkflowError reports a workflow name absent from the config.
type UnknownWorkflowError struct {
	Name      string
	Available []string
}

func (e *UnknownWorkflowError) Error() string {
	return fmt.Sprintf("workflow %q is not defined in the config; the named workflows are: %s",
		e.Name, strings.Join(e.Available, ", "))
}

func (e *UnknownWorkflowError) Is(target error) bool { return target == ErrUnknownWorkflow }

// UnknownServerError reports a connect server name absent from the settings.
type UnknownServerError struct {
	Name      string
	Available []string
}

func (e *UnknownServerError) Error() string {
	return fmt.Sprintf("server %q did not match any connect server settings; available servers: %s",
		e.Name, strings.Join(e.Available, ", "))
}

func (e *UnknownServerError) Is(target error) bool { return target == ErrUnknownServer }

// MissingCredentialError reports an unset credential environment variable.
type MissingCredentialError struct {
	EnvVar string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("no environment variable named %s was found; export it in your shell profile and restart the session", e.EnvVar)
}

func (e *MissingCredentialError) Is(target error) bool { return target == ErrMissingCredential }
