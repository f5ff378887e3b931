// Package resolver turns a tutorial workflow configuration into concrete
// filesystem paths, and loads assets and deploys notebooks on behalf of one
// workflow.
//
// A Resolver is built once per session from a YAML file:
//
//	r, err := resolver.New("config.yaml", "consensus",
//	    resolver.WithRelated("downloads"))
//	if err != nil {
//	    return err
//	}
//	graphPath := r.Artifacts()["graph"]
//
// Construction is fail-fast: any error leaves no Resolver behind.
package resolver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tutorialkit/internal/assets"
	"github.com/fyrsmithlabs/tutorialkit/internal/config"
	"github.com/fyrsmithlabs/tutorialkit/internal/logging"
	"github.com/fyrsmithlabs/tutorialkit/internal/publish"
)

const instrumentationName = "github.com/fyrsmithlabs/tutorialkit/internal/resolver"

const initMessage = "This appears to be the first time you've run a tutorial since a directory for " +
	"storing tutorial data does not exist. This directory, defined by 'data_dir' in the " +
	"global_vars section of the config, is currently set as %s."

// Artifacts maps an artifact key to an absolute path.
type Artifacts map[string]string

// Resolver exposes the paths and operations of one workflow.
type Resolver struct {
	cfg            *config.WorkflowConfig
	workflow       string
	settings       config.Workflow
	dataDir        string
	speciesDataDir string
	artifacts      Artifacts
	related        map[string]Artifacts

	relatedNames []string
	loader       assets.Loader
	assetBaseURL string
	publisher    publish.Publisher
	assetType    string
	logger       *logging.Logger
	lookupEnv    config.LookupFunc
	tracer       trace.Tracer
}

// New loads configPath and resolves the artifacts of workflow. Parent
// directories of the workflow's artifacts are created; the files are not.
func New(configPath, workflow string, opts ...Option) (*Resolver, error) {
	r := &Resolver{workflow: workflow, tracer: otel.Tracer(instrumentationName)}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logging.NewNop()
	}
	if r.loader == nil {
		r.loader = assets.NewHTTPDownloader(r.assetBaseURL, assets.WithLogger(r.logger))
	}
	if r.publisher == nil {
		r.publisher = publish.NewCLI(r.logger, nil, nil)
	}
	if r.assetType == "" {
		r.assetType = publish.DefaultAssetType
	}

	cfg, err := config.LoadWorkflowConfig(configPath)
	if err != nil {
		return nil, err
	}
	r.cfg = cfg

	settings, err := cfg.Workflow(workflow)
	if err != nil {
		return nil, err
	}
	r.settings = settings

	dataDir, err := homedir.Expand(cfg.GlobalVars.DataDir)
	if err != nil {
		return nil, fmt.Errorf("expanding data_dir %q: %w", cfg.GlobalVars.DataDir, err)
	}
	dataDir, err = filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("resolving data_dir %q: %w", cfg.GlobalVars.DataDir, err)
	}
	r.dataDir = dataDir
	r.speciesDataDir = SpeciesDataDir(dataDir, cfg.GlobalVars.Species)

	r.artifacts = r.resolve(settings)

	if len(r.relatedNames) > 0 {
		r.related = make(map[string]Artifacts, len(r.relatedNames))
		for _, name := range r.relatedNames {
			related, err := r.ResolveArtifacts(name)
			if err != nil {
				return nil, err
			}
			r.related[name] = related
		}
	}

	for _, path := range r.artifacts {
		if err := r.createArtifactDir(path); err != nil {
			return nil, err
		}
	}

	r.logger.Debug(context.Background(), "resolved workflow",
		zap.String("workflow", workflow),
		zap.String("data_dir", r.dataDir),
		zap.Int("artifacts", len(r.artifacts)))

	return r, nil
}

// NormalizeSpecies replaces spaces with underscores.
func NormalizeSpecies(species string) string {
	return strings.ReplaceAll(species, " ", "_")
}

// SpeciesDataDir returns the per-species directory under dataDir.
func SpeciesDataDir(dataDir, species string) string {
	return filepath.Join(dataDir, NormalizeSpecies(species))
}

// ResolveArtifacts returns the absolute artifact paths of a workflow, or nil
// when it declares none. Nothing is created on disk.
func (r *Resolver) ResolveArtifacts(workflow string) (Artifacts, error) {
	settings, err := r.cfg.Workflow(workflow)
	if err != nil {
		return nil, err
	}
	return r.resolve(settings), nil
}

func (r *Resolver) resolve(wf config.Workflow) Artifacts {
	if wf.Artifacts == nil {
		return nil
	}
	base := r.dataDir
	if wf.IsSpeciesSpecific() {
		base = r.speciesDataDir
	}
	out := make(Artifacts, len(wf.Artifacts))
	for key, rel := range wf.Artifacts {
		out[key] = filepath.Join(base, rel)
	}
	return out
}

func (r *Resolver) createArtifactDir(path string) error {
	parent := filepath.Dir(path)
	info, err := os.Stat(parent)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("artifact directory %s exists and is not a directory", parent)
		}
		return nil
	}
	r.logger.Info(context.Background(), "artifact directory not found; creating it", zap.String("path", parent))
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("creating artifact directory %s: %w", parent, err)
	}
	return nil
}

// LoadAsset makes a tutorial asset available under the data directory and
// returns its local path. subassetID is optional.
func (r *Resolver) LoadAsset(ctx context.Context, assetID, subassetID string) (string, error) {
	ctx, span := r.tracer.Start(ctx, "resolver.LoadAsset", trace.WithAttributes(
		attribute.String("workflow", r.workflow),
		attribute.String("asset.id", assetID),
		attribute.String("asset.subasset", subassetID),
	))
	defer span.End()

	ctx = logging.WithWorkflow(ctx, r.workflow)
	path, err := r.loader.Load(ctx, assets.Request{
		AssetID:     assetID,
		SubassetID:  subassetID,
		TargetDir:   r.dataDir,
		InitMessage: initMessage,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return path, nil
}

// Deploy publishes the workflow's notebook to the named Connect server.
// The credential is read from the environment on every call. A non-zero
// exit from rsconnect is returned as *publish.Error.
func (r *Resolver) Deploy(ctx context.Context, serverName string, settings config.ConnectSettings, venvPath string) (err error) {
	ctx, span := r.tracer.Start(ctx, "resolver.Deploy", trace.WithAttributes(
		attribute.String("workflow", r.workflow),
		attribute.String("connect.server", serverName),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	ctx = logging.WithWorkflow(ctx, r.workflow)

	if err := settings.Validate(); err != nil {
		return err
	}
	server, err := settings.Server(serverName)
	if err != nil {
		return err
	}
	apiKey, err := server.Credential(r.lookupEnv)
	if err != nil {
		return err
	}

	req := publish.Request{
		AssetType:    r.assetType,
		NotebookFile: r.settings.Name,
		Title:        r.settings.Title,
		ServerURL:    server.URL,
		APIKey:       apiKey,
		AppID:        r.settings.AppID(),
		VenvPath:     venvPath,
	}
	span.SetAttributes(attribute.Bool("publish.new", req.AppID == ""))
	r.logger.Debug(ctx, "deploy request",
		zap.String("server", serverName),
		zap.String("notebook", req.NotebookFile),
		zap.Bool("new", req.AppID == ""))

	code, err := r.publisher.Publish(ctx, req)
	span.SetAttributes(attribute.Int("publish.exit_code", code))
	if err != nil {
		return &publish.Error{ExitCode: code, Err: err}
	}
	if code != 0 {
		return &publish.Error{ExitCode: code}
	}
	return nil
}

// Workflow returns the primary workflow name.
func (r *Resolver) Workflow() string { return r.workflow }

// WorkflowSettings returns the primary workflow's configuration.
func (r *Resolver) WorkflowSettings() config.Workflow { return r.settings }

// Config returns the validated configuration.
func (r *Resolver) Config() *config.WorkflowConfig { return r.cfg }

// DataDir returns the absolute, home-expanded data directory.
func (r *Resolver) DataDir() string { return r.dataDir }

// SpeciesDataDir returns the per-species data directory.
func (r *Resolver) SpeciesDataDir() string { return r.speciesDataDir }

// Species returns the configured species name as written in the config.
func (r *Resolver) Species() string { return r.cfg.GlobalVars.Species }

// Overwrite reports the global overwrite flag.
func (r *Resolver) Overwrite() bool { return r.cfg.GlobalVars.ShouldOverwrite() }

// Artifacts returns the primary workflow's artifact paths, or nil.
func (r *Resolver) Artifacts() Artifacts { return r.artifacts }

// Related returns the artifacts of each related workflow, or nil when none
// were requested. A related workflow without artifacts maps to nil.
func (r *Resolver) Related() map[string]Artifacts { return r.related }
