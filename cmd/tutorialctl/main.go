// Package main implements tutorialctl, the command-line companion for
// napistu tutorial notebooks.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tutorialkit/internal/config"
	"github.com/fyrsmithlabs/tutorialkit/internal/logging"
	"github.com/fyrsmithlabs/tutorialkit/internal/resolver"
	"github.com/fyrsmithlabs/tutorialkit/internal/telemetry"
)

// version information, set at build time
var version = "dev"

// assetURLEnv names the variable holding the public asset bucket URL.
const assetURLEnv = config.EnvPrefix + "ASSET_URL"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{}
	err := newRootCmd(a).ExecuteContext(ctx)
	a.close()
	if err != nil {
		os.Exit(1)
	}
}

// app holds the state shared by all subcommands.
type app struct {
	logLevel   string
	logFormat  string
	configPath string
	workflow   string
	assetURL   string

	logger    *logging.Logger
	telemetry *telemetry.Telemetry
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "tutorialctl",
		Short: "Resolve tutorial artifacts, fetch data and deploy notebooks",
		Long: `tutorialctl reads a tutorial config.yaml and works with one of its workflows.

It resolves artifact paths under the data directory, downloads bundled
tutorial assets, deploys rendered notebooks to Posit Connect, and serves the
configuration to MCP inspector clients.

Environment:
  TUTORIAL_DATA_DIR, TUTORIAL_SPECIES, TUTORIAL_OVERWRITE override global_vars.
  TUTORIAL_ASSET_URL sets the asset bucket used by "asset".
  TUTORIAL_OTEL_* configures OTLP trace and metric export (off by default).`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.initLogger(cmd); err != nil {
				return err
			}
			return a.initTelemetry(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	flags.StringVar(&a.logFormat, "log-format", "console", "log format (console or json)")

	root.AddCommand(
		newArtifactsCmd(a),
		newAssetCmd(a),
		newDeployCmd(a),
		newTestDataCmd(a),
		newInspectCmd(a),
	)
	return root
}

func (a *app) initLogger(cmd *cobra.Command) error {
	level, err := logging.LevelFromString(a.logLevel)
	if err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", a.logLevel, err)
	}
	cfg := logging.NewDefaultConfig()
	cfg.Level = level
	cfg.Format = a.logFormat

	logger, err := logging.NewLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = logger
	return nil
}

func (a *app) initTelemetry(cmd *cobra.Command) error {
	defaults := telemetry.NewDefaultConfig()
	defaults.ServiceVersion = version
	cfg, err := telemetry.LoadConfig(defaults)
	if err != nil {
		return err
	}
	tel, err := telemetry.New(cmd.Context(), cfg, a.logger)
	if err != nil {
		return err
	}
	a.telemetry = tel
	return nil
}

// close flushes telemetry and logs. Safe to call when initialization
// never ran.
func (a *app) close() {
	if err := a.telemetry.Shutdown(context.Background()); err != nil && a.logger != nil {
		a.logger.Warn(context.Background(), "telemetry shutdown failed", zap.Error(err))
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// addWorkflowFlags registers the flags every resolver-backed command needs.
func (a *app) addWorkflowFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&a.configPath, "config", "c", "config.yaml", "path to the tutorial config file")
	cmd.Flags().StringVarP(&a.workflow, "workflow", "w", "", "workflow name from the config")
	_ = cmd.MarkFlagRequired("workflow")
}

func (a *app) newResolver(opts ...resolver.Option) (*resolver.Resolver, error) {
	assetURL := a.assetURL
	if assetURL == "" {
		assetURL = os.Getenv(assetURLEnv)
	}
	opts = append([]resolver.Option{
		resolver.WithLogger(a.logger),
		resolver.WithAssetBaseURL(assetURL),
	}, opts...)
	return resolver.New(a.configPath, a.workflow, opts...)
}
