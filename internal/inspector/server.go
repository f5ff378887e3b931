// Package inspector serves a tutorial workflow configuration over the Model
// Context Protocol so it can be browsed with an MCP inspector client.
//
// The server is built from an explicit Session and a Profile:
//
//	session := inspector.NewSession()
//	srv, err := inspector.NewServer(cfg, res, session)
//	if err != nil {
//	    return err
//	}
//	return srv.Run(ctx)
package inspector

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tutorialkit/internal/config"
	"github.com/fyrsmithlabs/tutorialkit/internal/logging"
	"github.com/fyrsmithlabs/tutorialkit/internal/resolver"
)

// Source is the workflow view the inspector exposes. *resolver.Resolver
// implements it.
type Source interface {
	Workflow() string
	Config() *config.WorkflowConfig
	DataDir() string
	SpeciesDataDir() string
	ResolveArtifacts(workflow string) (resolver.Artifacts, error)
}

// Server is an MCP server over one Source.
type Server struct {
	mcp     *mcp.Server
	source  Source
	session *Session
	profile Profile
	metrics *Metrics
	tracer  trace.Tracer
	logger  *logging.Logger
}

// Config configures the inspector server.
type Config struct {
	// Name is the server implementation name (default: "tutorialkit-inspector")
	Name string

	// Version is the server version (default: "1.0.0")
	Version string

	// Profile names the component set to expose (default: "full")
	Profile string

	Logger  *logging.Logger
	Metrics *Metrics
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "tutorialkit-inspector",
		Version: "1.0.0",
		Profile: DefaultProfile,
	}
}

// NewServer creates a server and registers the components of the
// configured profile.
func NewServer(cfg *Config, source Source, session *Session) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if source == nil {
		return nil, fmt.Errorf("workflow source is required")
	}
	if session == nil {
		return nil, fmt.Errorf("session is required")
	}
	profile, err := GetProfile(cfg.Profile)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NewMetrics(logger)
	}
	name, version := cfg.Name, cfg.Version
	if name == "" {
		name = DefaultConfig().Name
	}
	if version == "" {
		version = DefaultConfig().Version
	}

	s := &Server{
		mcp:     mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil),
		source:  source,
		session: session,
		profile: profile,
		metrics: metrics,
		tracer:  otel.Tracer(instrumentationName),
		logger:  logger.With(zap.String("session.id", session.ID)),
	}

	if profile.Resources {
		s.registerResources()
	}
	if profile.Tools {
		s.registerWorkflowTools()
	}
	if profile.Registry {
		s.registerRegistryTools()
	}

	return s, nil
}

// Session returns the server's session.
func (s *Server) Session() *Session { return s.session }

// Profile returns the active profile.
func (s *Server) Profile() Profile { return s.profile }

// Run serves on the stdio transport until ctx is done or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	ctx = logging.WithSessionID(ctx, s.session.ID)
	s.logger.Info(ctx, "starting inspector on stdio transport",
		zap.String("profile", s.profile.Name),
		zap.String("workflow", s.source.Workflow()))
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}

// Connect serves a single session on transport. Used with in-memory
// transports.
func (s *Server) Connect(ctx context.Context, transport mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcp.Connect(ctx, transport, nil)
}
