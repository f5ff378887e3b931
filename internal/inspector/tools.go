package inspector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tutorialkit/internal/logging"
)

var errUnknownObject = errors.New("unknown object")

// ===== Workflow tools =====

type listWorkflowsInput struct{}

type listWorkflowsOutput struct {
	Workflows []workflowSummary `json:"workflows"`
}

type resolveArtifactsInput struct {
	Workflow string `json:"workflow" jsonschema:"Name of a workflow defined in the configuration"`
}

type resolveArtifactsOutput struct {
	Workflow  string            `json:"workflow"`
	Artifacts map[string]string `json:"artifacts,omitempty"`
}

// ===== Registry tools =====

type listObjectsInput struct{}

type objectSummary struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Description string `json:"description,omitempty"`
}

type listObjectsOutput struct {
	SessionID string          `json:"session_id"`
	Objects   []objectSummary `json:"objects"`
}

type describeObjectInput struct {
	Name string `json:"name" jsonschema:"Name of a registered object"`
}

type describeObjectOutput struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Description string `json:"description,omitempty"`
	Value       string `json:"value"`
}

// instrument wraps a tool handler with a span, session logging and metrics.
func instrument[In, Out any](s *Server, name string, fn func(context.Context, In) (Out, error)) mcp.ToolHandlerFor[In, Out] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in In) (*mcp.CallToolResult, Out, error) {
		ctx, span := s.tracer.Start(ctx, "inspector."+name, trace.WithAttributes(
			attribute.String("session.id", s.session.ID),
			attribute.String("profile", s.profile.Name),
		))
		defer span.End()

		ctx = logging.WithSessionID(ctx, s.session.ID)
		start := time.Now()

		out, err := fn(ctx, in)

		s.metrics.RecordInvocation(ctx, name, time.Since(start), err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.logger.Debug(ctx, "tool call failed", zap.String("tool", name), zap.Error(err))
			var zero Out
			return nil, zero, err
		}
		s.logger.Trace(ctx, "tool call", zap.String("tool", name), zap.Duration("took", time.Since(start)))
		return nil, out, nil
	}
}

func (s *Server) registerWorkflowTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_workflows",
		Description: "List the workflows defined in the tutorial configuration",
	}, instrument(s, "list_workflows", func(_ context.Context, _ listWorkflowsInput) (listWorkflowsOutput, error) {
		return listWorkflowsOutput{Workflows: s.workflowSummaries()}, nil
	}))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "resolve_artifacts",
		Description: "Resolve a workflow's artifact keys to absolute paths",
	}, instrument(s, "resolve_artifacts", func(_ context.Context, in resolveArtifactsInput) (resolveArtifactsOutput, error) {
		artifacts, err := s.source.ResolveArtifacts(in.Workflow)
		if err != nil {
			return resolveArtifactsOutput{}, err
		}
		return resolveArtifactsOutput{Workflow: in.Workflow, Artifacts: artifacts}, nil
	}))
}

func (s *Server) registerRegistryTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_objects",
		Description: "List the objects registered in this inspector session",
	}, instrument(s, "list_objects", func(_ context.Context, _ listObjectsInput) (listObjectsOutput, error) {
		objs := s.session.Objects.List()
		out := listObjectsOutput{SessionID: s.session.ID, Objects: make([]objectSummary, 0, len(objs))}
		for _, obj := range objs {
			out.Objects = append(out.Objects, objectSummary{Name: obj.Name, Kind: obj.Kind, Description: obj.Description})
		}
		return out, nil
	}))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "describe_object",
		Description: "Show a registered object's value",
	}, instrument(s, "describe_object", func(_ context.Context, in describeObjectInput) (describeObjectOutput, error) {
		obj, ok := s.session.Objects.Get(in.Name)
		if !ok {
			return describeObjectOutput{}, fmt.Errorf("%w %q", errUnknownObject, in.Name)
		}
		return describeObjectOutput{
			Name:        obj.Name,
			Kind:        obj.Kind,
			Description: obj.Description,
			Value:       render(obj.Value),
		}, nil
	}))
}
