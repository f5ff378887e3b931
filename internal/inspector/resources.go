package inspector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fyrsmithlabs/tutorialkit/internal/config"
)

const (
	configURI           = "tutorial://config"
	workflowsURI        = "tutorial://workflows"
	workflowURIPrefix   = workflowsURI + "/"
	workflowTemplateURI = workflowURIPrefix + "{name}"
	jsonMIMEType        = "application/json"
)

type configView struct {
	Workflow       string `json:"workflow"`
	DataDir        string `json:"data_dir"`
	SpeciesDataDir string `json:"species_data_dir"`
	Species        string `json:"species"`
	Overwrite      bool   `json:"overwrite"`
}

type workflowSummary struct {
	Key             string   `json:"key"`
	Name            string   `json:"name"`
	Title           string   `json:"title"`
	SpeciesSpecific bool     `json:"species_specific"`
	ConnectID       string   `json:"connect_id,omitempty"`
	ArtifactKeys    []string `json:"artifact_keys,omitempty"`
}

type workflowDetail struct {
	workflowSummary
	Artifacts map[string]string `json:"artifacts,omitempty"`
}

func summarize(key string, wf config.Workflow) workflowSummary {
	keys := make([]string, 0, len(wf.Artifacts))
	for k := range wf.Artifacts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return workflowSummary{
		Key:             key,
		Name:            wf.Name,
		Title:           wf.Title,
		SpeciesSpecific: wf.IsSpeciesSpecific(),
		ConnectID:       wf.AppID(),
		ArtifactKeys:    keys,
	}
}

func (s *Server) workflowSummaries() []workflowSummary {
	cfg := s.source.Config()
	out := make([]workflowSummary, 0, len(cfg.Workflows))
	for _, key := range cfg.WorkflowNames() {
		out = append(out, summarize(key, cfg.Workflows[key]))
	}
	return out
}

func (s *Server) registerResources() {
	s.mcp.AddResource(&mcp.Resource{
		URI:         configURI,
		Name:        "config",
		Description: "Global settings and resolved data directories",
		MIMEType:    jsonMIMEType,
	}, s.readConfig)

	s.mcp.AddResource(&mcp.Resource{
		URI:         workflowsURI,
		Name:        "workflows",
		Description: "Every workflow defined in the configuration",
		MIMEType:    jsonMIMEType,
	}, s.readWorkflows)

	s.mcp.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: workflowTemplateURI,
		Name:        "workflow",
		Description: "One workflow with its resolved artifact paths",
		MIMEType:    jsonMIMEType,
	}, s.readWorkflow)
}

func (s *Server) readConfig(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	cfg := s.source.Config()
	return jsonResource(req.Params.URI, configView{
		Workflow:       s.source.Workflow(),
		DataDir:        s.source.DataDir(),
		SpeciesDataDir: s.source.SpeciesDataDir(),
		Species:        cfg.GlobalVars.Species,
		Overwrite:      cfg.GlobalVars.ShouldOverwrite(),
	})
}

func (s *Server) readWorkflows(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return jsonResource(req.Params.URI, s.workflowSummaries())
}

func (s *Server) readWorkflow(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	name, err := url.PathUnescape(strings.TrimPrefix(uri, workflowURIPrefix))
	if err != nil || name == "" || !strings.HasPrefix(uri, workflowURIPrefix) {
		return nil, mcp.ResourceNotFoundError(uri)
	}

	wf, ok := s.source.Config().Workflows[name]
	if !ok {
		return nil, mcp.ResourceNotFoundError(uri)
	}
	artifacts, err := s.source.ResolveArtifacts(name)
	if err != nil {
		return nil, err
	}
	return jsonResource(uri, workflowDetail{
		workflowSummary: summarize(name, wf),
		Artifacts:       artifacts,
	})
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: jsonMIMEType,
			Text:     string(data),
		}},
	}, nil
}
