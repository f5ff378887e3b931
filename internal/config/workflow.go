package config

import (
	"sort"
)

// WorkflowConfig is the validated content of a tutorial configuration file.
// It is never mutated after loading.
type WorkflowConfig struct {
	GlobalVars GlobalVars          `koanf:"global_vars" json:"global_vars"`
	Workflows  map[string]Workflow `koanf:"workflows" json:"workflows" validate:"required,min=1,dive"`
}

// GlobalVars holds settings shared by every workflow.
type GlobalVars struct {
	// DataDir is the root for downloaded data and intermediate objects.
	// A leading "~" is expanded when a resolver is built.
	DataDir string `koanf:"data_dir" json:"data_dir" validate:"required"`
	Species string `koanf:"species" json:"species" validate:"required"`
	// Overwrite asks notebooks to recompute intermediate objects instead of
	// reusing them. Required so that an omitted key is not read as false.
	Overwrite *bool `koanf:"overwrite" json:"overwrite" validate:"required"`
}

// Workflow describes one notebook and the artifacts it reads or writes.
type Workflow struct {
	Name            string            `koanf:"name" json:"name" validate:"required"`
	Title           string            `koanf:"title" json:"title" validate:"required"`
	SpeciesSpecific *bool             `koanf:"species_specific" json:"species_specific" validate:"required"`
	ConnectID       *string           `koanf:"connect_id" json:"connect_id" validate:"omitempty,min=1"`
	Artifacts       map[string]string `koanf:"artifacts" json:"artifacts,omitempty" validate:"omitempty,dive,required,relpath"`
}

// IsSpeciesSpecific reports whether artifacts live under the species directory.
func (w Workflow) IsSpeciesSpecific() bool {
	return w.SpeciesSpecific != nil && *w.SpeciesSpecific
}

// AppID returns the Connect content id, or "" when the notebook has never
// been published.
func (w Workflow) AppID() string {
	if w.ConnectID == nil {
		return ""
	}
	return *w.ConnectID
}

// ShouldOverwrite reports the global overwrite flag.
func (g GlobalVars) ShouldOverwrite() bool {
	return g.Overwrite != nil && *g.Overwrite
}

// WorkflowNames returns the configured workflow names in sorted order.
func (c *WorkflowConfig) WorkflowNames() []string {
	names := make([]string, 0, len(c.Workflows))
	for name := range c.Workflows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Workflow looks up a workflow by name.
func (c *WorkflowConfig) Workflow(name string) (Workflow, error) {
	wf, ok := c.Workflows[name]
	if !ok {
		return Workflow{}, &UnknownWorkflowError{Name: name, Available: c.WorkflowNames()}
	}
	return wf, nil
}
