package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/tutorialkit/internal/resolver"
)

// artifactsReport is the --json output of the artifacts command.
type artifactsReport struct {
	Workflow       string                        `json:"workflow"`
	DataDir        string                        `json:"data_dir"`
	SpeciesDataDir string                        `json:"species_data_dir"`
	Overwrite      bool                          `json:"overwrite"`
	Artifacts      resolver.Artifacts            `json:"artifacts"`
	Related        map[string]resolver.Artifacts `json:"related,omitempty"`
}

func newArtifactsCmd(a *app) *cobra.Command {
	var (
		related []string
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "artifacts",
		Short: "Resolve a workflow's artifact paths",
		Long: `Resolve the artifact paths of a workflow and create their parent directories.

Artifacts of related workflows are resolved too, but no directories are
created for them.

Examples:
  # Print the consensus workflow's artifacts
  tutorialctl artifacts -w consensus

  # Include related workflows, as JSON
  tutorialctl artifacts -w consensus --related downloads,sbml --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := a.newResolver(resolver.WithRelated(related...))
			if err != nil {
				return err
			}
			report := artifactsReport{
				Workflow:       r.Workflow(),
				DataDir:        r.DataDir(),
				SpeciesDataDir: r.SpeciesDataDir(),
				Overwrite:      r.Overwrite(),
				Artifacts:      r.Artifacts(),
				Related:        r.Related(),
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			return printArtifacts(cmd.OutOrStdout(), report)
		},
	}

	a.addWorkflowFlags(cmd)
	cmd.Flags().StringSliceVar(&related, "related", nil, "related workflows to resolve as well")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func printArtifacts(w io.Writer, report artifactsReport) error {
	fmt.Fprintf(w, "workflow:          %s\n", report.Workflow)
	fmt.Fprintf(w, "data_dir:          %s\n", report.DataDir)
	fmt.Fprintf(w, "species_data_dir:  %s\n", report.SpeciesDataDir)
	fmt.Fprintf(w, "overwrite:         %t\n", report.Overwrite)

	writeTable(w, report.Workflow, report.Artifacts)

	names := make([]string, 0, len(report.Related))
	for name := range report.Related {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		writeTable(w, name+" (related)", report.Related[name])
	}
	return nil
}

func writeTable(w io.Writer, title string, artifacts resolver.Artifacts) {
	fmt.Fprintf(w, "\n%s:\n", title)
	if len(artifacts) == 0 {
		fmt.Fprintln(w, "  (no artifacts)")
		return
	}
	keys := make([]string, 0, len(artifacts))
	for k := range artifacts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, k := range keys {
		fmt.Fprintf(tw, "  %s\t%s\n", k, artifacts[k])
	}
	_ = tw.Flush()
}
