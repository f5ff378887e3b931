package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tutorialkit/internal/inspector"
)

func newInspectCmd(a *app) *cobra.Command {
	var profile string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Serve the workflow configuration to an MCP inspector over stdio",
		Long: `Serve the workflow configuration over the Model Context Protocol on stdio.

Profiles:
  full       resources, workflow tools and the session object registry
  docs       resources only
  execution  workflow tools and the session object registry

Logs go to stderr; stdout carries the protocol.

Examples:
  npx @modelcontextprotocol/inspector tutorialctl inspect -w consensus`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := a.newResolver()
			if err != nil {
				return err
			}

			session := inspector.NewSession()
			objects := []inspector.Object{
				{Name: "workflow", Kind: "workflow", Description: "settings of " + r.Workflow(), Value: r.WorkflowSettings()},
				{Name: "artifacts", Kind: "artifacts", Description: "resolved artifact paths", Value: r.Artifacts()},
				{Name: "global_vars", Kind: "config", Description: "global settings", Value: r.Config().GlobalVars},
			}
			for _, obj := range objects {
				if err := session.Objects.Register(obj); err != nil {
					return fmt.Errorf("registering %s: %w", obj.Name, err)
				}
			}

			cfg := inspector.DefaultConfig()
			cfg.Version = version
			cfg.Profile = profile
			cfg.Logger = a.logger

			srv, err := inspector.NewServer(cfg, r, session)
			if err != nil {
				return err
			}
			a.logger.Debug(cmd.Context(), "inspector session created", zap.String("session.id", session.ID))
			return srv.Run(cmd.Context())
		},
	}

	a.addWorkflowFlags(cmd)
	cmd.Flags().StringVar(&profile, "profile", inspector.DefaultProfile, "component profile (full, docs, execution)")
	return cmd
}
