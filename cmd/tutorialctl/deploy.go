package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/tutorialkit/internal/config"
	"github.com/fyrsmithlabs/tutorialkit/internal/publish"
	"github.com/fyrsmithlabs/tutorialkit/internal/resolver"
)

func newDeployCmd(a *app) *cobra.Command {
	var (
		server      string
		serversPath string
		venvPath    string
		assetType   string
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the workflow's notebook to Posit Connect",
		Long: `Deploy the workflow's notebook to a Posit Connect server with rsconnect.

Servers are read from a YAML file mapping a server name to its url and the
name of the environment variable holding a personal access token:

  prod:
    url: https://connect.example.org
    pat_secret_name: CONNECT_PROD_PAT

Notebooks without a connect_id are published as new content; others update
the existing content.

Examples:
  tutorialctl deploy -w consensus --server prod --servers servers.yaml
  tutorialctl deploy -w consensus --server prod --servers servers.yaml --venv .venv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := config.LoadConnectSettings(serversPath)
			if err != nil {
				return err
			}
			pub := publish.NewCLI(a.logger, cmd.ErrOrStderr(), cmd.ErrOrStderr())
			r, err := a.newResolver(resolver.WithPublisher(pub), resolver.WithAssetType(assetType))
			if err != nil {
				return err
			}
			if err := r.Deploy(cmd.Context(), server, settings, venvPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deployed %s to %s\n", r.WorkflowSettings().Name, server)
			return nil
		},
	}

	a.addWorkflowFlags(cmd)
	cmd.Flags().StringVar(&server, "server", "", "server name from the servers file")
	cmd.Flags().StringVar(&serversPath, "servers", "servers.yaml", "path to the Connect servers file")
	cmd.Flags().StringVar(&venvPath, "venv", "", "virtual environment to activate before running rsconnect")
	cmd.Flags().StringVar(&assetType, "asset-type", publish.DefaultAssetType, "rsconnect deploy subcommand (quarto, notebook, ...)")
	_ = cmd.MarkFlagRequired("server")
	return cmd
}
