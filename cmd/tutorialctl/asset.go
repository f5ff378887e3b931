package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAssetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "asset <asset> [subasset]",
		Short: "Download a tutorial asset into the data directory",
		Long: `Download a tutorial asset into the data directory unless it is already there.

Assets ending in .tar.gz are unpacked into a directory of the same name
without the suffix; a subasset selects a path inside it. The local path is
printed on stdout.

Examples:
  tutorialctl asset -w consensus reactome_members.tsv
  tutorialctl asset -w consensus test_pathway.tar.gz sbml_dfs.pkl
  tutorialctl asset -w consensus --asset-url https://storage.example.org/bucket graph.pkl`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.newResolver()
			if err != nil {
				return err
			}
			subasset := ""
			if len(args) == 2 {
				subasset = args[1]
			}
			path, err := r.LoadAsset(cmd.Context(), args[0], subasset)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	a.addWorkflowFlags(cmd)
	cmd.Flags().StringVar(&a.assetURL, "asset-url", "", "asset bucket base URL (default $"+assetURLEnv+")")
	return cmd
}
