package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/tutorialkit/internal/workspace"
)

func newTestDataCmd(_ *app) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "testdata",
		Short: "Print the path of the test data bundled with napistu-py",
		Long: `Print the path of the test data bundled with the napistu-py submodule.

Must be run from (or pointed at) the tutorials directory of a napistu
checkout with the napistu-py and napistu-r submodules initialized.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := workspace.LocateTestData(dir)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "tutorials directory")
	return cmd
}
