package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root caseprep command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "caseprep",
		Short:         "caseprep: retrieval of past case-interview answers",
		Long:          "caseprep decrypts the sealed answer index and finds past answers, with their feedback, that are similar to a new answer to the same case question.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("config", "c", "", "path to YAML config file (default ./config.yaml or ~/.config/caseprep/config.yaml)")
	root.PersistentFlags().String("log-level", "", "override log.level from the config")

	root.AddCommand(
		newQueryCmd(),
		newPromptCmd(),
		newExploreCmd(),
		newVerifyCmd(),
		newSealCmd(),
		newKeygenCmd(),
	)

	return root
}

// addScopeFlags registers the --case, --question and --limit flags shared by the
// retrieval commands.
func addScopeFlags(cmd *cobra.Command) {
	cmd.Flags().String("case", "", "case id")
	cmd.Flags().String("question", "", "question id")
	cmd.Flags().IntP("limit", "n", 0, "maximum number of neighbors (default store.default_n)")
	_ = cmd.MarkFlagRequired("case")
	_ = cmd.MarkFlagRequired("question")
}
