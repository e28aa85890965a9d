package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"caseprep/internal/metrics"
)

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Decrypt and load every artifact and the embedding model",
		Long:  "Loads the index, metadata and embedding model once, checks they agree, and reports their sizes. Exits non-zero on a wrong key, corrupt artifact or unreachable model.",
		Args:  cobra.NoArgs,
		RunE:  runVerify,
	}
	cmd.Flags().Bool("metrics", false, "print the load metrics in Prometheus text format")
	return cmd
}

func runVerify(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	store, err := a.store()
	if err != nil {
		return err
	}
	stats, err := store.Warm(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "index:     %d vectors, dimension %d, %s\n", stats.Vectors, stats.Dimension, stats.Metric)
	_, _ = fmt.Fprintf(out, "metadata:  %d records in %d scopes\n", stats.Vectors, stats.Scopes)
	_, _ = fmt.Fprintf(out, "embedder:  %s\n", stats.Embedder)

	if a.cfg.Store.Casebook != "" {
		book, err := a.casebook(cmd.Context())
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "casebook:  %d cases\n", len(book.CaseIDs()))
	}

	if show, _ := cmd.Flags().GetBool("metrics"); show {
		_, _ = fmt.Fprintln(out)
		return metrics.WriteText(out)
	}
	return nil
}
