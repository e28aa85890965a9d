package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	apperr "caseprep/internal/errors"
)

func newSealCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seal --in PLAIN --out SEALED",
		Short: "Encrypt an artifact with the configured cipher and key",
		Args:  cobra.NoArgs,
		RunE:  runSeal,
	}
	cmd.Flags().String("in", "", "plaintext artifact (index, metadata JSON or casebook JSON)")
	cmd.Flags().String("out", "", "destination for the sealed artifact")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func runSeal(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	in, _ := cmd.Flags().GetString("in")
	out, _ := cmd.Flags().GetString("out")

	plain, err := os.ReadFile(in)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeSourceReadFailure, "reading "+in)
	}
	sealed, err := a.cipher.Encrypt(plain)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, sealed, 0o600); err != nil {
		return apperr.Wrap(err, apperr.CodeEncryptFailure, "writing "+out)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "sealed %s -> %s (%s, %d bytes)\n", in, out, a.cipher.Name(), len(sealed))
	return nil
}
