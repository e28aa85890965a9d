package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"caseprep/internal/crypto"
)

func newKeygenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Print a fresh random key",
		Long:  "Prints a new key for the chosen cipher. Store it in the environment, a key file or the OS keyring and point key.source at it.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("cipher")
			key, err := crypto.GenerateKey(name)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
	cmd.Flags().String("cipher", crypto.CipherFernet, "cipher the key is for (fernet, secretbox)")
	return cmd
}
