package cmd

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an Ed25519 key pair for local testing",
	Long: `Prints a fresh Ed25519 key pair as hex. Put the public key in
public_key (or DISCORD_PUBLIC_KEY) and use the private key with "opbot sign"
to exercise /interactions without the real platform.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pub, priv, err := ed25519.GenerateKey(nil)
		if err != nil {
			return fmt.Errorf("generating key: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "public_key:  %s\n", hex.EncodeToString(pub))
		fmt.Fprintf(cmd.OutOrStdout(), "private_key: %s\n", hex.EncodeToString(priv.Seed()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)
}
