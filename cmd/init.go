package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/opbot/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize opbot configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure the gateway and writes the file named by --config (default .opbot.yml).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
