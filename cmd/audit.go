package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/opbot/internal/audit"
)

var (
	pruneOlderThan time.Duration
	pruneYes       bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect and maintain the interaction log",
}

var auditPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete interaction log entries older than --older-than",
	RunE: func(cmd *cobra.Command, args []string) error {
		if pruneOlderThan <= 0 {
			return errors.New("--older-than must be positive")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		cutoff := time.Now().Add(-pruneOlderThan)
		if !pruneYes {
			prompt := promptui.Prompt{
				Label:     fmt.Sprintf("Delete entries before %s", cutoff.UTC().Format(time.RFC3339)),
				IsConfirm: true,
			}
			if _, err := prompt.Run(); err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}
		}

		n, err := audit.NewStore(database, nil).DeleteBefore(cmd.Context(), cutoff)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d entries.\n", n)
		return nil
	},
}

func init() {
	auditPruneCmd.Flags().DurationVar(&pruneOlderThan, "older-than", 30*24*time.Hour, "age of the entries to delete")
	auditPruneCmd.Flags().BoolVarP(&pruneYes, "yes", "y", false, "skip the confirmation prompt")
	auditCmd.AddCommand(auditPruneCmd)
	rootCmd.AddCommand(auditCmd)
}
