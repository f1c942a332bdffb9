package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/opbot/internal/accounts"
	"github.com/ziadkadry99/opbot/internal/config"
	"github.com/ziadkadry99/opbot/internal/db"
	"github.com/ziadkadry99/opbot/internal/progress"
)

var (
	codeReward  int64
	codeExpires time.Duration
	codeCount   int
)

var codesCmd = &cobra.Command{
	Use:   "codes",
	Short: "Manage redeem codes",
}

var codesCreateCmd = &cobra.Command{
	Use:   "create [code]",
	Short: "Create a redeem code",
	Long: `Creates a one-time redeem code worth --reward. When no code is given a
random one is generated; --count N generates N random codes, one per line.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if codeReward <= 0 {
			return errors.New("--reward must be positive")
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

		var expiresAt *time.Time
		if codeExpires > 0 {
			exp := time.Now().Add(codeExpires)
			expiresAt = &exp
		}
		store := accounts.NewStore(database)
		out := cmd.OutOrStdout()

		if codeCount > 1 {
			if len(args) == 1 {
				return errors.New("a code cannot be given together with --count")
			}
			return createCodeBatch(cmd, store, codeCount, expiresAt)
		}

		c := accounts.Code{Reward: codeReward, ExpiresAt: expiresAt}
		if len(args) == 1 {
			c.Code = strings.TrimSpace(args[0])
		}
		if c.Code == "" {
			c.Code = newCode()
		}
		if err := store.CreateCode(cmd.Context(), c); err != nil {
			return err
		}

		fmt.Fprintf(out, "Created code %s worth %s %d\n", c.Code, accounts.CurrencySymbol, c.Reward)
		if c.ExpiresAt != nil {
			fmt.Fprintf(out, "  expires %s\n", c.ExpiresAt.UTC().Format(time.RFC3339))
		}
		return nil
	},
}

// createCodeBatch prints one generated code per line on stdout, so the
// output can be piped, and reports progress on stderr.
func createCodeBatch(cmd *cobra.Command, store *accounts.Store, n int, expiresAt *time.Time) error {
	rep := progress.NewReporter("Creating codes", cmd.ErrOrStderr())
	rep.Start(n)
	defer rep.Finish()

	for i := 0; i < n; i++ {
		c := accounts.Code{Code: newCode(), Reward: codeReward, ExpiresAt: expiresAt}
		if err := store.CreateCode(cmd.Context(), c); err != nil {
			return fmt.Errorf("code %d of %d: %w", i+1, n, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), c.Code)
		rep.Increment(c.Code)
	}
	return nil
}

var codesShowCmd = &cobra.Command{
	Use:   "show <code>",
	Short: "Show a redeem code and whether it has been claimed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		c, err := accounts.NewStore(database).GetCode(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "code:    %s\n", c.Code)
		fmt.Fprintf(out, "reward:  %s %d\n", accounts.CurrencySymbol, c.Reward)
		if c.ExpiresAt != nil {
			fmt.Fprintf(out, "expires: %s\n", c.ExpiresAt.UTC().Format(time.RFC3339))
		}
		if c.Claimed {
			fmt.Fprintf(out, "claimed: yes, by %s\n", c.ClaimedBy)
		} else {
			fmt.Fprintln(out, "claimed: no")
		}
		return nil
	},
}

// newCode derives a short, readable code from a random UUID.
func newCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:10])
}

func openDatabase(cfg *config.Config) (*db.DB, error) {
	if cfg.Database.Path == "" {
		return nil, errors.New("database.path is not configured")
	}
	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return database, nil
}

func init() {
	codesCreateCmd.Flags().Int64Var(&codeReward, "reward", 100, "currency credited on redemption")
	codesCreateCmd.Flags().DurationVar(&codeExpires, "expires", 0, "lifetime of the code, e.g. 72h (default never)")
	codesCreateCmd.Flags().IntVar(&codeCount, "count", 1, "number of random codes to generate")
	codesCmd.AddCommand(codesCreateCmd, codesShowCmd)
	rootCmd.AddCommand(codesCmd)
}
