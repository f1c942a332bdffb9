package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ziadkadry99/opbot/internal/accounts"
	"github.com/ziadkadry99/opbot/internal/embed"
	"github.com/ziadkadry99/opbot/internal/interactions"
)

const (
	msgCodeMissing  = "Please provide a code to redeem."
	msgCodeNotFound = "That code doesn't exist."
	msgCodeClaimed  = "That code has already been claimed."
	msgCodeExpired  = "That code has expired."
)

// Redeem claims a redeem code and credits its reward.
func Redeem(deps Deps) interactions.Command {
	return interactions.NewCommand("redeem", "Redeem a code for beli",
		func(ctx context.Context, it interactions.Interaction, _ *interactions.Client) error {
			if deps.Store == nil {
				return errStorageDisabled
			}

			opt, _ := it.Option("code")
			code := strings.TrimSpace(opt.String())
			if code == "" {
				return it.Reply(ctx, interactions.Ephemeral(msgCodeMissing))
			}

			c, bal, err := deps.Store.RedeemCode(ctx, code, it.User().ID, deps.now())
			switch {
			case errors.Is(err, accounts.ErrCodeNotFound):
				return it.Reply(ctx, interactions.Ephemeral(msgCodeNotFound))
			case errors.Is(err, accounts.ErrCodeClaimed):
				return it.Reply(ctx, interactions.Ephemeral(msgCodeClaimed))
			case errors.Is(err, accounts.ErrCodeExpired):
				return it.Reply(ctx, interactions.Ephemeral(msgCodeExpired))
			case err != nil:
				return fmt.Errorf("redeeming code: %w", err)
			}

			e := embed.New().
				SetTitle("Code redeemed!").
				SetColor(ColorWhite).
				SetDescription(fmt.Sprintf("You received %s %d.", accounts.CurrencySymbol, c.Reward)).
				AddFields(embed.Field{Name: "New balance", Value: accounts.CurrencySymbol + " " + strconv.FormatInt(bal.Amount, 10)})
			return it.Reply(ctx, &interactions.Message{Embeds: []any{e}, Flags: interactions.FlagEphemeral})
		})
}
