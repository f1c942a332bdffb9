package commands

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/ziadkadry99/opbot/internal/accounts"
	"github.com/ziadkadry99/opbot/internal/embed"
	"github.com/ziadkadry99/opbot/internal/interactions"
)

const balanceFooter = "Currency: earned via quests, gambling, selling cards"

// Balance shows the caller's balance, or another user's when the optional
// user option is given.
func Balance(deps Deps) interactions.Command {
	return interactions.NewCommand("balance", "Show your balance",
		func(ctx context.Context, it interactions.Interaction, client *interactions.Client) error {
			if deps.Store == nil {
				return errStorageDisabled
			}

			target := it.User()
			if opt, ok := it.Option("user"); ok && opt.String() != "" && opt.String() != target.ID {
				target = interactions.User{ID: opt.String()}
			}

			bal, err := deps.Store.Balance(ctx, target.ID)
			if err != nil {
				return fmt.Errorf("loading balance: %w", err)
			}

			name, avatar := resolveDisplay(ctx, deps, client, target)
			e := embed.New().
				SetTitle(name+"'s Balance").
				SetColor(ColorWhite).
				AddFields(
					embed.Field{Name: "Balance", Value: accounts.CurrencySymbol + " " + strconv.FormatInt(bal.Amount, 10), Inline: true},
					embed.Field{Name: "Reset Tokens", Value: strconv.Itoa(bal.ResetTokens), Inline: true},
				).
				SetThumbnail(avatar).
				SetFooter(balanceFooter, "")
			return it.Reply(ctx, &interactions.Message{Embeds: []any{e}})
		})
}

// resolveDisplay picks the name and avatar to show for u. Users without a
// username in the payload are fetched from the platform; failing that the
// name falls back to "User <id>".
func resolveDisplay(ctx context.Context, deps Deps, client *interactions.Client, u interactions.User) (string, string) {
	if u.Username != "" && u.Username != interactions.UnknownUser {
		return u.DisplayName(), u.AvatarURL()
	}
	if client != nil && u.ID != interactions.UnknownUser {
		fetched, err := client.FetchUser(ctx, u.ID)
		if err == nil && fetched.Username != "" {
			return fetched.DisplayName(), fetched.AvatarURL()
		}
		if err != nil {
			deps.Logger.Debug("fetching user for display", zap.String("user_id", u.ID), zap.Error(err))
		}
	}
	return "User " + u.ID, ""
}
