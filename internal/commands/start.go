package commands

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ziadkadry99/opbot/internal/accounts"
	"github.com/ziadkadry99/opbot/internal/embed"
	"github.com/ziadkadry99/opbot/internal/interactions"
)

const (
	msgAlreadyRegistered = "You already have an account. Use your existing account to continue your journey."
	msgCreateFailed      = "There was an error creating your account. Try again later."

	starterImage       = "https://files.catbox.moe/2h8896.gif"
	starterDescription = "Your account has successfully been registered.\n\n" +
		"**Starter rewards**\n" +
		"1x Monkey D. Luffy card\n" +
		"3x C tier chests\n" +
		"500 beli¥\n\n" +
		"Run `op tutorial` to start the tutorial"
)

// Start creates the caller's account and grants the starter rewards. It is
// registered as deps.AccountCommand.
func Start(deps Deps) interactions.Command {
	return interactions.NewCommand(deps.accountCommand(), "Create your account and receive starter rewards",
		func(ctx context.Context, it interactions.Interaction, _ *interactions.Client) error {
			user := it.User()
			if deps.Store == nil {
				deps.Logger.Error("start command without account storage")
				return it.Reply(ctx, interactions.Ephemeral(msgCreateFailed))
			}

			_, err := deps.Store.CreateAccount(ctx, user.ID)
			switch {
			case errors.Is(err, accounts.ErrAccountExists):
				return it.Reply(ctx, interactions.Ephemeral(msgAlreadyRegistered))
			case err != nil:
				deps.Logger.Error("creating account", zap.String("user_id", user.ID), zap.Error(err))
				return it.Reply(ctx, interactions.Ephemeral(msgCreateFailed))
			}

			welcome := embed.New().
				SetTitle("It all starts here!").
				SetColor(ColorWhite).
				SetDescription(starterDescription).
				SetImage(starterImage).
				SetFooter("Welcome, "+user.DisplayName(), "")
			return it.Reply(ctx, &interactions.Message{Embeds: []any{welcome}})
		})
}
