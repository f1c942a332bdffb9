// Package commands holds the static slash command table.
package commands

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/opbot/internal/accounts"
	"github.com/ziadkadry99/opbot/internal/interactions"
	"github.com/ziadkadry99/opbot/internal/logging"
)

// ColorWhite is the embed colour used across the bot.
const ColorWhite = 0xFFFFFF

var errStorageDisabled = errors.New("account storage is not configured")

// AccountStore is the account persistence the commands need.
// *accounts.Store implements it.
type AccountStore interface {
	CreateAccount(ctx context.Context, userID string) (*accounts.Account, error)
	Balance(ctx context.Context, userID string) (*accounts.Balance, error)
	RedeemCode(ctx context.Context, code, userID string, now time.Time) (*accounts.Code, *accounts.Balance, error)
}

// DefaultAccountCommand is the name the account-creation command registers
// under when Deps.AccountCommand is empty.
const DefaultAccountCommand = "start"

// Deps are the collaborators shared by all commands.
type Deps struct {
	Store  AccountStore
	Logger *zap.Logger
	Now    func() time.Time
	// AccountCommand names the account-creation command. It must match the
	// gate's exempt command.
	AccountCommand string
}

func (d Deps) accountCommand() string {
	if d.AccountCommand != "" {
		return d.AccountCommand
	}
	return DefaultAccountCommand
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// All returns the command table in registration order.
func All(deps Deps) []interactions.Command {
	deps.Logger = logging.OrNop(deps.Logger)

	cmds := []interactions.Command{
		Start(deps),
		Balance(deps),
		Redeem(deps),
	}
	return append(cmds, Help(cmds))
}
