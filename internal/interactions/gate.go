package interactions

import (
	"context"

	"go.uber.org/zap"

	"github.com/ziadkadry99/opbot/internal/accounts"
	"github.com/ziadkadry99/opbot/internal/logging"
)

// DeniedNoAccount is sent to users who invoke a gated command before
// creating an account.
const DeniedNoAccount = "You don't have an account! Start your journey with the command `op start` or `/start`."

// AccountFinder reports whether a user has an account. It returns nil, nil
// when the user has none.
type AccountFinder interface {
	FindAccount(ctx context.Context, userID string) (*accounts.Account, error)
}

// Decision is the outcome of a gate check.
type Decision struct {
	Allowed bool
	Reason  string
}

// Gate blocks every command except the account-creation command for users
// without an account. Store failures let the request through.
type Gate struct {
	finder AccountFinder
	exempt string
	logger *zap.Logger
}

// NewGate creates a Gate. A nil finder allows everything.
func NewGate(finder AccountFinder, exemptCommand string, logger *zap.Logger) *Gate {
	return &Gate{
		finder: finder,
		exempt: exemptCommand,
		logger: logging.OrNop(logger),
	}
}

// active reports whether the gate denies anything.
func (g *Gate) active() bool {
	return g != nil && g.finder != nil
}

// Allow checks whether inv may proceed to command lookup.
func (g *Gate) Allow(ctx context.Context, inv Invocation) Decision {
	if !g.active() || inv.Command == g.exempt {
		return Decision{Allowed: true}
	}

	acct, err := g.finder.FindAccount(ctx, inv.User.ID)
	if err != nil {
		g.logger.Warn("account lookup failed, allowing request",
			zap.String("user_id", inv.User.ID),
			zap.String("command", inv.Command),
			zap.Error(err))
		return Decision{Allowed: true}
	}
	if acct == nil {
		return Decision{Allowed: false, Reason: DeniedNoAccount}
	}
	return Decision{Allowed: true}
}
