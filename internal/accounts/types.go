package accounts

import (
	"errors"
	"time"
)

// Starter rewards granted by CreateAccount.
const (
	StarterCardID  = "luffy_c_01"
	StarterChestsC = 3
	StarterBalance = 500
	DefaultBalance = 500
	CurrencySymbol = "¥"
)

var (
	ErrAccountExists = errors.New("account already exists")
	ErrCodeNotFound  = errors.New("code not found")
	ErrCodeClaimed   = errors.New("code already claimed")
	ErrCodeExpired   = errors.New("code expired")
)

// Account is the progress record whose existence marks a registered player.
type Account struct {
	UserID    string
	CreatedAt time.Time
}

// Card is one owned card stack.
type Card struct {
	CardID string
	Count  int
	XP     int
	Level  int
}

// Inventory holds unopened chests by tier.
type Inventory struct {
	UserID string
	ChestC int
	ChestB int
	ChestA int
	ChestS int
}

// Balance is the player's currency.
type Balance struct {
	UserID      string
	Amount      int64
	ResetTokens int
}

// Code is a one-time redeemable reward code.
type Code struct {
	Code      string
	Reward    int64
	ExpiresAt *time.Time
	Claimed   bool
	ClaimedBy string
	CreatedAt time.Time
}
