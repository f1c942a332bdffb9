package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ziadkadry99/opbot/internal/db"
)

// Store provides account, balance and redeem code operations.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// FindAccount returns the account for userID, or nil with no error when
// the user has never run the account-creation command.
func (s *Store) FindAccount(ctx context.Context, userID string) (*Account, error) {
	var (
		a  Account
		ts string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, created_at FROM accounts WHERE user_id = ?`, userID,
	).Scan(&a.UserID, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding account %s: %w", userID, err)
	}
	a.CreatedAt = parseTime(ts)
	return &a, nil
}

// CreateAccount registers userID and grants the starter rewards: one
// starter card, three C chests and the starting balance. It returns
// ErrAccountExists when the account is already present.
func (s *Store) CreateAccount(ctx context.Context, userID string) (*Account, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO accounts (user_id) VALUES (?) ON CONFLICT(user_id) DO NOTHING`, userID)
	if err != nil {
		return nil, fmt.Errorf("inserting account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrAccountExists
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO account_cards (user_id, card_id, count, xp, level) VALUES (?, ?, 1, 0, 0)`,
		userID, StarterCardID); err != nil {
		return nil, fmt.Errorf("granting starter card: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO inventories (user_id, chest_c) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET chest_c = excluded.chest_c`,
		userID, StarterChestsC); err != nil {
		return nil, fmt.Errorf("creating inventory: %w", err)
	}

	// A balance row can predate the account: balance lookups create one.
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO balances (user_id, amount) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET amount = excluded.amount, updated_at = datetime('now')`,
		userID, StarterBalance); err != nil {
		return nil, fmt.Errorf("creating balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing account: %w", err)
	}
	return s.FindAccount(ctx, userID)
}

// Cards lists the cards owned by userID.
func (s *Store) Cards(ctx context.Context, userID string) ([]Card, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT card_id, count, xp, level FROM account_cards WHERE user_id = ? ORDER BY card_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing cards: %w", err)
	}
	defer rows.Close()

	var cards []Card
	for rows.Next() {
		var c Card
		if err := rows.Scan(&c.CardID, &c.Count, &c.XP, &c.Level); err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// Inventory returns the chest inventory for userID.
func (s *Store) Inventory(ctx context.Context, userID string) (*Inventory, error) {
	inv := Inventory{UserID: userID}
	err := s.db.QueryRowContext(ctx,
		`SELECT chest_c, chest_b, chest_a, chest_s FROM inventories WHERE user_id = ?`, userID,
	).Scan(&inv.ChestC, &inv.ChestB, &inv.ChestA, &inv.ChestS)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reading inventory: %w", err)
	}
	return &inv, nil
}

// Balance returns the balance for userID, creating it with DefaultBalance
// when none exists yet.
func (s *Store) Balance(ctx context.Context, userID string) (*Balance, error) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO balances (user_id, amount) VALUES (?, ?) ON CONFLICT(user_id) DO NOTHING`,
		userID, DefaultBalance); err != nil {
		return nil, fmt.Errorf("ensuring balance: %w", err)
	}

	b := Balance{UserID: userID}
	err := s.db.QueryRowContext(ctx,
		`SELECT amount, reset_tokens FROM balances WHERE user_id = ?`, userID,
	).Scan(&b.Amount, &b.ResetTokens)
	if err != nil {
		return nil, fmt.Errorf("reading balance: %w", err)
	}
	return &b, nil
}

// CreateCode stores a new redeem code.
func (s *Store) CreateCode(ctx context.Context, c Code) error {
	var expires sql.NullString
	if c.ExpiresAt != nil {
		expires = sql.NullString{String: c.ExpiresAt.UTC().Format(time.DateTime), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO redeem_codes (code, reward, expires_at) VALUES (?, ?, ?)`,
		c.Code, c.Reward, expires)
	if err != nil {
		return fmt.Errorf("inserting code: %w", err)
	}
	return nil
}

// GetCode retrieves a redeem code.
func (s *Store) GetCode(ctx context.Context, code string) (*Code, error) {
	var (
		c         Code
		expires   sql.NullString
		claimedBy sql.NullString
		claimed   int
		created   string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT code, reward, expires_at, claimed, claimed_by, created_at FROM redeem_codes WHERE code = ?`, code,
	).Scan(&c.Code, &c.Reward, &expires, &claimed, &claimedBy, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading code: %w", err)
	}

	c.Claimed = claimed != 0
	c.ClaimedBy = claimedBy.String
	c.CreatedAt = parseTime(created)
	if expires.Valid {
		t := parseTime(expires.String)
		c.ExpiresAt = &t
	}
	return &c, nil
}

// RedeemCode claims code for userID and credits its reward to the user's
// balance in one transaction. It returns the updated balance.
func (s *Store) RedeemCode(ctx context.Context, code, userID string, now time.Time) (*Code, *Balance, error) {
	c, err := s.GetCode(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	if c.Claimed {
		return nil, nil, ErrCodeClaimed
	}
	if c.ExpiresAt != nil && !now.Before(*c.ExpiresAt) {
		return nil, nil, ErrCodeExpired
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE redeem_codes SET claimed = 1, claimed_by = ? WHERE code = ? AND claimed = 0`, userID, code)
	if err != nil {
		return nil, nil, fmt.Errorf("claiming code: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil, ErrCodeClaimed
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO balances (user_id, amount) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET amount = amount + ?, updated_at = datetime('now')`,
		userID, DefaultBalance+c.Reward, c.Reward); err != nil {
		return nil, nil, fmt.Errorf("crediting reward: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("committing redeem: %w", err)
	}

	c.Claimed = true
	c.ClaimedBy = userID
	bal, err := s.Balance(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return c, bal, nil
}

// parseTime accepts the layouts SQLite and the driver hand back.
func parseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.DateTime, "2006-01-02 15:04:05.999999999-07:00"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
