package accounts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ziadkadry99/opbot/internal/db"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func TestFindAccountMissing(t *testing.T) {
	store := setupStore(t)

	acct, err := store.FindAccount(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("FindAccount: %v", err)
	}
	if acct != nil {
		t.Errorf("expected nil account, got %+v", acct)
	}
}

func TestCreateAccountGrantsStarterRewards(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	acct, err := store.CreateAccount(ctx, "u1")
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if acct == nil || acct.UserID != "u1" {
		t.Fatalf("unexpected account %+v", acct)
	}
	if acct.CreatedAt.IsZero() {
		t.Error("expected created_at to be parsed")
	}

	cards, err := store.Cards(ctx, "u1")
	if err != nil {
		t.Fatalf("Cards: %v", err)
	}
	if len(cards) != 1 || cards[0].CardID != StarterCardID || cards[0].Count != 1 {
		t.Errorf("cards = %+v, want one %s", cards, StarterCardID)
	}

	inv, err := store.Inventory(ctx, "u1")
	if err != nil {
		t.Fatalf("Inventory: %v", err)
	}
	if inv.ChestC != StarterChestsC {
		t.Errorf("ChestC = %d, want %d", inv.ChestC, StarterChestsC)
	}

	bal, err := store.Balance(ctx, "u1")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if bal.Amount != StarterBalance {
		t.Errorf("Amount = %d, want %d", bal.Amount, StarterBalance)
	}
}

func TestCreateAccountTwice(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if _, err := store.CreateAccount(ctx, "u1"); err != nil {
		t.Fatalf("first CreateAccount: %v", err)
	}
	if _, err := store.CreateAccount(ctx, "u1"); !errors.Is(err, ErrAccountExists) {
		t.Fatalf("second CreateAccount err = %v, want ErrAccountExists", err)
	}

	cards, _ := store.Cards(ctx, "u1")
	if len(cards) != 1 {
		t.Errorf("expected starter card granted once, got %d cards", len(cards))
	}
}

func TestBalanceCreatesDefault(t *testing.T) {
	store := setupStore(t)

	bal, err := store.Balance(context.Background(), "fresh")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if bal.Amount != DefaultBalance || bal.ResetTokens != 0 {
		t.Errorf("balance = %+v, want %d and 0 tokens", bal, DefaultBalance)
	}
}

func TestRedeemCode(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	now := time.Now()

	if err := store.CreateCode(ctx, Code{Code: "GOMU", Reward: 250}); err != nil {
		t.Fatalf("CreateCode: %v", err)
	}
	if _, err := store.Balance(ctx, "u1"); err != nil {
		t.Fatalf("Balance: %v", err)
	}

	c, bal, err := store.RedeemCode(ctx, "GOMU", "u1", now)
	if err != nil {
		t.Fatalf("RedeemCode: %v", err)
	}
	if !c.Claimed || c.ClaimedBy != "u1" {
		t.Errorf("code = %+v, want claimed by u1", c)
	}
	if bal.Amount != DefaultBalance+250 {
		t.Errorf("Amount = %d, want %d", bal.Amount, DefaultBalance+250)
	}

	if _, _, err := store.RedeemCode(ctx, "GOMU", "u2", now); !errors.Is(err, ErrCodeClaimed) {
		t.Errorf("second redeem err = %v, want ErrCodeClaimed", err)
	}
}

func TestRedeemCodeWithoutBalanceRow(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if err := store.CreateCode(ctx, Code{Code: "ZORO", Reward: 100}); err != nil {
		t.Fatalf("CreateCode: %v", err)
	}
	_, bal, err := store.RedeemCode(ctx, "ZORO", "new-user", time.Now())
	if err != nil {
		t.Fatalf("RedeemCode: %v", err)
	}
	if bal.Amount != DefaultBalance+100 {
		t.Errorf("Amount = %d, want %d", bal.Amount, DefaultBalance+100)
	}
}

func TestRedeemCodeErrors(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	now := time.Now()

	past := now.Add(-time.Hour)
	if err := store.CreateCode(ctx, Code{Code: "OLD", Reward: 1, ExpiresAt: &past}); err != nil {
		t.Fatalf("CreateCode: %v", err)
	}

	if _, _, err := store.RedeemCode(ctx, "MISSING", "u1", now); !errors.Is(err, ErrCodeNotFound) {
		t.Errorf("missing code err = %v, want ErrCodeNotFound", err)
	}
	if _, _, err := store.RedeemCode(ctx, "OLD", "u1", now); !errors.Is(err, ErrCodeExpired) {
		t.Errorf("expired code err = %v, want ErrCodeExpired", err)
	}
}

func TestGetCodeExpiry(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := store.CreateCode(ctx, Code{Code: "X", Reward: 5, ExpiresAt: &exp}); err != nil {
		t.Fatalf("CreateCode: %v", err)
	}
	c, err := store.GetCode(ctx, "X")
	if err != nil {
		t.Fatalf("GetCode: %v", err)
	}
	if c.ExpiresAt == nil || !c.ExpiresAt.Equal(exp) {
		t.Errorf("ExpiresAt = %v, want %v", c.ExpiresAt, exp)
	}
}

// countingFinder records lookups.
type countingFinder struct {
	calls int
	acct  *Account
	err   error
}

func (f *countingFinder) FindAccount(_ context.Context, userID string) (*Account, error) {
	f.calls++
	return f.acct, f.err
}

func TestCachedFinderFallsThroughWhenRedisDown(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	next := &countingFinder{acct: &Account{UserID: "u1"}}
	cf := NewCachedFinder(next, rdb, time.Minute, nil)

	acct, err := cf.FindAccount(context.Background(), "u1")
	if err != nil {
		t.Fatalf("FindAccount: %v", err)
	}
	if acct == nil || acct.UserID != "u1" {
		t.Fatalf("unexpected account %+v", acct)
	}
	if next.calls != 1 {
		t.Errorf("expected underlying finder to be called once, got %d", next.calls)
	}
}

func TestCachedFinderPropagatesStoreError(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	next := &countingFinder{err: errors.New("store down")}
	cf := NewCachedFinder(next, rdb, 0, nil)

	if _, err := cf.FindAccount(context.Background(), "u1"); err == nil {
		t.Fatal("expected store error to propagate")
	}
}
