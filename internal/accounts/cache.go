package accounts

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ziadkadry99/opbot/internal/logging"
)

// Finder looks up accounts by user identifier. Store implements it.
type Finder interface {
	FindAccount(ctx context.Context, userID string) (*Account, error)
}

// CachedFinder remembers positive account lookups in redis. Accounts are
// never deleted, so only existence is cached; misses always reach the
// underlying finder. Redis failures fall through to the finder.
type CachedFinder struct {
	next   Finder
	rdb    redis.UniversalClient
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

// NewCachedFinder wraps next with a redis existence cache.
func NewCachedFinder(next Finder, rdb redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *CachedFinder {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedFinder{
		next:   next,
		rdb:    rdb,
		ttl:    ttl,
		prefix: "opbot:account:",
		logger: logging.OrNop(logger),
	}
}

// FindAccount implements Finder.
func (c *CachedFinder) FindAccount(ctx context.Context, userID string) (*Account, error) {
	key := c.prefix + userID

	n, err := c.rdb.Exists(ctx, key).Result()
	switch {
	case err != nil:
		c.logger.Warn("account cache unavailable", zap.String("user_id", userID), zap.Error(err))
	case n > 0:
		return &Account{UserID: userID}, nil
	}

	acct, err := c.next.FindAccount(ctx, userID)
	if err != nil || acct == nil {
		return acct, err
	}

	if err := c.rdb.Set(ctx, key, acct.CreatedAt.UTC().Format(time.RFC3339), c.ttl).Err(); err != nil {
		c.logger.Debug("account cache write failed", zap.String("user_id", userID), zap.Error(err))
	}
	return acct, nil
}
