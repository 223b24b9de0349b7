package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/shellmastery-backend/internal/logger"
)

// AtRiskEntry is one cached at-risk command snapshot.
type AtRiskEntry struct {
	CanonicalCommand string  `json:"canonical_command"`
	CurrentScore     float64 `json:"current_score"`
	RiskLevel        string  `json:"risk_level"`
	DaysSinceUse     float64 `json:"days_since_use"`
}

// AtRiskCache keeps per-user at-risk snapshots with a short TTL so dashboard
// polling does not recompute decay across every record. A nil *AtRiskCache is
// a valid no-op cache.
type AtRiskCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

// NewAtRiskCache connects using REDIS_ADDR. Missing address is not an error:
// the cache is simply absent and callers fall through to the store.
func NewAtRiskCache(log *logger.Logger) (*AtRiskCache, error) {
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, nil
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &AtRiskCache{
		log: log.With("service", "AtRiskCache"),
		rdb: rdb,
		ttl: 5 * time.Minute,
	}, nil
}

func (c *AtRiskCache) Get(ctx context.Context, userID uuid.UUID) ([]AtRiskEntry, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, c.key(userID)).Bytes()
	if err != nil {
		return nil, false
	}
	var entries []AtRiskEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		c.log.Warn("Failed to decode at-risk snapshot", "error", err)
		return nil, false
	}
	return entries, true
}

func (c *AtRiskCache) Set(ctx context.Context, userID uuid.UUID, entries []AtRiskEntry) {
	if c == nil || c.rdb == nil {
		return
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		c.log.Warn("Failed to encode at-risk snapshot", "error", err)
		return
	}
	if err := c.rdb.Set(ctx, c.key(userID), raw, c.ttl).Err(); err != nil {
		c.log.Warn("Failed to cache at-risk snapshot", "error", err)
	}
}

// Invalidate drops the snapshot after anything that moves a score.
func (c *AtRiskCache) Invalidate(ctx context.Context, userID uuid.UUID) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, c.key(userID)).Err(); err != nil {
		c.log.Warn("Failed to invalidate at-risk snapshot", "error", err)
	}
}

func (c *AtRiskCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func (c *AtRiskCache) key(userID uuid.UUID) string {
	return "atrisk:" + userID.String()
}
