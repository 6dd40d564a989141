package events

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"floor_service/internal/floor"
)

// AccessCache drops cached authorization decisions for an entity whose
// status changed. Keys are <prefix>:<kind>:<id>.
type AccessCache struct {
	client redis.Cmdable
	prefix string
}

func NewAccessCache(client redis.Cmdable, prefix string) *AccessCache {
	if prefix == "" {
		prefix = "access"
	}
	return &AccessCache{client: client, prefix: prefix}
}

func (c *AccessCache) Key(kind floor.EntityKind, id string) string {
	return fmt.Sprintf("%s:%s:%s", c.prefix, kind, id)
}

func (c *AccessCache) Handle(ctx context.Context, change floor.StatusChange) error {
	key := c.Key(change.Kind, change.ID)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate %s: %w", key, err)
	}
	log.WithField("key", key).Debug("access cache entry invalidated")
	return nil
}

// NewRedisClient connects and pings the server, returning an error when it
// is unreachable so the caller can run without cache invalidation.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", addr, err)
	}
	return client, nil
}
