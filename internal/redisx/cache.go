package redisx

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// StatusCache mirrors committed order transitions into the cached status
// entry, so reads served from cache cannot lag a transition for the full TTL.
type StatusCache struct {
	Client *redis.Client
}

func (c *StatusCache) SetOrderStatus(ctx context.Context, orderID, status string) {
	key := fmt.Sprintf(KeyOrderStatus, orderID)
	_ = c.Client.Set(ctx, key, fmt.Sprintf(`{"status":%q}`, status), TTLStatusCache).Err()
}
