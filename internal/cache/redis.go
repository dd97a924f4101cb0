package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Dial connects the partition store's backing Redis instance. Entry eviction
// is delegated to the instance's own memory policy; this layer never expires
// partitions itself.
func Dial(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}
