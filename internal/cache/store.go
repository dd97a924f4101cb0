package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/invopilot/invoice-edge/internal/domain"
)

// Partition is a named, isolated bucket within the response cache.
type Partition string

const (
	PartitionInvoices  Partition = "invoices-cache"
	PartitionAnalytics Partition = "analytics-cache"
	PartitionImages    Partition = "images-cache"
	PartitionPages     Partition = "pages-cache"
)

func (p Partition) String() string { return string(p) }

// Entry is the most recent successful response stored for a URL within a
// partition: one entry per key, newer responses overwrite older ones.
type Entry struct {
	Status   int         `json:"status"`
	Header   http.Header `json:"header"`
	Body     []byte      `json:"body"`
	StoredAt time.Time   `json:"storedAt"`
}

// Store persists response entries in Redis, keyed by partition and full
// request URL.
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &Store{client: client}, nil
}

func entryKey(partition Partition, url string) string {
	return string(partition) + ":" + url
}

func (s *Store) Get(ctx context.Context, partition Partition, url string) (*Entry, error) {
	data, err := s.client.Get(ctx, entryKey(partition, url)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s %s", domain.ErrCacheMiss, partition, url)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("corrupt cache entry for %s: %w", url, err)
	}

	return &entry, nil
}

func (s *Store) Put(ctx context.Context, partition Partition, url string, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry is required")
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	// TTL 0: expiry is the Redis instance's concern, not this layer's.
	if err := s.client.Set(ctx, entryKey(partition, url), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}

	return nil
}
