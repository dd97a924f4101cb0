package cache

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/invopilot/invoice-edge/internal/domain"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := goredis.NewClient(&goredis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = rdb.Close()
	})

	store, err := NewStore(rdb)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return store, mr
}

func TestNewStoreRequiresClient(t *testing.T) {
	t.Parallel()

	if _, err := NewStore(nil); err == nil {
		t.Fatal("expected error for nil client")
	}
}

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()

	entry := &Entry{
		Status:   http.StatusOK,
		Header:   http.Header{"Content-Type": {"application/json"}},
		Body:     []byte(`{"data":[{"id":"inv-1"}]}`),
		StoredAt: time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC),
	}

	if err := store.Put(ctx, PartitionInvoices, "/api/invoices?page=1", entry); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := store.Get(ctx, PartitionInvoices, "/api/invoices?page=1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if got.Status != entry.Status {
		t.Fatalf("status = %d, want %d", got.Status, entry.Status)
	}
	if !bytes.Equal(got.Body, entry.Body) {
		t.Fatalf("body = %q, want %q", got.Body, entry.Body)
	}
	if got.Header.Get("Content-Type") != "application/json" {
		t.Fatalf("content type = %q, want application/json", got.Header.Get("Content-Type"))
	}
	if !got.StoredAt.Equal(entry.StoredAt) {
		t.Fatalf("storedAt = %s, want %s", got.StoredAt, entry.StoredAt)
	}
}

func TestStoreGetMiss(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)

	_, err := store.Get(context.Background(), PartitionImages, "/logo.png")
	if !errors.Is(err, domain.ErrCacheMiss) {
		t.Fatalf("Get() error = %v, want ErrCacheMiss", err)
	}
}

func TestStorePartitionsAreIsolated(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()

	entry := &Entry{Status: http.StatusOK, Body: []byte("invoices")}
	if err := store.Put(ctx, PartitionInvoices, "/shared", entry); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if _, err := store.Get(ctx, PartitionAnalytics, "/shared"); !errors.Is(err, domain.ErrCacheMiss) {
		t.Fatalf("cross-partition Get() error = %v, want ErrCacheMiss", err)
	}
}

func TestStoreNewerEntryOverwritesOlder(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx := context.Background()

	first := &Entry{Status: http.StatusOK, Body: []byte("v1")}
	second := &Entry{Status: http.StatusOK, Body: []byte("v2")}

	if err := store.Put(ctx, PartitionAnalytics, "/api/analytics/summary", first); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := store.Put(ctx, PartitionAnalytics, "/api/analytics/summary", second); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := store.Get(ctx, PartitionAnalytics, "/api/analytics/summary")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got.Body) != "v2" {
		t.Fatalf("body = %q, want v2", got.Body)
	}
}

func TestStoreGetCorruptEntry(t *testing.T) {
	t.Parallel()

	store, mr := newTestStore(t)

	mr.Set(entryKey(PartitionImages, "/logo.png"), "not-json")

	_, err := store.Get(context.Background(), PartitionImages, "/logo.png")
	if err == nil {
		t.Fatal("expected error for corrupt entry")
	}
	if errors.Is(err, domain.ErrCacheMiss) {
		t.Fatal("corrupt entry must not look like a miss")
	}
}
