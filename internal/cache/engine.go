package cache

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/invopilot/invoice-edge/internal/domain"
	"github.com/invopilot/invoice-edge/internal/observability"
)

const revalidateTimeout = 30 * time.Second

// Fetcher performs the network leg of a cache strategy.
type Fetcher interface {
	Fetch(ctx context.Context, r *http.Request) (*Entry, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, r *http.Request) (*Entry, error)

func (f FetcherFunc) Fetch(ctx context.Context, r *http.Request) (*Entry, error) {
	return f(ctx, r)
}

// Engine resolves requests through the ordered rule table. Each request is
// handled independently; the store is the only shared state and its per-key
// operations are atomic in Redis.
type Engine struct {
	store   *Store
	fetch   Fetcher
	rules   []Rule
	logger  *zap.Logger
	metrics *observability.Metrics

	// Test hook invoked after a background revalidation finishes.
	onRevalidated func(url string)
}

func NewEngine(
	store *Store,
	fetch Fetcher,
	rules []Rule,
	logger *zap.Logger,
	metrics *observability.Metrics,
) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("cache store is required")
	}
	if fetch == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		store:   store,
		fetch:   fetch,
		rules:   rules,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Serve resolves a request through the first matching rule. Non-GET requests
// are never cached and go straight to the network.
func (e *Engine) Serve(ctx context.Context, r *http.Request) (*Entry, error) {
	if r.Method != http.MethodGet {
		return e.fetch.Fetch(ctx, r)
	}

	rule := e.matchRule(r)
	switch rule.Strategy {
	case StaleWhileRevalidate:
		return e.staleWhileRevalidate(ctx, rule, r)
	default:
		return e.networkFirst(ctx, rule, r)
	}
}

func (e *Engine) matchRule(r *http.Request) Rule {
	for _, rule := range e.rules {
		if rule.Match(r) {
			return rule
		}
	}
	// DefaultRules always terminates with a catch-all; a custom table
	// without one degrades to the pages baseline.
	return Rule{Name: "default", Strategy: NetworkFirst, Partition: PartitionPages}
}

func (e *Engine) networkFirst(ctx context.Context, rule Rule, r *http.Request) (*Entry, error) {
	url := requestKey(r)

	entry, netErr := e.fetch.Fetch(ctx, r)
	if netErr == nil {
		e.put(ctx, rule.Partition, url, entry)
		return entry, nil
	}

	cached, err := e.store.Get(ctx, rule.Partition, url)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			e.logger.Warn("cache read failed after network failure",
				zap.String("partition", rule.Partition.String()),
				zap.String("url", url),
				zap.Error(err),
			)
		}
		e.metrics.IncCacheMiss(rule.Partition.String())
		// The original network error propagates.
		return nil, netErr
	}

	e.metrics.IncCacheFallback(rule.Partition.String())
	e.logger.Info("serving stale entry after network failure",
		zap.String("partition", rule.Partition.String()),
		zap.String("url", url),
		zap.Time("storedAt", cached.StoredAt),
	)
	return cached, nil
}

func (e *Engine) staleWhileRevalidate(ctx context.Context, rule Rule, r *http.Request) (*Entry, error) {
	url := requestKey(r)

	cached, err := e.store.Get(ctx, rule.Partition, url)
	if err == nil {
		e.metrics.IncCacheHit(rule.Partition.String())
		go e.revalidate(rule, r.Clone(context.Background()), url)
		return cached, nil
	}

	if !errors.Is(err, domain.ErrCacheMiss) {
		// Storage fault: fall through to a direct network attempt.
		e.logger.Warn("cache read failed, bypassing cache",
			zap.String("partition", rule.Partition.String()),
			zap.String("url", url),
			zap.Error(err),
		)
	}
	e.metrics.IncCacheMiss(rule.Partition.String())

	entry, netErr := e.fetch.Fetch(ctx, r)
	if netErr != nil {
		return nil, netErr
	}

	e.put(ctx, rule.Partition, url, entry)
	return entry, nil
}

func (e *Engine) revalidate(rule Rule, r *http.Request, url string) {
	ctx, cancel := context.WithTimeout(context.Background(), revalidateTimeout)
	defer cancel()

	entry, err := e.fetch.Fetch(ctx, r)
	switch {
	case err != nil:
		e.metrics.IncRevalidation(rule.Partition.String(), "error")
		e.logger.Debug("background revalidation failed",
			zap.String("partition", rule.Partition.String()),
			zap.String("url", url),
			zap.Error(err),
		)
	case isCacheable(entry):
		e.put(ctx, rule.Partition, url, entry)
		e.metrics.IncRevalidation(rule.Partition.String(), "refreshed")
	default:
		e.metrics.IncRevalidation(rule.Partition.String(), "skipped")
	}

	if e.onRevalidated != nil {
		e.onRevalidated(url)
	}
}

// put stores a successful response best-effort: a storage fault never fails
// the request being served.
func (e *Engine) put(ctx context.Context, partition Partition, url string, entry *Entry) {
	if !isCacheable(entry) {
		return
	}
	if err := e.store.Put(ctx, partition, url, entry); err != nil {
		e.logger.Warn("cache write failed",
			zap.String("partition", partition.String()),
			zap.String("url", url),
			zap.Error(err),
		)
	}
}

func isCacheable(entry *Entry) bool {
	return entry != nil && entry.Status >= http.StatusOK && entry.Status < http.StatusMultipleChoices
}

// requestKey is the cache key: the full request URL as seen by the gateway.
func requestKey(r *http.Request) string {
	return r.URL.RequestURI()
}
