package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/invopilot/invoice-edge/internal/cache"
	"github.com/invopilot/invoice-edge/internal/domain"
	"github.com/invopilot/invoice-edge/internal/notify"
)

type stubAPI struct {
	unreadFn func(ctx context.Context) (domain.UnreadCount, error)
	listFn   func(ctx context.Context) ([]domain.Notification, error)
	markFn   func(ctx context.Context, ids ...string) error
}

func (s *stubAPI) UnreadCount(ctx context.Context) (domain.UnreadCount, error) {
	if s.unreadFn == nil {
		return 0, nil
	}
	return s.unreadFn(ctx)
}

func (s *stubAPI) ListNotifications(ctx context.Context) ([]domain.Notification, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx)
}

func (s *stubAPI) MarkRead(ctx context.Context, ids ...string) error {
	if s.markFn == nil {
		return nil
	}
	return s.markFn(ctx, ids...)
}

type testGateway struct {
	app    *fiber.App
	poller *notify.Poller
	redis  *miniredis.Miniredis
}

func newTestGateway(t *testing.T, fetch cache.Fetcher, api notify.API) *testGateway {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
	})

	store, err := cache.NewStore(rdb)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	engine, err := cache.NewEngine(store, fetch, nil, zap.NewNop(), nil)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	if api == nil {
		api = &stubAPI{}
	}
	hub := notify.NewHub()
	poller, err := notify.NewPoller(notify.PollerOptions{
		API:      api,
		Hub:      hub,
		Logger:   zap.NewNop(),
		Interval: time.Minute,
		Timeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("NewPoller() error = %v", err)
	}

	app, err := New(Deps{
		Engine:    engine,
		Poller:    poller,
		Hub:       hub,
		Logger:    zap.NewNop(),
		Readiness: &Readiness{Redis: rdb},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return &testGateway{app: app, poller: poller, redis: mr}
}

func performRequest(t *testing.T, app *fiber.App, method string, target string, body string, header http.Header) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := app.Test(req, 5000)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	t.Cleanup(func() {
		_ = resp.Body.Close()
	})

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return resp, payload
}

func TestProxyPassesThroughBackendResponse(t *testing.T) {
	t.Parallel()

	fetch := cache.FetcherFunc(func(ctx context.Context, r *http.Request) (*cache.Entry, error) {
		return &cache.Entry{
			Status: http.StatusOK,
			Header: http.Header{"Content-Type": {"application/json"}, "X-Upstream": {"yes"}},
			Body:   []byte(`{"data":[]}`),
		}, nil
	})
	gw := newTestGateway(t, fetch, nil)

	resp, body := performRequest(t, gw.app, http.MethodGet, "/api/invoices?page=1", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if string(body) != `{"data":[]}` {
		t.Fatalf("body = %s", body)
	}
	if resp.Header.Get("X-Upstream") != "yes" {
		t.Fatal("upstream headers should pass through")
	}
}

func TestProxyServesCachedEntryWhenBackendFails(t *testing.T) {
	t.Parallel()

	online := true
	fetch := cache.FetcherFunc(func(ctx context.Context, r *http.Request) (*cache.Entry, error) {
		if !online {
			return nil, errors.New("connection refused")
		}
		return &cache.Entry{Status: http.StatusOK, Body: []byte(`{"total":4}`)}, nil
	})
	gw := newTestGateway(t, fetch, nil)

	if resp, _ := performRequest(t, gw.app, http.MethodGet, "/api/analytics/summary", "", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("prime status = %d, want 200", resp.StatusCode)
	}

	online = false
	resp, body := performRequest(t, gw.app, http.MethodGet, "/api/analytics/summary", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 from cache", resp.StatusCode)
	}
	if string(body) != `{"total":4}` {
		t.Fatalf("body = %s, want cached payload", body)
	}
}

func TestNavigationFallsBackToOfflinePage(t *testing.T) {
	t.Parallel()

	fetch := cache.FetcherFunc(func(ctx context.Context, r *http.Request) (*cache.Entry, error) {
		return nil, errors.New("no route to host")
	})
	gw := newTestGateway(t, fetch, nil)

	header := http.Header{fiber.HeaderAccept: {"text/html,application/xhtml+xml"}}
	resp, body := performRequest(t, gw.app, http.MethodGet, "/dashboard", "", header)

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get(fiber.HeaderContentType), "text/html") {
		t.Fatalf("content type = %q, want html", resp.Header.Get(fiber.HeaderContentType))
	}
	if !strings.Contains(string(body), "offline") {
		t.Fatal("offline page should be served")
	}
}

func TestAPIFailureWithoutCacheReturnsJSONError(t *testing.T) {
	t.Parallel()

	fetch := cache.FetcherFunc(func(ctx context.Context, r *http.Request) (*cache.Entry, error) {
		return nil, errors.New("no route to host")
	})
	gw := newTestGateway(t, fetch, nil)

	header := http.Header{fiber.HeaderAccept: {"application/json"}}
	resp, body := performRequest(t, gw.app, http.MethodGet, "/api/invoices", "", header)

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("expected JSON error body, got %s", body)
	}
	if payload["error"] == "" {
		t.Fatal("error message should be populated")
	}
}

func TestLocalUnreadCount(t *testing.T) {
	t.Parallel()

	api := &stubAPI{
		unreadFn: func(ctx context.Context) (domain.UnreadCount, error) {
			return 120, nil
		},
	}
	gw := newTestGateway(t, cache.FetcherFunc(func(ctx context.Context, r *http.Request) (*cache.Entry, error) {
		return &cache.Entry{Status: http.StatusOK}, nil
	}), api)

	// The initial poll runs as soon as the loop starts.
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = gw.poller.Start(ctx)
	}()
	defer cancel()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if gw.poller.Snapshot().Unread == 120 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	resp, body := performRequest(t, gw.app, http.MethodGet, "/local/v1/notifications/unread-count", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var payload unreadCountResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if payload.Count != 120 {
		t.Fatalf("count = %d, want 120", payload.Count)
	}
	if payload.Badge != "99+" {
		t.Fatalf("badge = %q, want 99+", payload.Badge)
	}
}

func TestLocalMarkReadUnknownID(t *testing.T) {
	t.Parallel()

	gw := newTestGateway(t, cache.FetcherFunc(func(ctx context.Context, r *http.Request) (*cache.Entry, error) {
		return &cache.Entry{Status: http.StatusOK}, nil
	}), nil)

	resp, _ := performRequest(t, gw.app, http.MethodPost, "/local/v1/notifications/read", `{"ids":["missing"]}`, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestLocalPanelToggle(t *testing.T) {
	t.Parallel()

	api := &stubAPI{
		listFn: func(ctx context.Context) ([]domain.Notification, error) {
			return []domain.Notification{{ID: "n-1", Title: "Hinweis"}}, nil
		},
	}
	gw := newTestGateway(t, cache.FetcherFunc(func(ctx context.Context, r *http.Request) (*cache.Entry, error) {
		return &cache.Entry{Status: http.StatusOK}, nil
	}), api)

	resp, body := performRequest(t, gw.app, http.MethodPost, "/local/v1/panel/toggle", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var state notify.State
	if err := json.Unmarshal(body, &state); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if !state.PanelOpen {
		t.Fatal("panel should be open after toggle")
	}
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	gw := newTestGateway(t, cache.FetcherFunc(func(ctx context.Context, r *http.Request) (*cache.Entry, error) {
		return &cache.Entry{Status: http.StatusOK}, nil
	}), nil)

	if resp, _ := performRequest(t, gw.app, http.MethodGet, "/livez", "", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("livez status = %d, want 200", resp.StatusCode)
	}
	if resp, _ := performRequest(t, gw.app, http.MethodGet, "/readyz", "", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("readyz status = %d, want 200", resp.StatusCode)
	}

	gw.redis.Close()
	if resp, _ := performRequest(t, gw.app, http.MethodGet, "/readyz", "", nil); resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("readyz status = %d, want 503 with redis down", resp.StatusCode)
	}
}

func TestRequestIDHeaderIsEchoed(t *testing.T) {
	t.Parallel()

	gw := newTestGateway(t, cache.FetcherFunc(func(ctx context.Context, r *http.Request) (*cache.Entry, error) {
		return &cache.Entry{Status: http.StatusOK}, nil
	}), nil)

	resp, _ := performRequest(t, gw.app, http.MethodGet, "/livez", "", nil)
	if resp.Header.Get(requestIDHeader) == "" {
		t.Fatal("a request id should be assigned")
	}

	header := http.Header{requestIDHeader: {"req-123"}}
	resp, _ = performRequest(t, gw.app, http.MethodGet, "/livez", "", header)
	if got := resp.Header.Get(requestIDHeader); got != "req-123" {
		t.Fatalf("request id = %q, want req-123", got)
	}
}
