package apiclient

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/invopilot/invoice-edge/internal/domain"
)

const (
	defaultRequestTimeout = 15 * time.Second

	breakerMaxHalfOpenRequests = 3
	breakerCountingInterval    = 60 * time.Second
	breakerOpenTimeout         = 30 * time.Second
	breakerConsecutiveFailures = 5
)

// Client talks to the remote e-invoicing API. All endpoints are consumed as
// opaque JSON/binary; the real business logic lives server-side.
type Client struct {
	rest    *resty.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func New(baseURL string, token string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	trimmedBaseURL := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmedBaseURL == "" {
		return nil, fmt.Errorf("api base url is required")
	}
	if _, err := url.ParseRequestURI(trimmedBaseURL); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	rest := resty.New()
	rest.SetBaseURL(trimmedBaseURL)
	rest.SetTimeout(timeout)
	rest.SetRetryCount(0)
	if strings.TrimSpace(token) != "" {
		rest.SetAuthToken(strings.TrimSpace(token))
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "e-invoice-api",
		MaxRequests: breakerMaxHalfOpenRequests,
		Interval:    breakerCountingInterval,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerConsecutiveFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("api circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		rest:    rest,
		breaker: breaker,
		logger:  logger,
	}, nil
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.rest.BaseURL
}

// HTTPClient exposes the underlying transport so the cache layer can forward
// raw proxied requests over the same connection pool.
func (c *Client) HTTPClient() *http.Client {
	return c.rest.GetClient()
}

// do runs a backend call through the circuit breaker. Transport failures and
// 5xx responses count against the breaker; 4xx responses do not.
func (c *Client) do(call func() (*resty.Response, error)) (*resty.Response, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := call()
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return nil, newAPIError(resp)
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: api circuit breaker open", domain.ErrUnavailable)
		}
		return nil, err
	}

	return result.(*resty.Response), nil
}
