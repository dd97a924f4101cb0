package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/invopilot/invoice-edge/internal/domain"
	"github.com/invopilot/invoice-edge/internal/observability"
)

// API is the slice of the backend client the poller depends on.
type API interface {
	UnreadCount(ctx context.Context) (domain.UnreadCount, error)
	ListNotifications(ctx context.Context) ([]domain.Notification, error)
	MarkRead(ctx context.Context, ids ...string) error
}

// State is a point-in-time snapshot of the notification surface.
type State struct {
	Unread    int                   `json:"unread"`
	Badge     string                `json:"badge"`
	Items     []domain.Notification `json:"items"`
	PanelOpen bool                  `json:"panel_open"`
	Loading   bool                  `json:"loading"`
}

// Poller keeps the unread badge current by polling the backend on a fixed
// interval, and manages the notification panel state. All exported methods
// are safe for concurrent use.
type Poller struct {
	api      API
	hub      *Hub
	logger   *zap.Logger
	metrics  *observability.Metrics
	interval time.Duration
	timeout  time.Duration
	navigate func(link string)

	mu        sync.Mutex
	stopped   bool
	unread    domain.UnreadCount
	items     []domain.Notification
	panelOpen bool
	loading   bool
}

type PollerOptions struct {
	API      API
	Hub      *Hub
	Logger   *zap.Logger
	Metrics  *observability.Metrics
	Interval time.Duration
	Timeout  time.Duration
	// Navigate is invoked when a notification with a link is opened.
	Navigate func(link string)
}

const (
	defaultPollInterval = 60 * time.Second
	defaultPollTimeout  = 15 * time.Second
)

func NewPoller(opts PollerOptions) (*Poller, error) {
	if opts.API == nil {
		return nil, fmt.Errorf("notification api is required")
	}
	if opts.Hub == nil {
		opts.Hub = NewHub()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultPollInterval
	}
	if opts.Timeout <= 0 || opts.Timeout >= opts.Interval {
		opts.Timeout = defaultPollTimeout
	}

	return &Poller{
		api:      opts.API,
		hub:      opts.Hub,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		interval: opts.Interval,
		timeout:  opts.Timeout,
		navigate: opts.Navigate,
	}, nil
}

// Start runs the polling loop until the context is canceled. The first poll
// happens immediately.
func (p *Poller) Start(ctx context.Context) error {
	p.logger.Info("notification poller started",
		zap.Duration("interval", p.interval),
	)

	p.pollOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.Stop()
			p.logger.Info("notification poller stopped")
			return ctx.Err()
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

// Stop marks the poller as torn down. Results of in-flight requests that
// land after Stop are discarded.
func (p *Poller) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
}

func (p *Poller) pollOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	count, err := p.api.UnreadCount(ctx)
	if err != nil {
		// The last known count stays on the badge.
		p.metrics.IncPollCycle("error")
		p.logger.Warn("unread count poll failed", zap.Error(err))
		return
	}

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	changed := p.unread != count
	p.unread = count
	p.mu.Unlock()

	p.metrics.IncPollCycle("ok")
	p.metrics.SetUnread(int(count))

	if changed {
		p.publishState()
	}
}

// TogglePanel opens or closes the notification panel. Opening triggers a
// list fetch in the background.
func (p *Poller) TogglePanel(ctx context.Context) State {
	p.mu.Lock()
	if p.stopped {
		defer p.mu.Unlock()
		return p.snapshotLocked()
	}

	p.panelOpen = !p.panelOpen
	opened := p.panelOpen
	if opened {
		p.loading = true
	}
	state := p.snapshotLocked()
	p.mu.Unlock()

	if opened {
		go p.fetchList(ctx)
	}
	p.publishState()
	return state
}

// ClosePanel closes the panel without toggling.
func (p *Poller) ClosePanel() {
	p.mu.Lock()
	p.panelOpen = false
	p.mu.Unlock()
	p.publishState()
}

// fetchList runs detached from its caller: the panel toggle request finishes
// long before the list arrives.
func (p *Poller) fetchList(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	items, err := p.api.ListNotifications(ctx)

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.loading = false
	if err == nil {
		// A fetch that lands after the panel closed still refreshes the
		// list, but never reopens the panel.
		p.items = items
	}
	p.mu.Unlock()

	if err != nil {
		p.logger.Warn("notification list fetch failed", zap.Error(err))
	}
	p.publishState()
}

// MarkOneRead marks a single notification as read. The unread count drops
// immediately; the backend write runs in the background and is not rolled
// back on failure, the next poll reconciles any drift.
func (p *Poller) MarkOneRead(ctx context.Context, id string) (State, error) {
	p.mu.Lock()
	if p.stopped {
		defer p.mu.Unlock()
		return p.snapshotLocked(), nil
	}

	idx := -1
	for i := range p.items {
		if p.items[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		defer p.mu.Unlock()
		return p.snapshotLocked(), fmt.Errorf("%w: notification %s", domain.ErrNotFound, id)
	}

	link := p.items[idx].Link
	if !p.items[idx].IsRead {
		p.items[idx].MarkRead()
		p.unread = p.unread.Dec()
	}
	if link != "" {
		p.panelOpen = false
	}
	state := p.snapshotLocked()
	p.mu.Unlock()

	go p.sendMarkRead(ctx, id)

	if link != "" {
		if p.navigate != nil {
			p.navigate(link)
		}
		p.hub.Publish(Event{Kind: EventNavigate, Link: link, State: state})
	} else {
		p.publishState()
	}
	return state, nil
}

// MarkAllRead marks every listed notification as read and zeroes the badge.
func (p *Poller) MarkAllRead(ctx context.Context) State {
	p.mu.Lock()
	if p.stopped {
		defer p.mu.Unlock()
		return p.snapshotLocked()
	}

	for i := range p.items {
		p.items[i].MarkRead()
	}
	p.unread = domain.NewUnreadCount(0)
	state := p.snapshotLocked()
	p.mu.Unlock()

	go p.sendMarkRead(ctx)

	p.publishState()
	return state
}

func (p *Poller) sendMarkRead(ctx context.Context, ids ...string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	if err := p.api.MarkRead(ctx, ids...); err != nil {
		p.logger.Warn("mark read failed",
			zap.Strings("ids", ids),
			zap.Error(err),
		)
	}
}

// Snapshot returns the current notification state.
func (p *Poller) Snapshot() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Poller) snapshotLocked() State {
	items := make([]domain.Notification, len(p.items))
	copy(items, p.items)

	return State{
		Unread:    int(p.unread),
		Badge:     p.unread.Badge(),
		Items:     items,
		PanelOpen: p.panelOpen,
		Loading:   p.loading,
	}
}

func (p *Poller) publishState() {
	p.hub.Publish(Event{Kind: EventStateChanged, State: p.Snapshot()})
}
