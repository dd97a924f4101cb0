package cache

import (
	"net/http"
	"path"
	"strings"
)

// Strategy selects how a matched request is resolved against its partition.
type Strategy int

const (
	// NetworkFirst prefers a live response and falls back to the stored
	// entry only when the network fails.
	NetworkFirst Strategy = iota
	// StaleWhileRevalidate returns the stored entry immediately and
	// refreshes it in the background.
	StaleWhileRevalidate
)

func (s Strategy) String() string {
	switch s {
	case NetworkFirst:
		return "network-first"
	case StaleWhileRevalidate:
		return "stale-while-revalidate"
	}
	return "unknown"
}

// Matcher reports whether a rule handles a request.
type Matcher func(r *http.Request) bool

// Rule binds a request predicate to a strategy and a cache partition.
type Rule struct {
	Name      string
	Match     Matcher
	Strategy  Strategy
	Partition Partition
}

func PathPrefix(prefix string) Matcher {
	return func(r *http.Request) bool {
		return strings.HasPrefix(r.URL.Path, prefix)
	}
}

var imageExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".svg":  {},
	".gif":  {},
	".webp": {},
	".ico":  {},
}

func ImageAsset(r *http.Request) bool {
	ext := strings.ToLower(path.Ext(r.URL.Path))
	_, ok := imageExtensions[ext]
	return ok
}

func Any(r *http.Request) bool { return true }

// DefaultRules returns the routing table. Rules are evaluated top to bottom
// and the first match wins.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "invoices", Match: PathPrefix("/api/invoices"), Strategy: NetworkFirst, Partition: PartitionInvoices},
		{Name: "analytics", Match: PathPrefix("/api/analytics"), Strategy: NetworkFirst, Partition: PartitionAnalytics},
		{Name: "images", Match: ImageAsset, Strategy: StaleWhileRevalidate, Partition: PartitionImages},
		{Name: "default", Match: Any, Strategy: NetworkFirst, Partition: PartitionPages},
	}
}
