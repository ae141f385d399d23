package ledger

import (
	"fmt"
	"strings"
	"time"
)

const periodLayout = "2006-01"

// Period identifies one accounting month in "YYYY-MM" form. The ledger
// service scopes every order list and print batch to a period.
type Period string

// ParsePeriod validates a "YYYY-MM" string and returns it as a Period.
func ParsePeriod(value string) (Period, error) {
	trimmed := strings.TrimSpace(value)
	if _, err := time.Parse(periodLayout, trimmed); err != nil {
		return "", fmt.Errorf("parse period %q: %w", value, err)
	}
	return Period(trimmed), nil
}

// CurrentPeriod returns the period containing the given instant.
func CurrentPeriod(now time.Time) Period {
	return Period(now.Format(periodLayout))
}

func (p Period) String() string { return string(p) }

// IsZero reports whether the period is unset.
func (p Period) IsZero() bool { return p == "" }

// Order is a single purchase record row as served by /api/orders.
type Order struct {
	OrderID   string `json:"order_id"`
	Title     string `json:"title"`
	Amount    int64  `json:"amount"`
	OrderedAt string `json:"ordered_at"`
	Excluded  bool   `json:"excluded"`
}

// ChannelOrders groups one sales channel's rows together with the
// server-side batch hints for the requested period. Prepared reports an
// existing ready-to-run print batch; Completed reports that the batch has
// already been marked printed.
type ChannelOrders struct {
	Source    string  `json:"source"`
	Prepared  bool    `json:"prepared"`
	Completed bool    `json:"completed"`
	Orders    []Order `json:"orders"`
}

// OrdersResponse mirrors GET /api/orders.
type OrdersResponse struct {
	Period  string          `json:"period"`
	Sources []ChannelOrders `json:"sources"`
}

// Channel returns the entry for the named channel, or nil when the
// response does not carry it.
func (r *OrdersResponse) Channel(source string) *ChannelOrders {
	if r == nil {
		return nil
	}
	for i := range r.Sources {
		if r.Sources[i].Source == source {
			return &r.Sources[i]
		}
	}
	return nil
}

// ExclusionItem names one excluded order inside a persist request.
type ExclusionItem struct {
	Source  string `json:"source"`
	OrderID string `json:"order_id"`
}

// exclusionsRequest is the body for POST /api/exclusions. The items list is
// a full replacement of the channel's stored exclusions, not a delta.
type exclusionsRequest struct {
	Period string          `json:"period"`
	Source string          `json:"source"`
	Items  []ExclusionItem `json:"items"`
}

// printRequest scopes the three print operations to a period and channel.
type printRequest struct {
	Period string `json:"period"`
	Source string `json:"source"`
}

// PrepareResult mirrors POST /api/print/prepare. Count is the number of
// orders placed in the new batch after exclusions.
type PrepareResult struct {
	Count           int    `json:"count"`
	PrintCommand    string `json:"print_command,omitempty"`
	ExcludedPDFsURL string `json:"excluded_pdfs_url,omitempty"`
}

// RunResult mirrors POST /api/print/run. MissingCount reports batch entries
// whose PDF artifact could not be found.
type RunResult struct {
	Count        int `json:"count"`
	MissingCount int `json:"missing_count"`
}

// CompleteResult mirrors POST /api/print/complete.
type CompleteResult struct {
	Count int `json:"count"`
}

// HealthResponse mirrors GET /api/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// Healthy reports whether the service calls itself ready.
func (h HealthResponse) Healthy() bool {
	return strings.EqualFold(h.Status, "ok")
}
