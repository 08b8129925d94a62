// Package clocksync gives every observer a skew-corrected "now" so
// elapsed-time math agrees across machines with untrusted local clocks.
package clocksync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// timePayload is the wire form of the authoritative server time.
type timePayload struct {
	ServerTimeMillis int64 `json:"serverTime"`
}

// Handler serves the authoritative time for clients to sync against.
func Handler(clock clockwork.Clock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(timePayload{ServerTimeMillis: clock.Now().UnixMilli()})
	}
}

// Client measures the offset between the local clock and the server clock
// once per session. If Sync never succeeds the offset stays zero and Now
// degrades to the local clock, which is a known limitation, not fatal.
type Client struct {
	url   string
	http  *http.Client
	clock clockwork.Clock

	mu     sync.RWMutex
	offset time.Duration
}

// NewClient builds a sync client against the given /time endpoint. httpClient
// and clock may be nil for the defaults.
func NewClient(url string, httpClient *http.Client, clock clockwork.Clock) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Client{url: url, http: httpClient, clock: clock}
}

// Sync performs one round trip: record t0, fetch server time ts, record t1;
// one-way latency is approximated as half the round trip and the offset is
// ts + latency - t1.
func (c *Client) Sync(ctx context.Context) error {
	t0 := c.clock.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("build time request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch server time: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch server time: status %d", resp.StatusCode)
	}

	var payload timePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("decode server time: %w", err)
	}
	t1 := c.clock.Now()

	latency := t1.Sub(t0) / 2
	serverTime := time.UnixMilli(payload.ServerTimeMillis)
	offset := serverTime.Add(latency).Sub(t1)

	c.mu.Lock()
	c.offset = offset
	c.mu.Unlock()
	return nil
}

// Now returns the skew-corrected time.
func (c *Client) Now() time.Time {
	c.mu.RLock()
	offset := c.offset
	c.mu.RUnlock()
	return c.clock.Now().Add(offset)
}

// Offset exposes the measured skew, mainly for logging and tests.
func (c *Client) Offset() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.offset
}
