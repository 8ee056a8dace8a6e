// Package priceclient fetches raw price quotes from the external price
// source over HTTP, behind a circuit breaker so a flaky upstream fails fast
// instead of stalling every refresh attempt on a full-length timeout.
package priceclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/stitts-dev/gearopt/internal/gearlog"
)

// RawQuote is one item's raw price-source reading. Missing fields are nil.
type RawQuote struct {
	High     *int64 `json:"high"`
	HighTime *int64 `json:"high_time"`
	Low      *int64 `json:"low"`
	LowTime  *int64 `json:"low_time"`
}

type rawResponse struct {
	Data map[string]RawQuote `json:"data"`
}

// Client fetches the price feed over HTTP with a circuit breaker guarding
// repeated upstream failures.
type Client struct {
	httpClient *http.Client
	baseURL    string
	breaker    *gobreaker.CircuitBreaker
}

// New returns a Client that GETs baseURL, tripping its breaker after
// failureThreshold consecutive failures.
func New(baseURL string, timeout time.Duration, failureThreshold uint32) *Client {
	settings := gobreaker.Settings{
		Name:    "price-source",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			gearlog.WithService("priceclient").WithField("breaker_state", to.String()).Warn("price source circuit breaker state change")
		},
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		breaker:    gobreaker.NewCircuitBreaker(settings),
	}
}

// Fetch retrieves the current price feed. Network failures, any status
// other than 200, and an open breaker all surface as a plain error; the caller
// (the pricestore loader) is responsible for translating that into the
// price_fetch_failed outcome.
func (c *Client) Fetch(ctx context.Context) (map[int64]RawQuote, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
		if err != nil {
			return nil, fmt.Errorf("building price request: %w", err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching price feed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("price feed returned status %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("reading price feed body: %w", err)
		}

		var parsed rawResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, fmt.Errorf("decoding price feed: %w", err)
		}
		return parsed.Data, nil
	})
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]RawQuote, len(result.(map[string]RawQuote)))
	for idStr, q := range result.(map[string]RawQuote) {
		var id int64
		if _, err := fmt.Sscanf(idStr, "%d", &id); err != nil {
			continue
		}
		byID[id] = q
	}
	return byID, nil
}
