// Package api implements the HTTP client for the official ARS/USD quote API.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/matiasroldan/ars-rate-service/internal/domain/apperr"
	"github.com/matiasroldan/ars-rate-service/internal/domain/entity"
)

const (
	defaultBaseURL   = "https://api.argentinadatos.com"
	currentQuotePath = "/v1/dolares/oficial"
	historyPath      = "/v1/cotizaciones/dolares/oficial"

	maxAttempts  = 3
	retryBackoff = time.Second
)

// OficialAPIClient fetches the current quote and the historical series from
// the upstream API.
type OficialAPIClient struct {
	baseURL    string
	httpClient *http.Client
	log        *logrus.Logger
	backoff    time.Duration
}

// NewOficialAPIClient creates a client for the official quote API. A nil
// httpClient gets a default with a 10 second timeout; an empty baseURL uses
// the public endpoint.
func NewOficialAPIClient(httpClient *http.Client, baseURL string, log *logrus.Logger) *OficialAPIClient {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 10 * time.Second,
		}
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if log == nil {
		log = logrus.New()
	}

	return &OficialAPIClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		log:        log,
		backoff:    retryBackoff,
	}
}

// price accepts the upstream's numeric-or-string price fields. Unparseable
// content decodes to zero so a single broken entry never fails a whole
// series; zero is rejected by the positivity checks downstream.
type price float64

func (p *price) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*p = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*p = 0
		return nil
	}
	*p = price(v)
	return nil
}

// currentQuoteResponse is the wire format of the current official quote.
type currentQuoteResponse struct {
	Buy  price `json:"compra"`
	Sell price `json:"venta"`
}

// historyEntryResponse is one element of the historical quotes array.
type historyEntryResponse struct {
	Date string `json:"fecha"`
	Buy  price  `json:"compra"`
	Sell price  `json:"venta"`
}

// FetchCurrentMid returns the midpoint of the current official quote,
// rounded to 4 decimal places.
func (c *OficialAPIClient) FetchCurrentMid(ctx context.Context) (float64, error) {
	body, err := c.getJSON(ctx, c.baseURL+currentQuotePath)
	if err != nil {
		return 0, err
	}

	var quote currentQuoteResponse
	if err := json.Unmarshal(body, &quote); err != nil {
		return 0, apperr.Upstream(err, "failed to decode current quote response")
	}

	// Missing or non-positive prices mean the upstream has no usable rate.
	if quote.Buy <= 0 || quote.Sell <= 0 {
		return 0, apperr.NotFound("current quote has no valid buy/sell prices")
	}

	return entity.Midpoint(float64(quote.Buy), float64(quote.Sell)), nil
}

// FetchHistory returns the full historical quote series. Entries with
// unparseable dates or non-positive prices are dropped, never the whole
// series.
func (c *OficialAPIClient) FetchHistory(ctx context.Context) ([]entity.HistoricalEntry, error) {
	body, err := c.getJSON(ctx, c.baseURL+historyPath)
	if err != nil {
		return nil, err
	}

	var raw []historyEntryResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, apperr.Upstream(err, "failed to decode historical quotes response")
	}

	entries := make([]entity.HistoricalEntry, 0, len(raw))
	skipped := 0
	for _, e := range raw {
		day, err := time.Parse("2006-01-02", e.Date)
		if err != nil {
			skipped++
			continue
		}
		if e.Buy <= 0 || e.Sell <= 0 {
			skipped++
			continue
		}
		entries = append(entries, entity.HistoricalEntry{
			Date: day.UTC(),
			Mid:  entity.Midpoint(float64(e.Buy), float64(e.Sell)),
		})
	}

	if skipped > 0 {
		c.log.WithFields(logrus.Fields{
			"skipped": skipped,
			"kept":    len(entries),
		}).Debug("Dropped invalid historical quote entries")
	}

	return entries, nil
}

// getJSON issues a GET with up to maxAttempts tries, backing off
// exponentially. Retries happen on connection failures and rate limiting
// only; other statuses fail fast.
func (c *OficialAPIClient) getJSON(ctx context.Context, url string) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			wait := time.Duration(attempt-1) * time.Duration(attempt-1) * c.backoff
			c.log.WithFields(logrus.Fields{
				"url":     url,
				"attempt": attempt,
				"wait":    wait.String(),
			}).Warn("Retrying upstream request")

			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, apperr.Upstream(ctx.Err(), "request to %s canceled", url)
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, apperr.Upstream(err, "failed to create request for %s", url)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, apperr.Upstream(readErr, "failed to read response from %s", url)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("upstream rate limited: status %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, apperr.Upstream(
				fmt.Errorf("status %d", resp.StatusCode),
				"unexpected status from %s", url)
		}

		return body, nil
	}

	return nil, apperr.Upstream(lastErr, "request to %s failed after %d attempts", url, maxAttempts)
}
