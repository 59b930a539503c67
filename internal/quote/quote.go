// Package quote looks up the daily reference exchange rate from the central
// bank's open-data quote service.
package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/lilnaht/excelfile-automation/internal/config"
	"github.com/shopspring/decimal"
)

// quoteTimeLayout is the timestamp format the quote service returns.
const quoteTimeLayout = "2006-01-02 15:04:05.999"

// Quote is a resolved exchange rate and the moment it was quoted.
type Quote struct {
	Value decimal.Decimal
	AsOf  time.Time
}

// Client queries the daily-quote service, probing backward day by day until
// a quotation is found or the window is exhausted.
type Client struct {
	baseURL     string
	maxDaysBack int
	httpClient  *http.Client
}

// NewClient builds a Client from configuration.
func NewClient(cfg config.QuoteConfig) *Client {
	return &Client{
		baseURL:     cfg.BaseURL,
		maxDaysBack: cfg.MaxDaysBack,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
	}
}

// ptaxResponse is the OData envelope of the daily dollar quote endpoint.
type ptaxResponse struct {
	Value []struct {
		CotacaoCompra   decimal.Decimal `json:"cotacaoCompra"`
		DataHoraCotacao string          `json:"dataHoraCotacao"`
	} `json:"value"`
}

// Lookup returns the most recent quote at or before ref, walking backward
// one day at a time up to the configured window (inclusive of ref's day).
// A zero ref means now.
//
// Lookup never fails: per-day request errors and empty payloads are
// swallowed and the probe continues; an exhausted window yields ok=false,
// which callers must treat as a valid "check manually" outcome.
func (c *Client) Lookup(ctx context.Context, ref time.Time) (Quote, bool) {
	if ref.IsZero() {
		ref = time.Now()
	}

	for i := 0; i < c.maxDaysBack; i++ {
		day := ref.AddDate(0, 0, -i)

		q, found, err := c.probe(ctx, day)
		if err != nil {
			slog.Debug("quote probe failed",
				"day", day.Format("2006-01-02"),
				"error", err,
			)
			continue
		}
		if found {
			return q, true
		}
	}

	slog.Warn("no quotation found in lookup window",
		"reference", ref.Format("2006-01-02"),
		"days", c.maxDaysBack,
	)
	return Quote{}, false
}

// probe requests the quotation for a single day.
func (c *Client) probe(ctx context.Context, day time.Time) (Quote, bool, error) {
	// The service takes dates as M-D-YYYY.
	dateForAPI := fmt.Sprintf("%d-%d-%d", int(day.Month()), day.Day(), day.Year())
	url := fmt.Sprintf("%s/CotacaoDolarDia(dataCotacao=@dataCotacao)?@dataCotacao='%s'&$top=1&$format=json",
		c.baseURL, dateForAPI)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Quote{}, false, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Quote{}, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return Quote{}, false, fmt.Errorf("quote service returned %d", resp.StatusCode)
	}

	var payload ptaxResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Quote{}, false, fmt.Errorf("decode quote response: %w", err)
	}
	if len(payload.Value) == 0 {
		return Quote{}, false, nil
	}

	first := payload.Value[0]
	asOf, err := time.Parse(quoteTimeLayout, first.DataHoraCotacao)
	if err != nil {
		asOf = day
	}

	return Quote{Value: first.CotacaoCompra, AsOf: asOf}, true, nil
}
