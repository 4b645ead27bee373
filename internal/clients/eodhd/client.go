// Package eodhd provides a client for the EODHD price history API.
package eodhd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/akontos/rebalancer/internal/marketdata"
)

const (
	defaultTimeout = 30 * time.Second

	// calendarBuffer widens the request window so weekends and holidays
	// do not shrink the returned bar count below what was asked for.
	calendarBuffer = 2
)

// Client fetches OHLCV history over the EODHD HTTP API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        zerolog.Logger
}

// New creates a new EODHD client
func New(baseURL, token string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		log: log.With().Str("client", "eodhd").Logger(),
	}
}

// eodBar is the wire format of one /api/eod row
type eodBar struct {
	Date   string          `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

// History implements marketdata.Provider. Daily, weekly and monthly
// frequencies go through the /api/eod endpoint; intraday frequencies use
// /api/intraday. Bars are returned ascending by time, trimmed to count.
func (c *Client) History(ctx context.Context, symbol string, end time.Time, count int, freq marketdata.Frequency) ([]marketdata.Bar, error) {
	if count <= 0 {
		return []marketdata.Bar{}, nil
	}

	switch freq {
	case marketdata.FrequencyDaily, marketdata.FrequencyWeekly, marketdata.FrequencyMonthly:
		return c.eodHistory(ctx, symbol, end, count, freq)
	default:
		return c.intradayHistory(ctx, symbol, end, count, freq)
	}
}

func (c *Client) eodHistory(ctx context.Context, symbol string, end time.Time, count int, freq marketdata.Frequency) ([]marketdata.Bar, error) {
	// Request window sized in calendar days per bar
	daysPerBar := 1
	switch freq {
	case marketdata.FrequencyWeekly:
		daysPerBar = 7
	case marketdata.FrequencyMonthly:
		daysPerBar = 31
	}
	from := end.AddDate(0, 0, -count*daysPerBar*calendarBuffer)

	params := url.Values{}
	params.Set("period", string(freq))
	params.Set("from", from.Format("2006-01-02"))
	params.Set("to", end.Format("2006-01-02"))
	params.Set("order", "a")

	var raw []eodBar
	if err := c.get(ctx, fmt.Sprintf("/api/eod/%s", url.PathEscape(symbol)), params, &raw); err != nil {
		return nil, err
	}

	bars := make([]marketdata.Bar, 0, len(raw))
	for _, rb := range raw {
		date, err := time.ParseInLocation("2006-01-02", rb.Date, time.UTC)
		if err != nil {
			c.log.Warn().Str("symbol", symbol).Str("date", rb.Date).Msg("Skipping bar with unparseable date")
			continue
		}
		bars = append(bars, marketdata.Bar{
			Date:   date,
			Open:   rb.Open,
			High:   rb.High,
			Low:    rb.Low,
			Close:  rb.Close,
			Volume: rb.Volume,
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	if len(bars) > count {
		bars = bars[len(bars)-count:]
	}

	return bars, nil
}

// intradayBar is the wire format of one /api/intraday row
type intradayBar struct {
	Timestamp int64           `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    int64           `json:"volume"`
}

func (c *Client) intradayHistory(ctx context.Context, symbol string, end time.Time, count int, freq marketdata.Frequency) ([]marketdata.Bar, error) {
	params := url.Values{}
	params.Set("interval", string(freq))
	params.Set("to", fmt.Sprintf("%d", end.Unix()))

	var raw []intradayBar
	if err := c.get(ctx, fmt.Sprintf("/api/intraday/%s", url.PathEscape(symbol)), params, &raw); err != nil {
		return nil, err
	}

	bars := make([]marketdata.Bar, 0, len(raw))
	for _, rb := range raw {
		bars = append(bars, marketdata.Bar{
			Date:   time.Unix(rb.Timestamp, 0).UTC(),
			Open:   rb.Open,
			High:   rb.High,
			Low:    rb.Low,
			Close:  rb.Close,
			Volume: rb.Volume,
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	if len(bars) > count {
		bars = bars[len(bars)-count:]
	}

	return bars, nil
}

// get performs a GET request and decodes the JSON response into result
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_token", c.token)
	params.Set("fmt", "json")

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("eodhd %s returned status %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}

	return nil
}
