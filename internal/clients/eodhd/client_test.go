package eodhd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akontos/rebalancer/internal/marketdata"
)

func TestHistoryDaily(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"date":"2024-03-04","open":10,"high":11,"low":9.5,"close":10.5,"volume":1000},
			{"date":"2024-03-05","open":10.5,"high":12,"low":10,"close":11.25,"volume":2000}
		]`))
	}))
	defer srv.Close()

	client := New(srv.URL, "token123", zerolog.Nop())
	end := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	bars, err := client.History(context.Background(), "VTI.US", end, 90, marketdata.FrequencyDaily)
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, "/api/eod/VTI.US", gotPath)
	assert.Equal(t, []string{"token123"}, gotQuery["api_token"])
	assert.Equal(t, []string{"d"}, gotQuery["period"])

	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), bars[0].Date)
	assert.True(t, decimal.NewFromFloat(11.25).Equal(bars[1].Close))
	assert.Equal(t, int64(2000), bars[1].Volume)
}

func TestHistoryTrimsToCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"date":"2024-03-04","open":1,"high":1,"low":1,"close":1,"volume":0},
			{"date":"2024-03-05","open":2,"high":2,"low":2,"close":2,"volume":0},
			{"date":"2024-03-06","open":3,"high":3,"low":3,"close":3,"volume":0}
		]`))
	}))
	defer srv.Close()

	client := New(srv.URL, "token", zerolog.Nop())
	bars, err := client.History(context.Background(), "VTI.US", time.Now(), 2, marketdata.FrequencyDaily)
	require.NoError(t, err)
	require.Len(t, bars, 2)

	// Most recent two bars survive the trim
	assert.True(t, decimal.NewFromInt(2).Equal(bars[0].Close))
	assert.True(t, decimal.NewFromInt(3).Equal(bars[1].Close))
}

func TestHistoryErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusForbidden)
	}))
	defer srv.Close()

	client := New(srv.URL, "bad-token", zerolog.Nop())
	_, err := client.History(context.Background(), "VTI.US", time.Now(), 90, marketdata.FrequencyDaily)
	assert.Error(t, err)
}
