package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cryptocandles/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const klinesBody = `[
  [1716631200000, "67000.10", "67250.00", "66900.00", "67100.50", "12.5", 1716634799999, "838000.1", 420, "6.1", "409000.0", "0"],
  [1716634800000, "67100.50", "67400.00", "67050.00", "67380.00", "9.7", 1716638399999, "652000.3", 377, "4.2", "283000.0", "0"]
]`

func newTestSource(t *testing.T, handler http.HandlerFunc) *Source {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	src, err := New(Config{RESTBaseURL: srv.URL, HTTPTimeout: 2 * time.Second})
	require.NoError(t, err)
	return src
}

func TestFetchCandlesParsesKlines(t *testing.T) {
	var gotQuery map[string]string
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/klines", r.URL.Path)
		q := r.URL.Query()
		gotQuery = map[string]string{"symbol": q.Get("symbol"), "interval": q.Get("interval"), "limit": q.Get("limit")}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(klinesBody))
	})

	candles, err := src.FetchCandles(context.Background(), "BTC/USDT", "1h", 2)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"symbol": "BTCUSDT", "interval": "1h", "limit": "2"}, gotQuery)
	assert.Equal(t, []market.Candle{
		{Time: 1716631200, Open: 67000.10, High: 67250.00, Low: 66900.00, Close: 67100.50},
		{Time: 1716634800, Open: 67100.50, High: 67400.00, Low: 67050.00, Close: 67380.00},
	}, candles)
}

func TestFetchCandlesFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"code":-1000,"msg":"internal"}`))
		},
		"empty": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`[]`))
		},
		"bad price": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`[[1716631200000, "abc", "1", "1", "1", "1", 1716634799999, "1", 1, "1", "1", "0"]]`))
		},
		"negative price": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`[[1716631200000, "-1", "1", "1", "1", "1", 1716634799999, "1", 1, "1", "1", "0"]]`))
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			src := newTestSource(t, handler)
			_, err := src.FetchCandles(context.Background(), "BTCUSDT", "1h", 10)
			assert.Error(t, err)
		})
	}
}

func TestNewRejectsBadProxy(t *testing.T) {
	_, err := New(Config{ProxyURL: "://bad"})
	assert.Error(t, err)
}
