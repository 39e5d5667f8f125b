package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"cryptocandles/internal/config"
	"cryptocandles/internal/gateway/binance"
	"cryptocandles/internal/gateway/gate"
	"cryptocandles/internal/gateway/notifier"
	"cryptocandles/internal/market"
	"cryptocandles/internal/pkg/randx"
	"cryptocandles/internal/store/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, upstream string) *config.Config {
	t.Helper()
	t.Setenv("AI_API_KEY", "")
	t.Setenv("PORT", "")
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	cfg.App.HTTPAddr = "127.0.0.1:0"
	cfg.Market.PriceBaseURL = upstream
	cfg.Market.ExchangeBaseURL = upstream
	cfg.Market.PriceRefreshSeconds = 0
	cfg.Follow.Backend = "sqlite"
	cfg.Backtest.LatencyMillis = 0
	return cfg
}

func memoryStore(t *testing.T) func(context.Context, config.StoreConfig) (*sqlite.SqliteStore, error) {
	return func(context.Context, config.StoreConfig) (*sqlite.SqliteStore, error) {
		return sqlite.Open("file:" + t.Name() + "?mode=memory&cache=shared")
	}
}

func TestBuildServesDegradedMarketAndSeededFeed(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer down.Close()

	cfg := testConfig(t, down.URL)
	app, err := NewAppBuilder(cfg, WithStore(memoryStore(t)), WithRand(randx.New(1))).Build(context.Background())
	require.NoError(t, err)
	defer app.Close()
	h := app.http.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/market/candles?symbol=BTCUSDT&interval=1h&limit=100", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var series market.Series
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &series))
	assert.Equal(t, market.TierStaticAnchor, series.Source)
	require.Len(t, series.Candles, 100)
	assert.InDelta(t, 95000, series.Candles[99].Close, 1e-6)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/market/prices", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var quotes []market.Quote
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quotes))
	assert.Equal(t, market.DefaultTables().SnapshotQuotes(), quotes)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/signals?page=5&limit=10", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Data    []json.RawMessage `json:"data"`
		Total   int               `json:"total"`
		HasMore bool              `json:"hasMore"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 50, page.Total)
	assert.Len(t, page.Data, 10)
	assert.False(t, page.HasMore)

	req := httptest.NewRequest(http.MethodPost, "/api/providers/sp1/follow", nil)
	req.Header.Set("X-Session-ID", "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.JSONEq(t, `{"success":true,"following":true}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewReader(nil)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var buf bytes.Buffer
	app.Summary.Fprint(&buf)
	assert.Contains(t, buf.String(), "BTCUSDT")
	assert.Contains(t, buf.String(), "未启用")
}

func TestBuildRejectsBadSeedFile(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.Store.SeedPath = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := NewAppBuilder(cfg, WithStore(memoryStore(t))).Build(context.Background())
	assert.Error(t, err)
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	app, err := NewAppBuilder(cfg, WithStore(memoryStore(t))).Build(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(6 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestBuildExchangeSourceFollowsConfig(t *testing.T) {
	mc := config.MarketConfig{Exchange: "gate", ExchangeBaseURL: "https://api.gateio.ws/api/v4", ExchangeTimeoutSeconds: 3}
	src, err := buildExchangeSource(mc)
	require.NoError(t, err)
	assert.IsType(t, &gate.Source{}, src)

	mc.Exchange = "binance"
	src, err = buildExchangeSource(mc)
	require.NoError(t, err)
	assert.IsType(t, &binance.Source{}, src)

	mc.ProxyURL = "://bad"
	_, err = buildExchangeSource(mc)
	assert.Error(t, err)
}

type chanNotifier chan string

func (c chanNotifier) SendText(_ context.Context, text string) error {
	c <- text
	return nil
}

func TestCreatedSignalIsPushed(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	pushed := make(chanNotifier, 1)
	app, err := NewAppBuilder(cfg,
		WithStore(memoryStore(t)),
		WithRand(randx.New(3)),
		WithNotifier(func(config.TelegramConfig) notifier.TextNotifier { return pushed }),
	).Build(context.Background())
	require.NoError(t, err)
	defer app.Close()

	body := `{"providerId":"sp2","pair":"ETHUSDT","type":"ALTA","timeframe":"4h","entry":"3500","target":"3800","stop":"3400","justification":"Suporte testado"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/signals", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	app.http.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	select {
	case text := <-pushed:
		assert.Contains(t, text, "ETH/USDT ALTA · 4H")
		assert.Contains(t, text, "Entry: 3500.00")
		assert.Contains(t, text, "Bullrun Master")
	case <-time.After(2 * time.Second):
		t.Fatal("signal was not pushed")
	}

	var buf bytes.Buffer
	app.Summary.Fprint(&buf)
	assert.Contains(t, buf.String(), "信号推送: Telegram")
}

func TestBuildNotifierNeedsCredentials(t *testing.T) {
	assert.Nil(t, buildNotifier(config.TelegramConfig{}))
	assert.Nil(t, buildNotifier(config.TelegramConfig{Enabled: true, BotToken: "t"}))
	assert.NotNil(t, buildNotifier(config.TelegramConfig{Enabled: true, BotToken: "t", ChatID: "c"}))
}
