package apihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cryptocandles/internal/backtest"
	"cryptocandles/internal/feed"
	"cryptocandles/internal/follow"
	"cryptocandles/internal/gateway/analyzer"
	"cryptocandles/internal/market"
	"cryptocandles/internal/pkg/randx"
	"cryptocandles/internal/store"
	"cryptocandles/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type stubPrices struct{}

func (stubPrices) GetSpotPrices(context.Context) []market.Quote {
	return market.DefaultTables().SnapshotQuotes()
}

func (stubPrices) Status() market.PriceStatus {
	return market.PriceStatus{Tier: market.TierFallback}
}

type mockCandles struct{ mock.Mock }

func (m *mockCandles) GetCandles(ctx context.Context, symbol, interval string, count int) (market.Series, error) {
	args := m.Called(ctx, symbol, interval, count)
	return args.Get(0).(market.Series), args.Error(1)
}

type mockCommunity struct{ mock.Mock }

func (m *mockCommunity) ListProviders(ctx context.Context) ([]types.SignalProvider, error) {
	args := m.Called(ctx)
	return args.Get(0).([]types.SignalProvider), args.Error(1)
}

func (m *mockCommunity) CreateSignal(ctx context.Context, in store.SignalInput) (types.Signal, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(types.Signal), args.Error(1)
}

type mockAnalyzer struct {
	mock.Mock
	enabled bool
}

func (m *mockAnalyzer) Enabled() bool { return m.enabled }

func (m *mockAnalyzer) Analyze(ctx context.Context, img analyzer.Image) (analyzer.Record, error) {
	args := m.Called(ctx, img)
	return args.Get(0).(analyzer.Record), args.Error(1)
}

type knownProviders map[string]bool

func (k knownProviders) ProviderExists(_ context.Context, id string) (bool, error) {
	return k[id], nil
}

type fixture struct {
	server    *Server
	candles   *mockCandles
	community *mockCommunity
	analyzer  *mockAnalyzer
}

func newFixture(t *testing.T, signals int) *fixture {
	t.Helper()
	items := make(feed.SliceLister, signals)
	for i := range items {
		items[i] = types.Signal{ID: fmt.Sprintf("sig%d", i+1), Type: types.SignalBullish}
	}
	f := &fixture{
		candles:   &mockCandles{},
		community: &mockCommunity{},
		analyzer:  &mockAnalyzer{enabled: true},
	}
	f.server = NewServer(ServerConfig{
		DefaultCandles: 100,
		Prices:         stubPrices{},
		Candles:        f.candles,
		Signals:        feed.NewSignalFeed(items),
		Community:      f.community,
		Follows:        follow.NewRegistry(follow.NewMemoryStore(), knownProviders{"sp1": true}),
		Backtests:      backtest.NewSimulator(randx.Fixed(0.5), nil, backtest.SimulatorConfig{}),
		Analyzer:       f.analyzer,
	})
	t.Cleanup(func() {
		f.candles.AssertExpectations(t)
		f.community.AssertExpectations(t)
		f.analyzer.AssertExpectations(t)
	})
	return f
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, 0)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestPricesNeverFail(t *testing.T) {
	f := newFixture(t, 0)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/market/prices", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var quotes []market.Quote
	decode(t, rec, &quotes)
	require.Len(t, quotes, 4)
	assert.Equal(t, 65432.10, quotes[0].Price)
}

func TestCandlesDefaultsAndIndicators(t *testing.T) {
	f := newFixture(t, 0)
	candles := make([]market.Candle, 60)
	for i := range candles {
		p := 100 + float64(i)
		candles[i] = market.Candle{Time: int64(i * 3600), Open: p, High: p + 1, Low: p - 1, Close: p}
	}
	f.candles.On("GetCandles", mock.Anything, "BTCUSDT", "1h", 100).
		Return(market.Series{Symbol: "BTCUSDT", Interval: "1h", Source: market.TierStaticAnchor, Candles: candles}, nil).Twice()

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/market/candles", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var plain map[string]any
	decode(t, rec, &plain)
	assert.Equal(t, "static-anchor", plain["source"])
	assert.NotContains(t, plain, "indicators")

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/market/candles?indicators=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var withInd struct {
		Candles    []market.Candle `json:"candles"`
		Indicators market.Overlay  `json:"indicators"`
	}
	decode(t, rec, &withInd)
	assert.Len(t, withInd.Candles, 60)
	assert.NotEmpty(t, withInd.Indicators.EMAFast)
}

func TestCandlesBadArgs(t *testing.T) {
	f := newFixture(t, 0)
	f.candles.On("GetCandles", mock.Anything, "BTCUSDT", "7h", 100).
		Return(market.Series{}, fmt.Errorf("%w: 7h", market.ErrUnsupportedInterval)).Once()

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/market/candles?interval=7h", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unsupported interval")

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/market/candles?limit=lots", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignalsPagination(t *testing.T) {
	f := newFixture(t, 12)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/signals?page=3&limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var page feed.Page[types.Signal]
	decode(t, rec, &page)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 12, page.Total)
	assert.False(t, page.HasMore)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/signals", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &page)
	assert.Len(t, page.Items, 10)
	assert.True(t, page.HasMore)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/signals?limit=1000", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &page)
	assert.Equal(t, maxPageLimit, page.Limit)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/signals?page=0", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateSignal(t *testing.T) {
	f := newFixture(t, 0)
	f.community.On("CreateSignal", mock.Anything, mock.MatchedBy(func(in store.SignalInput) bool {
		return in.ProviderID == "ghost"
	})).Return(types.Signal{}, fmt.Errorf("provider ghost: %w", store.ErrNotFound)).Once()
	f.community.On("CreateSignal", mock.Anything, mock.MatchedBy(func(in store.SignalInput) bool {
		return in.ProviderID == "sp1"
	})).Return(types.Signal{ID: "new", Pair: "BTC/USDT"}, nil).Once()

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/signals", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return f.do(req)
	}
	assert.Equal(t, http.StatusNotFound, post(`{"providerId":"ghost"}`).Code)
	rec := post(`{"providerId":"sp1","pair":"BTC/USDT"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"new"`)
	assert.Equal(t, http.StatusBadRequest, post(`{not json`).Code)
}

func TestProviders(t *testing.T) {
	f := newFixture(t, 0)
	f.community.On("ListProviders", mock.Anything).
		Return([]types.SignalProvider{{ID: "sp1", Name: "CryptoWhale"}}, nil).Once()
	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/providers", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "CryptoWhale")
}

func TestFollowToggle(t *testing.T) {
	f := newFixture(t, 0)
	toggle := func(session, id string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/providers/"+id+"/follow", nil)
		if session != "" {
			req.Header.Set(sessionHeader, session)
		}
		return f.do(req)
	}

	assert.Equal(t, http.StatusUnauthorized, toggle("", "sp1").Code)
	assert.Equal(t, http.StatusNotFound, toggle("s1", "sp9").Code)

	rec := toggle("s1", "sp1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"following":true}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/api/follows", nil)
	req.Header.Set(sessionHeader, "s1")
	rec = f.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"following":["sp1"]}`, rec.Body.String())

	rec = toggle("s1", "sp1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"following":false}`, rec.Body.String())
}

func TestBacktest(t *testing.T) {
	f := newFixture(t, 0)
	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/backtest", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return f.do(req)
	}
	rec := post(`{"pair":"BTC/USDT","interval":"1h","strategy":"engulfing"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var res backtest.Result
	decode(t, rec, &res)
	assert.Len(t, res.Trades, 15)
	assert.GreaterOrEqual(t, res.WinRate, 50)
	assert.Less(t, res.WinRate, 90)

	rec = post(`{"pair":"BTC/USDT","interval":"1h","strategy":"martingale"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotContains(t, rec.Body.String(), "trades")

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/backtest/options", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ema_cross_rsi")
}

func multipartImage(t *testing.T, field string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, "chart.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestAnalyze(t *testing.T) {
	f := newFixture(t, 0)
	png := []byte("\x89PNG\r\n\x1a\nrest")

	rec := f.do(multipartImage(t, "file", png))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.analyzer.On("Analyze", mock.Anything, mock.Anything).
		Return(analyzer.Record{}, fmt.Errorf("%w: status 500", analyzer.ErrUpstream)).Once()
	rec = f.do(multipartImage(t, "image", png))
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	f.analyzer.On("Analyze", mock.Anything, analyzer.Image{Name: "chart.png", Data: png}).
		Return(analyzer.Record{
			ID:        "a1",
			CreatedAt: time.Now(),
			Result:    analyzer.Result{Trend: "Alta", Recommendation: analyzer.RecommendBullish, ConfidenceScore: 80},
		}, nil).Once()
	rec = f.do(multipartImage(t, "image", png))
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	decode(t, rec, &body)
	assert.Equal(t, "a1", body["id"])
	assert.Equal(t, "ALTA", body["recommendation"])
	assert.EqualValues(t, 80, body["confidenceScore"])
}

func TestAnalyzeDisabled(t *testing.T) {
	f := newFixture(t, 0)
	f.analyzer.enabled = false
	rec := f.do(multipartImage(t, "image", []byte("x")))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, 0)
	req := httptest.NewRequest(http.MethodOptions, "/api/signals", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := f.do(req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), sessionHeader)
}

func TestCORSRestrictedOrigins(t *testing.T) {
	srv := NewServer(ServerConfig{CORSOrigins: []string{"https://app.example.com"}})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://app.example.com")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusMapping(t *testing.T) {
	cases := map[error]int{
		feed.ErrInvalidPage:        http.StatusBadRequest,
		follow.ErrNoSession:        http.StatusUnauthorized,
		follow.ErrUnknownProvider:  http.StatusNotFound,
		analyzer.ErrImageTooLarge:  http.StatusRequestEntityTooLarge,
		analyzer.ErrInvalidResult:  http.StatusBadGateway,
		context.DeadlineExceeded:   http.StatusGatewayTimeout,
		fmt.Errorf("disk on fire"): http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, statusFor(err), err.Error())
	}
}
