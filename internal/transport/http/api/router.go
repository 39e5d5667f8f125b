package apihttp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"cryptocandles/internal/backtest"
	"cryptocandles/internal/feed"
	"cryptocandles/internal/gateway/analyzer"
	"cryptocandles/internal/market"
	"cryptocandles/internal/store"
	"cryptocandles/internal/types"

	"github.com/gin-gonic/gin"
)

const (
	sessionHeader       = "X-Session-ID"
	defaultPageLimit    = 10
	maxPageLimit        = 100
	defaultHistoryLimit = 20
)

type PriceReader interface {
	GetSpotPrices(ctx context.Context) []market.Quote
	Status() market.PriceStatus
}

type CandleReader interface {
	GetCandles(ctx context.Context, symbol, interval string, count int) (market.Series, error)
}

type SignalPager interface {
	LoadPage(ctx context.Context, page, limit int) (feed.Page[types.Signal], error)
}

type CommunityStore interface {
	ListProviders(ctx context.Context) ([]types.SignalProvider, error)
	CreateSignal(ctx context.Context, in store.SignalInput) (types.Signal, error)
}

type FollowToggler interface {
	Toggle(ctx context.Context, session, providerID string) (bool, error)
	Following(ctx context.Context, session string) ([]string, error)
}

type Backtester interface {
	Run(ctx context.Context, p backtest.Params) (backtest.Result, error)
}

type ChartAnalyzer interface {
	Enabled() bool
	Analyze(ctx context.Context, img analyzer.Image) (analyzer.Record, error)
}

type AnalysisHistory interface {
	ListAnalyses(ctx context.Context, limit int) ([]analyzer.Record, error)
}

// Router 挂载 /api 下的业务路由。
type Router struct {
	cfg ServerConfig
}

func newRouter(cfg ServerConfig) *Router {
	return &Router{cfg: cfg}
}

func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	if r.cfg.Prices != nil {
		group.GET("/market/prices", r.handlePrices)
		group.GET("/market/status", r.handlePriceStatus)
	}
	if r.cfg.Candles != nil {
		group.GET("/market/candles", r.handleCandles)
	}
	if r.cfg.Signals != nil {
		group.GET("/signals", r.handleSignals)
	}
	if r.cfg.Community != nil {
		group.POST("/signals", r.handleCreateSignal)
		group.GET("/providers", r.handleProviders)
	}
	if r.cfg.Follows != nil {
		group.POST("/providers/:id/follow", r.handleToggleFollow)
		group.GET("/follows", r.handleFollows)
	}
	if r.cfg.Backtests != nil {
		group.POST("/backtest", r.handleBacktest)
		group.GET("/backtest/options", r.handleBacktestOptions)
	}
	if r.cfg.Analyzer != nil {
		group.POST("/analyze", r.handleAnalyze)
	}
	if r.cfg.Analyses != nil {
		group.GET("/analyses", r.handleAnalyses)
	}
}

func (r *Router) handlePrices(c *gin.Context) {
	c.JSON(http.StatusOK, r.cfg.Prices.GetSpotPrices(c.Request.Context()))
}

func (r *Router) handlePriceStatus(c *gin.Context) {
	c.JSON(http.StatusOK, r.cfg.Prices.Status())
}

type candlesResponse struct {
	market.Series
	Indicators *market.Overlay `json:"indicators,omitempty"`
}

func (r *Router) handleCandles(c *gin.Context) {
	sym := c.DefaultQuery("symbol", "BTCUSDT")
	interval := c.DefaultQuery("interval", "1h")
	limit, err := intQuery(c, "limit", r.cfg.DefaultCandles)
	if err != nil {
		writeError(c, err)
		return
	}
	series, err := r.cfg.Candles.GetCandles(c.Request.Context(), sym, interval, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := candlesResponse{Series: series}
	if truthy(c.Query("indicators")) {
		overlay := market.ComputeOverlay(series.Candles)
		resp.Indicators = &overlay
	}
	c.JSON(http.StatusOK, resp)
}

func (r *Router) handleSignals(c *gin.Context) {
	page, err := intQuery(c, "page", 1)
	if err != nil {
		writeError(c, err)
		return
	}
	limit, err := intQuery(c, "limit", defaultPageLimit)
	if err != nil {
		writeError(c, err)
		return
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	out, err := r.cfg.Signals.LoadPage(c.Request.Context(), page, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (r *Router) handleCreateSignal(c *gin.Context) {
	var in store.SignalInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	sig, err := r.cfg.Community.CreateSignal(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sig)
}

func (r *Router) handleProviders(c *gin.Context) {
	providers, err := r.cfg.Community.ListProviders(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, providers)
}

func (r *Router) handleToggleFollow(c *gin.Context) {
	following, err := r.cfg.Follows.Toggle(c.Request.Context(), c.GetHeader(sessionHeader), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "following": following})
}

func (r *Router) handleFollows(c *gin.Context) {
	ids, err := r.cfg.Follows.Following(c.Request.Context(), c.GetHeader(sessionHeader))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": ids})
}

func (r *Router) handleBacktest(c *gin.Context) {
	var p backtest.Params
	if err := c.ShouldBindJSON(&p); err != nil {
		writeError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	res, err := r.cfg.Backtests.Run(c.Request.Context(), p)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (r *Router) handleBacktestOptions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"strategies": backtest.Strategies(),
		"intervals":  backtest.SupportedTimeframes(),
	})
}

type analysisResponse struct {
	ID string `json:"id"`
	analyzer.Result
}

func (r *Router) handleAnalyze(c *gin.Context) {
	if !r.cfg.Analyzer.Enabled() {
		writeError(c, analyzer.ErrDisabled)
		return
	}
	fh, err := c.FormFile("image")
	if err != nil {
		writeError(c, analyzer.ErrNoImage)
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		writeError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	rec, err := r.cfg.Analyzer.Analyze(c.Request.Context(), analyzer.Image{Name: fh.Filename, Data: data})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysisResponse{ID: rec.ID, Result: rec.Result})
}

func (r *Router) handleAnalyses(c *gin.Context) {
	limit, err := intQuery(c, "limit", defaultHistoryLimit)
	if err != nil {
		writeError(c, err)
		return
	}
	recs, err := r.cfg.Analyses.ListAnalyses(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, recs)
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errBadRequest, key)
	}
	return v, nil
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
