package apihttp

import (
	"context"
	"errors"
	"net/http"

	"cryptocandles/internal/backtest"
	"cryptocandles/internal/feed"
	"cryptocandles/internal/follow"
	"cryptocandles/internal/gateway/analyzer"
	"cryptocandles/internal/logger"
	"cryptocandles/internal/market"
	"cryptocandles/internal/store"

	"github.com/gin-gonic/gin"
)

var errBadRequest = errors.New("bad request")

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, feed.ErrInvalidPage),
		errors.Is(err, market.ErrUnsupportedInterval),
		errors.Is(err, market.ErrInvalidCount),
		errors.Is(err, market.ErrInvalidSymbol),
		errors.Is(err, backtest.ErrInvalidParams),
		errors.Is(err, store.ErrInvalidSignal),
		errors.Is(err, analyzer.ErrNoImage),
		errors.Is(err, analyzer.ErrUnsupportedImage):
		return http.StatusBadRequest
	case errors.Is(err, analyzer.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, follow.ErrNoSession):
		return http.StatusUnauthorized
	case errors.Is(err, follow.ErrUnknownProvider), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, analyzer.ErrDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, analyzer.ErrUpstream), errors.Is(err, analyzer.ErrInvalidResult):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError 输出 {"error": "..."}；5xx 只返回通用描述，细节写日志。
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch {
	case status == http.StatusInternalServerError:
		logger.Errorf("HTTP %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		msg = "internal error"
	case status >= 500:
		logger.Warnf("HTTP %s %s upstream: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
