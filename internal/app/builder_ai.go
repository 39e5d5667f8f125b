package app

import (
	"strings"
	"time"

	"cryptocandles/internal/config"
	"cryptocandles/internal/gateway/analyzer"
	"cryptocandles/internal/logger"
)

// buildChartAnalyzer 未配置密钥时返回禁用状态的分析器，/api/analyze 返回 503。
func buildChartAnalyzer(cfg config.AIConfig, recorder analyzer.Recorder) *analyzer.ChartAnalyzer {
	if !cfg.Enabled {
		logger.Infof("AI 图表分析已关闭")
		return analyzer.NewChartAnalyzer(nil, recorder, cfg.MaxImageBytes)
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		logger.Warnf("AI 图表分析缺少 AI_API_KEY，已禁用")
		return analyzer.NewChartAnalyzer(nil, recorder, cfg.MaxImageBytes)
	}
	client := &analyzer.OpenAIChatClient{
		BaseURL: cfg.APIURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}
	logger.Infof("✓ AI 图表分析: model=%s", cfg.Model)
	return analyzer.NewChartAnalyzer(client, recorder, cfg.MaxImageBytes)
}
