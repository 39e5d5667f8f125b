package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"cryptocandles/internal/gateway/analyzer"
	"cryptocandles/internal/logger"
	"cryptocandles/internal/store/model"

	"gorm.io/datatypes"
)

const maxAnalysisHistory = 100

func (s *SqliteStore) SaveAnalysis(ctx context.Context, rec analyzer.Record) error {
	raw, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("encode analysis result: %w", err)
	}
	created := rec.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	return NewAnalysisRepo(s.db).Insert(ctx, &model.AnalysisModel{
		ID:             rec.ID,
		Model:          rec.Model,
		ImageName:      rec.ImageName,
		ImageMIME:      rec.ImageMIME,
		ImageBytes:     rec.ImageBytes,
		Recommendation: string(rec.Result.Recommendation),
		Confidence:     rec.Result.ConfidenceScore,
		ResultJSON:     datatypes.JSON(raw),
		CreatedAtUnix:  created.Unix(),
	})
}

// ListAnalyses 返回最近的分析记录，结果无法解码的行会被跳过。
func (s *SqliteStore) ListAnalyses(ctx context.Context, limit int) ([]analyzer.Record, error) {
	if limit <= 0 || limit > maxAnalysisHistory {
		limit = maxAnalysisHistory
	}
	rows, err := NewAnalysisRepo(s.db).ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]analyzer.Record, 0, len(rows))
	for _, row := range rows {
		var result analyzer.Result
		if err := json.Unmarshal(row.ResultJSON, &result); err != nil {
			logger.Warnf("analysis %s: 结果解码失败: %v", row.ID, err)
			continue
		}
		out = append(out, analyzer.Record{
			ID:         row.ID,
			CreatedAt:  model.UnixTime(row.CreatedAtUnix),
			Model:      row.Model,
			ImageName:  row.ImageName,
			ImageMIME:  row.ImageMIME,
			ImageBytes: row.ImageBytes,
			Result:     result,
		})
	}
	return out, nil
}
