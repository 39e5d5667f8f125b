package market

import (
	"context"
	"errors"
	"fmt"

	"cryptocandles/internal/logger"
)

// ErrAllTiersFailed 表示降级链上没有任何一级成功。
var ErrAllTiersFailed = errors.New("all tiers failed")

// Tier 是降级链中的一级数据来源。
type Tier[T any] struct {
	Name  string
	Fetch func(ctx context.Context) (T, error)
}

// Chain tries tiers in order and stops at the first success.
type Chain[T any] struct {
	Label string
	Tiers []Tier[T]
}

// Run returns the first successful value and the name of the tier that
// produced it. Failed tiers are logged at Warn and never surfaced unless
// every tier fails.
func (c Chain[T]) Run(ctx context.Context) (T, string, error) {
	var zero T
	errs := make([]error, 0, len(c.Tiers))
	for _, tier := range c.Tiers {
		if tier.Fetch == nil {
			continue
		}
		val, err := tier.Fetch(ctx)
		if err == nil {
			if len(errs) > 0 {
				logger.Infof("[market] %s served by tier=%s after %d failure(s)", c.Label, tier.Name, len(errs))
			}
			return val, tier.Name, nil
		}
		logger.Warnf("[market] %s tier=%s failed: %v", c.Label, tier.Name, err)
		errs = append(errs, fmt.Errorf("%s: %w", tier.Name, err))
	}
	return zero, "", fmt.Errorf("%s: %w: %w", c.Label, ErrAllTiersFailed, errors.Join(errs...))
}
