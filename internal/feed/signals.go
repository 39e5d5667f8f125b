package feed

import (
	"context"
	"fmt"

	"cryptocandles/internal/types"
)

// SignalLister 是信号的只读存储。
type SignalLister interface {
	CountSignals(ctx context.Context) (int, error)
	ListSignals(ctx context.Context, offset, limit int) ([]types.Signal, error)
}

// SignalFeed 按插入顺序分页读取信号。
type SignalFeed struct {
	lister SignalLister
}

func NewSignalFeed(lister SignalLister) *SignalFeed {
	return &SignalFeed{lister: lister}
}

func (f *SignalFeed) LoadPage(ctx context.Context, page, limit int) (Page[types.Signal], error) {
	if err := validate(page, limit); err != nil {
		return Page[types.Signal]{}, err
	}
	total, err := f.lister.CountSignals(ctx)
	if err != nil {
		return Page[types.Signal]{}, fmt.Errorf("count signals: %w", err)
	}
	out := Page[types.Signal]{Items: []types.Signal{}, Total: total, Page: page, Limit: limit}
	start, end, hasMore, ok := window(page, limit, total)
	if !ok {
		return out, nil
	}
	items, err := f.lister.ListSignals(ctx, start, end-start)
	if err != nil {
		return Page[types.Signal]{}, fmt.Errorf("list signals: %w", err)
	}
	if len(items) > limit {
		items = items[:limit]
	}
	out.Items = append(out.Items, items...)
	out.HasMore = hasMore
	return out, nil
}

// SliceLister 基于内存切片的 SignalLister。
type SliceLister []types.Signal

func (s SliceLister) CountSignals(context.Context) (int, error) { return len(s), nil }

func (s SliceLister) ListSignals(_ context.Context, offset, limit int) ([]types.Signal, error) {
	if offset < 0 || limit <= 0 || offset >= len(s) {
		return nil, nil
	}
	end := len(s)
	if limit < end-offset {
		end = offset + limit
	}
	return append([]types.Signal(nil), s[offset:end]...), nil
}
