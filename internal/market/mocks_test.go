package market

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type mockCandleSource struct {
	mock.Mock
}

func (m *mockCandleSource) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]Candle, error) {
	args := m.Called(ctx, symbol, interval, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Candle), args.Error(1)
}

type mockPriceSource struct {
	mock.Mock
}

func (m *mockPriceSource) Quotes(ctx context.Context, ids []string) ([]Quote, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Quote), args.Error(1)
}

func (m *mockPriceSource) SpotPrice(ctx context.Context, id string) (float64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(float64), args.Error(1)
}
