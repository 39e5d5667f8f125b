package feed

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"cryptocandles/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeSignals(n int) []types.Signal {
	out := make([]types.Signal, n)
	for i := range out {
		out[i] = types.Signal{ID: fmt.Sprintf("sig%d", i+1), Pair: "BTC/USDT", Type: types.SignalBullish}
	}
	return out
}

func ids(items []types.Signal) []string {
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = s.ID
	}
	return out
}

func TestSignalFeedScenario(t *testing.T) {
	feed := NewSignalFeed(SliceLister(makeSignals(12)))
	ctx := context.Background()

	p1, err := feed.LoadPage(ctx, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"sig1", "sig2", "sig3", "sig4", "sig5"}, ids(p1.Items))
	assert.True(t, p1.HasMore)
	assert.Equal(t, 12, p1.Total)

	p2, err := feed.LoadPage(ctx, 2, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"sig6", "sig7", "sig8", "sig9", "sig10"}, ids(p2.Items))
	assert.True(t, p2.HasMore)

	p3, err := feed.LoadPage(ctx, 3, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"sig11", "sig12"}, ids(p3.Items))
	assert.False(t, p3.HasMore)

	p4, err := feed.LoadPage(ctx, 4, 5)
	require.NoError(t, err)
	assert.Empty(t, p4.Items)
	assert.NotNil(t, p4.Items)
	assert.False(t, p4.HasMore)
}

func TestPaginateLengthFormula(t *testing.T) {
	for total := 0; total <= 20; total++ {
		items := make([]int, total)
		for i := range items {
			items[i] = i
		}
		for limit := 1; limit <= 7; limit++ {
			for page := 1; page <= 6; page++ {
				got, err := Paginate(items, page, limit)
				require.NoError(t, err)
				want := total - (page-1)*limit
				if want < 0 {
					want = 0
				}
				if want > limit {
					want = limit
				}
				assert.Len(t, got.Items, want, "total=%d page=%d limit=%d", total, page, limit)
				assert.Equal(t, page*limit < total, got.HasMore, "total=%d page=%d limit=%d", total, page, limit)
				if want > 0 {
					assert.Equal(t, (page-1)*limit, got.Items[0])
				}
			}
		}
	}
}

func TestPaginateRejectsInvalidArgs(t *testing.T) {
	_, err := Paginate([]int{1}, 0, 10)
	assert.ErrorIs(t, err, ErrInvalidPage)
	_, err = Paginate([]int{1}, 1, 0)
	assert.ErrorIs(t, err, ErrInvalidPage)
	_, err = NewSignalFeed(SliceLister(nil)).LoadPage(context.Background(), -1, 10)
	assert.ErrorIs(t, err, ErrInvalidPage)
}

func TestHugePageIsPastEnd(t *testing.T) {
	got, err := Paginate(make([]int, 50), math.MaxInt, 10)
	require.NoError(t, err)
	assert.Empty(t, got.Items)
	assert.False(t, got.HasMore)
	assert.Equal(t, 50, got.Total)

	got, err = Paginate(make([]int, 50), 2, math.MaxInt)
	require.NoError(t, err)
	assert.Empty(t, got.Items)
	assert.False(t, got.HasMore)

	got, err = Paginate(make([]int, 50), 1, math.MaxInt)
	require.NoError(t, err)
	assert.Len(t, got.Items, 50)
	assert.False(t, got.HasMore)

	feed := NewSignalFeed(SliceLister(makeSignals(50)))
	page, err := feed.LoadPage(context.Background(), math.MaxInt, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)
	assert.False(t, page.HasMore)

	page, err = feed.LoadPage(context.Background(), 1, math.MaxInt)
	require.NoError(t, err)
	assert.Len(t, page.Items, 50)
	assert.False(t, page.HasMore)
}

func TestOffsetSaturates(t *testing.T) {
	off, err := Offset(3, 10)
	require.NoError(t, err)
	assert.Equal(t, 20, off)

	off, err = Offset(math.MaxInt, 10)
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt, off)

	_, err = Offset(1, -1)
	assert.ErrorIs(t, err, ErrInvalidPage)
}

func TestSliceListerClampsWindow(t *testing.T) {
	s := SliceLister(makeSignals(12))
	items, err := s.ListSignals(context.Background(), 10, math.MaxInt)
	require.NoError(t, err)
	assert.Equal(t, []string{"sig11", "sig12"}, ids(items))

	items, err = s.ListSignals(context.Background(), -5, 3)
	require.NoError(t, err)
	assert.Empty(t, items)
}

type failingLister struct{}

func (failingLister) CountSignals(context.Context) (int, error) { return 0, errors.New("db closed") }
func (failingLister) ListSignals(context.Context, int, int) ([]types.Signal, error) {
	return nil, errors.New("db closed")
}

func TestSignalFeedPropagatesStoreErrors(t *testing.T) {
	_, err := NewSignalFeed(failingLister{}).LoadPage(context.Background(), 1, 10)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidPage)
}

func TestAccumulatorIsIdempotentAndOrderInsensitive(t *testing.T) {
	feed := NewSignalFeed(SliceLister(makeSignals(12)))
	ctx := context.Background()
	var pages []Page[types.Signal]
	for p := 1; p <= 3; p++ {
		page, err := feed.LoadPage(ctx, p, 5)
		require.NoError(t, err)
		pages = append(pages, page)
	}

	inOrder := NewAccumulator(func(s types.Signal) string { return s.ID })
	for _, p := range pages {
		inOrder.Apply(p)
	}

	shuffled := NewAccumulator(func(s types.Signal) string { return s.ID })
	for _, i := range []int{2, 0, 1, 0, 2} {
		shuffled.Apply(pages[i])
	}

	assert.Equal(t, ids(makeSignals(12)), ids(inOrder.Items()))
	assert.Equal(t, ids(inOrder.Items()), ids(shuffled.Items()))
	assert.False(t, shuffled.HasMore())
	assert.Equal(t, 4, shuffled.NextPage())
}

func TestAccumulatorDedupesShiftedItems(t *testing.T) {
	acc := NewAccumulator(func(s types.Signal) string { return s.ID })
	assert.True(t, acc.HasMore())
	assert.Equal(t, 1, acc.NextPage())

	signals := makeSignals(6)
	acc.Apply(Page[types.Signal]{Items: signals[0:3], Page: 1, Limit: 3, Total: 6, HasMore: true})
	// 翻页期间插入了新条目，第 2 页与第 1 页重叠一条。
	acc.Apply(Page[types.Signal]{Items: signals[2:5], Page: 2, Limit: 3, Total: 7, HasMore: true})
	assert.Equal(t, []string{"sig1", "sig2", "sig3", "sig4", "sig5"}, ids(acc.Items()))
}
