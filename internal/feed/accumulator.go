package feed

import (
	"sort"
	"sync"
)

// Accumulator 按页码合并分页结果；重复或乱序到达的页不会产生重复条目。
type Accumulator[T any] struct {
	mu    sync.Mutex
	key   func(T) string
	pages map[int]Page[T]
}

// NewAccumulator 的 key 用于跨页去重（数据在翻页期间变化时同一条目可能出现在相邻两页）。
func NewAccumulator[T any](key func(T) string) *Accumulator[T] {
	return &Accumulator[T]{key: key, pages: make(map[int]Page[T])}
}

// Apply records p, replacing any earlier response for the same page number.
func (a *Accumulator[T]) Apply(p Page[T]) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pages[p.Page] = p
}

// Items returns the merged items in page order.
func (a *Accumulator[T]) Items() []T {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := []T{}
	seen := make(map[string]struct{})
	for _, n := range a.sortedPages() {
		for _, item := range a.pages[n].Items {
			if a.key != nil {
				k := a.key(item)
				if _, dup := seen[k]; dup {
					continue
				}
				seen[k] = struct{}{}
			}
			out = append(out, item)
		}
	}
	return out
}

// HasMore 以已到达的最大页码为准。
func (a *Accumulator[T]) HasMore() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	pages := a.sortedPages()
	if len(pages) == 0 {
		return true
	}
	return a.pages[pages[len(pages)-1]].HasMore
}

// NextPage 返回下一次应请求的页码。
func (a *Accumulator[T]) NextPage() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	pages := a.sortedPages()
	if len(pages) == 0 {
		return 1
	}
	return pages[len(pages)-1] + 1
}

func (a *Accumulator[T]) sortedPages() []int {
	out := make([]int, 0, len(a.pages))
	for n := range a.pages {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}
