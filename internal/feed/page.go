// Package feed 提供分页读取与前端“加载更多”式的页面累积。
package feed

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidPage = errors.New("invalid page")

// Page 与前端 PaginatedResponse 一致。
type Page[T any] struct {
	Items   []T  `json:"data"`
	Total   int  `json:"total"`
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"hasMore"`
}

func validate(page, limit int) error {
	if page < 1 {
		return fmt.Errorf("%w: page %d", ErrInvalidPage, page)
	}
	if limit <= 0 {
		return fmt.Errorf("%w: limit %d", ErrInvalidPage, limit)
	}
	return nil
}

// Offset 校验页码并返回起始下标。页码从 1 开始，溢出时饱和为 math.MaxInt。
func Offset(page, limit int) (int, error) {
	if err := validate(page, limit); err != nil {
		return 0, err
	}
	if page-1 > math.MaxInt/limit {
		return math.MaxInt, nil
	}
	return (page - 1) * limit, nil
}

// pageCount 即 ceil(total/limit)。
func pageCount(total, limit int) int {
	n := total / limit
	if total%limit != 0 {
		n++
	}
	return n
}

// window 返回第 page 页在 total 条中的 [start, end)；越界页 ok=false。
// 先比较页数再做乘法，page 很大时不会溢出。
func window(page, limit, total int) (start, end int, hasMore, ok bool) {
	pages := pageCount(total, limit)
	if page-1 >= pages {
		return 0, 0, false, false
	}
	start = (page - 1) * limit
	end = total
	if limit < total-start {
		end = start + limit
	}
	return start, end, page < pages, true
}

// Paginate 返回 items[(page-1)*limit : page*limit]，越界页为空且 HasMore=false。
func Paginate[T any](items []T, page, limit int) (Page[T], error) {
	if err := validate(page, limit); err != nil {
		return Page[T]{}, err
	}
	total := len(items)
	out := Page[T]{Items: []T{}, Total: total, Page: page, Limit: limit}
	start, end, hasMore, ok := window(page, limit, total)
	if !ok {
		return out, nil
	}
	out.Items = append(out.Items, items[start:end]...)
	out.HasMore = hasMore
	return out, nil
}
