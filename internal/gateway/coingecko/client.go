// Package coingecko 实现 market.PriceSource，对接 CoinGecko 公共 API。
package coingecko

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cryptocandles/internal/market"

	"github.com/tidwall/gjson"
)

const (
	defaultBaseURL = "https://api.coingecko.com/api/v3"
	// 单次响应体上限，防止异常上游撑爆内存。
	maxBodyBytes = 1 << 20
)

type Config struct {
	BaseURL     string
	HTTPTimeout time.Duration
}

type Client struct {
	baseURL string
	client  *http.Client
}

func New(cfg Config) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{baseURL: base, client: &http.Client{Timeout: timeout}}
}

// Quotes 调用 /coins/markets，按市值排序返回。任一条目缺失价格即视为整体无效。
func (c *Client) Quotes(ctx context.Context, ids []string) ([]market.Quote, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("coingecko markets: ids required")
	}
	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("ids", strings.Join(ids, ","))
	q.Set("order", "market_cap_desc")
	q.Set("per_page", fmt.Sprint(len(ids)))
	q.Set("page", "1")
	q.Set("sparkline", "false")
	q.Set("price_change_percentage", "24h")
	body, err := c.get(ctx, "/coins/markets", q)
	if err != nil {
		return nil, fmt.Errorf("coingecko markets: %w", err)
	}
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return nil, fmt.Errorf("coingecko markets: payload is not an array")
	}
	items := root.Array()
	if len(items) == 0 {
		return nil, fmt.Errorf("coingecko markets: empty payload")
	}
	out := make([]market.Quote, 0, len(items))
	for i, item := range items {
		price := item.Get("current_price")
		if price.Type != gjson.Number {
			return nil, fmt.Errorf("coingecko markets: item %d has no numeric current_price", i)
		}
		quote := market.Quote{
			ID:          item.Get("id").String(),
			Symbol:      item.Get("symbol").String(),
			Name:        item.Get("name").String(),
			Price:       price.Float(),
			Change24hPc: item.Get("price_change_percentage_24h").Float(),
			Image:       item.Get("image").String(),
		}
		if !quote.Valid() {
			return nil, fmt.Errorf("coingecko markets: item %d (%s) invalid", i, quote.ID)
		}
		out = append(out, quote)
	}
	return out, nil
}

// SpotPrice 调用 /simple/price 读取 <id>.usd。
func (c *Client) SpotPrice(ctx context.Context, id string) (float64, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return 0, fmt.Errorf("coingecko simple price: id required")
	}
	q := url.Values{}
	q.Set("ids", id)
	q.Set("vs_currencies", "usd")
	body, err := c.get(ctx, "/simple/price", q)
	if err != nil {
		return 0, fmt.Errorf("coingecko simple price: %w", err)
	}
	res := gjson.GetBytes(body, escapePath(id)+".usd")
	if res.Type != gjson.Number {
		return 0, fmt.Errorf("coingecko simple price: no usd price for %s", id)
	}
	price := res.Float()
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 0, fmt.Errorf("coingecko simple price: invalid price %v for %s", price, id)
	}
	return price, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid json payload")
	}
	return body, nil
}

func escapePath(key string) string {
	r := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`, "|", `\|`, "#", `\#`, "@", `\@`)
	return r.Replace(key)
}
