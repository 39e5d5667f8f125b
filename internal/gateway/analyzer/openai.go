package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cryptocandles/internal/logger"
	"cryptocandles/internal/pkg/text"
)

// ErrUpstream 表示模型服务调用失败（网络、非 2xx、空响应）。
var ErrUpstream = errors.New("analysis upstream failed")

// OpenAIChatClient 兼容 OpenAI 协议的 /chat/completions 客户端（Gemini、OpenAI、Qwen 等均可）。
type OpenAIChatClient struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	// 仅对 429/5xx 重试；0 表示默认 1 次。
	MaxRetries   int
	ExtraHeaders map[string]string
	HTTPClient   *http.Client
}

func (c *OpenAIChatClient) ID() string { return c.Model }

func (c *OpenAIChatClient) endpoint() string {
	url := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if url == "" {
		url = "https://api.openai.com/v1"
	}
	url = strings.TrimSuffix(url, "/chat/completions")
	return url + "/chat/completions"
}

type chatContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

func (c *OpenAIChatClient) buildBody(payload ChatPayload) ([]byte, error) {
	messages := make([]chatMessage, 0, 2)
	if s := strings.TrimSpace(payload.System); s != "" {
		messages = append(messages, chatMessage{Role: "system", Content: s})
	}
	parts := make([]chatContentPart, 0, len(payload.Images)+1)
	for _, img := range payload.Images {
		if img.Description != "" {
			parts = append(parts, chatContentPart{Type: "text", Text: img.Description})
		}
		parts = append(parts, chatContentPart{Type: "image_url", ImageURL: &chatImageURL{URL: img.DataURI}})
	}
	parts = append(parts, chatContentPart{Type: "text", Text: payload.User})
	messages = append(messages, chatMessage{Role: "user", Content: parts})

	body := map[string]any{"model": c.Model, "messages": messages, "temperature": 0.2}
	if payload.MaxTokens > 0 {
		body["max_tokens"] = payload.MaxTokens
	}
	if payload.ExpectJSON {
		body["response_format"] = map[string]string{"type": "json_object"}
	}
	return json.Marshal(body)
}

// Call 发送请求并返回第一条 choice 的文本内容。
func (c *OpenAIChatClient) Call(ctx context.Context, payload ChatPayload) (string, error) {
	b, err := c.buildBody(payload)
	if err != nil {
		return "", err
	}
	httpc := c.HTTPClient
	if httpc == nil {
		timeout := c.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpc = &http.Client{Timeout: timeout}
	}
	maxRetries := c.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}
	url := c.endpoint()
	logger.Debugf("[AI] POST %s model=%s images=%d body_bytes=%d key=%s", url, c.Model, len(payload.Images), len(b), maskKey(c.APIKey))

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		content, retryAfter, err := c.doOnce(ctx, httpc, url, b)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if retryAfter < 0 || attempt == maxRetries {
			break
		}
		timer := time.NewTimer(retryAfter)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", fmt.Errorf("%w: %w", ErrUpstream, ctx.Err())
		case <-timer.C:
		}
	}
	return "", fmt.Errorf("%w: %w", ErrUpstream, lastErr)
}

// doOnce 返回的 retryAfter < 0 表示不可重试。
func (c *OpenAIChatClient) doOnce(ctx context.Context, httpc *http.Client, url string, body []byte) (string, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", -1, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	for k, v := range c.ExtraHeaders {
		req.Header.Set(k, v)
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return "", -1, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", -1, err
	}
	if resp.StatusCode/100 == 2 {
		var r struct {
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		}
		if err := json.Unmarshal(raw, &r); err != nil {
			return "", -1, fmt.Errorf("decode completion: %w", err)
		}
		if len(r.Choices) == 0 || strings.TrimSpace(r.Choices[0].Message.Content) == "" {
			return "", -1, fmt.Errorf("empty choices")
		}
		return r.Choices[0].Message.Content, 0, nil
	}

	var eresp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	_ = json.Unmarshal(raw, &eresp)
	msg := strings.TrimSpace(eresp.Error.Message)
	if msg == "" {
		msg = text.Truncate(strings.TrimSpace(string(raw)), 200)
	}
	if msg == "" {
		msg = resp.Status
	}
	err = fmt.Errorf("status=%d: %s", resp.StatusCode, msg)
	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		wait := 800 * time.Millisecond
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, perr := strconv.Atoi(ra); perr == nil && secs >= 0 {
				wait = time.Duration(secs) * time.Second
			}
		}
		if wait > 8*time.Second {
			wait = 8 * time.Second
		}
		return "", wait, err
	default:
		return "", -1, err
	}
}

func maskKey(key string) string {
	if key == "" {
		return "-"
	}
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
