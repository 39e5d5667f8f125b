// Package httpx builds the HTTP clients used by exchange gateways.
package httpx

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// NewClient returns a client with the given timeout. A non-empty proxyURL
// routes every request through that proxy.
func NewClient(timeout time.Duration, proxyURL string) (*http.Client, error) {
	client := &http.Client{Timeout: timeout}
	proxyURL = strings.TrimSpace(proxyURL)
	if proxyURL == "" {
		return client, nil
	}
	u, err := url.Parse(proxyURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid proxy url %q", proxyURL)
	}
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok || base == nil {
		return nil, fmt.Errorf("http DefaultTransport is not *http.Transport")
	}
	transport := base.Clone()
	transport.Proxy = http.ProxyURL(u)
	client.Transport = transport
	return client, nil
}
