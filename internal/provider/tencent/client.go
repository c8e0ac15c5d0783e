// Package tencent adapts the Tencent (gtimg) quote services.
package tencent

import (
	"context"
	"fmt"
	"net/url"

	"github.com/wonny/marketlens/pkg/config"
	"github.com/wonny/marketlens/pkg/httputil"
	"github.com/wonny/marketlens/pkg/logger"
)

// Name identifies this provider in logs, errors and provenance
const Name = "tencent"

// Client handles communication with Tencent
// ⭐ SSOT: Tencent API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	quoteURL   string
}

// NewClient creates a new Tencent client
func NewClient(httpClient *httputil.Client, cfg *config.Config, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.Component(Name),
		baseURL:    cfg.Providers.TencentBaseURL,
		quoteURL:   cfg.Providers.TencentQuoteURL,
	}
}

// Name implements the provider source interfaces
func (c *Client) Name() string {
	return Name
}

var headers = map[string]string{
	"Referer": "https://gu.qq.com/",
}

func (c *Client) fetch(ctx context.Context, base, path string, params url.Values) ([]byte, error) {
	fullURL := base + path
	if len(params) > 0 {
		fullURL = fmt.Sprintf("%s?%s", fullURL, params.Encode())
	}
	return c.httpClient.GetBytes(ctx, fullURL, headers)
}
