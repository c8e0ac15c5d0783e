// Package sina adapts the Sina Finance quote and financial-report services.
package sina

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/wonny/marketlens/internal/provider"
	"github.com/wonny/marketlens/pkg/config"
	"github.com/wonny/marketlens/pkg/httputil"
	"github.com/wonny/marketlens/pkg/logger"
)

// Name identifies this provider in logs, errors and provenance
const Name = "sina"

// Client handles communication with Sina Finance
// ⭐ SSOT: Sina Finance 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	financeURL string
	now        func() time.Time
}

// NewClient creates a new Sina client
func NewClient(httpClient *httputil.Client, cfg *config.Config, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.Component(Name),
		baseURL:    cfg.Providers.SinaBaseURL,
		financeURL: cfg.Providers.SinaFinanceURL,
		now:        time.Now,
	}
}

// Name implements the provider source interfaces
func (c *Client) Name() string {
	return Name
}

var headers = map[string]string{
	"Referer": "https://finance.sina.com.cn/",
}

// fetchText fetches an endpoint and decodes GBK bodies to UTF-8
func (c *Client) fetchText(ctx context.Context, base, path string, params url.Values) (string, error) {
	fullURL := base + path
	if len(params) > 0 {
		fullURL = fmt.Sprintf("%s?%s", fullURL, params.Encode())
	}

	body, err := c.httpClient.GetBytes(ctx, fullURL, headers)
	if err != nil {
		return "", err
	}
	return provider.DecodeGBK(body), nil
}
