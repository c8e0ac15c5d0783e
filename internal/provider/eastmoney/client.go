// Package eastmoney adapts the EastMoney push2 quote services.
package eastmoney

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/wonny/marketlens/pkg/config"
	"github.com/wonny/marketlens/pkg/httputil"
	"github.com/wonny/marketlens/pkg/logger"
)

// Name identifies this provider in logs, errors and provenance
const Name = "eastmoney"

// Client handles communication with EastMoney
// ⭐ SSOT: EastMoney API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	hisURL     string
	now        func() time.Time
}

// NewClient creates a new EastMoney client
func NewClient(httpClient *httputil.Client, cfg *config.Config, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.Component(Name),
		baseURL:    cfg.Providers.EastMoneyBaseURL,
		hisURL:     cfg.Providers.EastMoneyHisURL,
		now:        time.Now,
	}
}

// Name implements the provider source interfaces
func (c *Client) Name() string {
	return Name
}

var headers = map[string]string{
	"Referer": "https://quote.eastmoney.com/",
}

// fetchJSON fetches an endpoint and checks the rc envelope
func (c *Client) fetchJSON(ctx context.Context, base, path string, params url.Values) (gjson.Result, error) {
	fullURL := fmt.Sprintf("%s%s?%s", base, path, params.Encode())

	body, err := c.httpClient.GetBytes(ctx, fullURL, headers)
	if err != nil {
		return gjson.Result{}, err
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("invalid JSON from %s", path)
	}

	doc := gjson.ParseBytes(body)
	if rc := doc.Get("rc"); rc.Exists() && rc.Int() != 0 {
		return gjson.Result{}, fmt.Errorf("rc=%d from %s", rc.Int(), path)
	}
	return doc, nil
}
