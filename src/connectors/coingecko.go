package connectors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"

	"portfoliotracker/src/externalmodel"
)

const (
	coinGeckoAPIKeyHeader = "x-cg-demo-api-key"

	defaultRetryBaseDelay  = 500 * time.Millisecond
	defaultRetryMaxBackoff = 8 * time.Second
)

var ErrCoinNotFound = errors.New("coin not found on CoinGecko")

// UpstreamError is a non successful answer from CoinGecko.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("coingecko HTTP %d: %s", e.StatusCode, e.Body)
}

type CoinGeckoClient struct {
	apiKey string
	http   *resty.Client
}

func isRetryableResp(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}

	code := r.StatusCode()
	return code >= 500 || code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
}

func NewCoinGeckoClient(apiKey, baseURL string, timeout time.Duration, attempts int) *CoinGeckoClient {
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
		logger.Warnf("No CoinGecko base URL provided, using default: %s", baseURL)
	}
	if attempts < 1 {
		attempts = 1
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(attempts - 1).
		SetRetryWaitTime(defaultRetryBaseDelay).
		SetRetryMaxWaitTime(defaultRetryMaxBackoff).
		AddRetryCondition(isRetryableResp)

	return &CoinGeckoClient{apiKey: apiKey, http: httpClient}
}

// NewCoinGeckoClientFromEnv builds a client from the COINGECKO_* variables.
func NewCoinGeckoClientFromEnv() *CoinGeckoClient {
	config := GetConfig()
	return NewCoinGeckoClient(config.CoinGeckoAPIKey, config.CoinGeckoBaseURL, config.CoinGeckoTimeout, config.RetryAttempts)
}

// GetCoinData fetches the metadata of one coin by its CoinGecko id.
func (c *CoinGeckoClient) GetCoinData(ctx context.Context, coinID string) (*externalmodel.CoinDataResponse, error) {
	coinID = strings.ToLower(strings.TrimSpace(coinID))
	if coinID == "" {
		return nil, ErrCoinNotFound
	}

	req := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(map[string]string{
			"localization":   "false",
			"tickers":        "false",
			"market_data":    "false",
			"community_data": "false",
			"developer_data": "false",
		})
	if c.apiKey != "" {
		req.SetHeader(coinGeckoAPIKeyHeader, c.apiKey)
	}

	resp, err := req.Get("/coins/" + url.PathEscape(coinID))
	if err != nil {
		logger.WithField("coin_id", coinID).WithError(err).Error("CoinGecko request failed")
		return nil, fmt.Errorf("coingecko request: %w", err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, ErrCoinNotFound
	case resp.StatusCode() != http.StatusOK:
		return nil, &UpstreamError{StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}

	var data externalmodel.CoinDataResponse
	if err := json.Unmarshal(resp.Body(), &data); err != nil {
		return nil, fmt.Errorf("decode coin data: %w", err)
	}
	if data.ID == "" {
		return nil, ErrCoinNotFound
	}

	logger.WithFields(logger.Fields{
		"coin_id": data.ID,
		"symbol":  data.Symbol,
	}).Debug("CoinGecko coin data fetched")

	return &data, nil
}
