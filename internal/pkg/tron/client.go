package tron

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultFullHost = "https://api.trongrid.io"
	apiKeyHeader    = "TRON-PRO-API-KEY"
	maxErrorBody    = 200
)

// ErrProvider 上游链索引服务不可用或返回错误
var ErrProvider = errors.New("tron provider error")

// ProviderError 携带上游状态码和响应内容
type ProviderError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("TronGrid error %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("TronGrid request failed: %v", e.Err)
}

func (e *ProviderError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrProvider, e.Err}
	}
	return []error{ErrProvider}
}

// Client TronGrid 只读客户端
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(fullHost, apiKey string, timeout time.Duration) *Client {
	if fullHost == "" {
		fullHost = DefaultFullHost
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(fullHost, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ProviderError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body := string(data)
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, &ProviderError{StatusCode: resp.StatusCode, Body: body}
	}

	return data, nil
}

// FetchRecentTransfers 查询转入 address 的最近 limit 笔已确认 TRC20 转账
func (c *Client) FetchRecentTransfers(ctx context.Context, address, contract string, limit int) ([]Transfer, error) {
	if !IsValidAddress(address) {
		return nil, fmt.Errorf("invalid tron address %q", address)
	}
	if limit <= 0 {
		limit = 50
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("contract_address", contract)
	query.Set("only_to", "true")
	query.Set("only_confirmed", "true")

	data, err := c.get(ctx, "/v1/accounts/"+address+"/transactions/trc20", query)
	if err != nil {
		return nil, err
	}

	var resp transfersResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &ProviderError{Err: fmt.Errorf("unmarshal transfers: %w", err)}
	}
	if len(resp.Data) > limit {
		resp.Data = resp.Data[:limit]
	}
	return resp.Data, nil
}
