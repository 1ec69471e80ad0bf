package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/agentcore/types"
)

// Client 模型与嵌入适配器共用的 JSON over HTTP 客户端
type Client struct {
	name    string
	baseURL string
	http    *http.Client
	auth    func(http.Header)
}

// NewClient timeout 为 0 时使用 60s；auth 可为 nil
func NewClient(name, baseURL string, timeout time.Duration, auth func(http.Header)) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		auth:    auth,
	}
}

func (c *Client) Name() string    { return c.name }
func (c *Client) BaseURL() string { return c.baseURL }

// PostJSON 发送 in 并把 2xx 响应解码到 out。
// 所有失败都以 *types.Error 返回，Provider 字段为 c.Name()。
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return types.NewError(types.ErrInvalidInput, "encode request").WithCause(err).WithProvider(c.name)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return types.NewError(types.ErrConfiguration, "build request").WithCause(err).WithProvider(c.name)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.auth != nil {
		c.auth(req.Header)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return TransportError(err, c.name)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return MapHTTPError(resp.StatusCode, errorMessage(resp.Body), c.name)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return types.NewError(types.ErrUpstreamError, "decode response").
			WithCause(err).
			WithRetryable(true).
			WithProvider(c.name)
	}
	return nil
}

// Bearer 设置 Authorization: Bearer <key>，key 为空时不设置
func Bearer(key string) func(http.Header) {
	return func(h http.Header) {
		if key != "" {
			h.Set("Authorization", "Bearer "+key)
		}
	}
}

// ModelOr 返回第一个非空的模型名
func ModelOr(candidates ...string) string {
	for _, m := range candidates {
		if m != "" {
			return m
		}
	}
	return ""
}
