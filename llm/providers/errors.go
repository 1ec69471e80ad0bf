package providers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/BaSui01/agentcore/types"
)

// maxErrorBody 错误响应体最多读取的字节数
const maxErrorBody = 64 << 10

var contextTooLongHints = []string{"context length", "maximum context", "too many tokens", "prompt is too long"}

// MapHTTPError 把 HTTP 状态码映射为 types.Error，并按状态标记是否可重试
func MapHTTPError(status int, msg, provider string) *types.Error {
	var e *types.Error
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e = types.NewError(types.ErrProviderUnavailable, msg)
	case status == http.StatusTooManyRequests:
		e = types.NewError(types.ErrRateLimited, msg).WithRetryable(true)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		e = types.NewError(types.ErrTimeout, msg).WithRetryable(true)
	case status == http.StatusBadRequest || status == http.StatusRequestEntityTooLarge:
		code := types.ErrInvalidInput
		lower := strings.ToLower(msg)
		for _, hint := range contextTooLongHints {
			if strings.Contains(lower, hint) {
				code = types.ErrContextTooLong
				break
			}
		}
		e = types.NewError(code, msg)
	default:
		// 529 为 Anthropic 的过载状态
		e = types.NewError(types.ErrUpstreamError, msg).WithRetryable(status >= 500)
	}
	return e.WithProvider(provider)
}

// TransportError 连接失败、超时等网络错误一律可重试
func TransportError(err error, provider string) *types.Error {
	return types.NewError(types.ErrUpstreamError, err.Error()).
		WithCause(err).
		WithRetryable(true).
		WithProvider(provider)
}

// errorMessage 依次尝试 {"error":{"message","type"}}、{"error":"..."}，都不匹配时返回原文
func errorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil {
		return "failed to read error response"
	}

	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(data, &envelope) == nil && len(envelope.Error) > 0 {
		var detailed struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		}
		if json.Unmarshal(envelope.Error, &detailed) == nil && detailed.Message != "" {
			if detailed.Type != "" {
				return detailed.Message + " (type: " + detailed.Type + ")"
			}
			return detailed.Message
		}
		var plain string
		if json.Unmarshal(envelope.Error, &plain) == nil && plain != "" {
			return plain
		}
	}
	return strings.TrimSpace(string(data))
}
