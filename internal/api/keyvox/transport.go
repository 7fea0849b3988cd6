package keyvox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Transport 发送已签名请求并返回解析后的信封
// 实现不得检查 code/msg
type Transport interface {
	Post(ctx context.Context, url string, headers Headers, body []byte) (*Envelope, error)
}

// HTTPTransport 基于 http.Client 的 Transport，可并发使用
type HTTPTransport struct {
	httpClient *http.Client
}

// NewHTTPTransport 创建 HTTPTransport
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPTransport{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// NewHTTPTransportWithClient 使用自定义 http.Client
func NewHTTPTransportWithClient(httpClient *http.Client) *HTTPTransport {
	return &HTTPTransport{httpClient: httpClient}
}

// Post 发送 POST 请求
func (t *HTTPTransport) Post(ctx context.Context, url string, headers Headers, body []byte) (*Envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	headers.Apply(req.Header)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &statusError{status: resp.StatusCode, err: fmt.Errorf("read response: %w", err)}
	}

	// 状态码不作判断，只要是合法信封就交给解码器
	var env Envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, &statusError{
			status: resp.StatusCode,
			err:    fmt.Errorf("decode response: %w (body=%s)", err, truncate(respBody, 256)),
		}
	}

	return &env, nil
}

// statusError 携带 HTTP 状态码，由 Client 包装为 TransportError
type statusError struct {
	status int
	err    error
}

func (e *statusError) Error() string { return e.err.Error() }

func (e *statusError) Unwrap() error { return e.err }

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
