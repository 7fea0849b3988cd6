package keyvox

import (
	"errors"
	"fmt"
)

// 错误类别，可用 errors.Is 判断
var (
	ErrTransport  = errors.New("keyvox: transport error")
	ErrAPI        = errors.New("keyvox: api error")
	ErrShape      = errors.New("keyvox: unexpected response shape")
	ErrValidation = errors.New("keyvox: invalid argument")
)

// TransportError 连接失败、超时或响应不是 JSON
type TransportError struct {
	Operation  string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("keyvox %s: transport: status=%d: %v", e.Operation, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("keyvox %s: transport: %v", e.Operation, e.Err)
}

func (e *TransportError) Unwrap() []error { return []error{ErrTransport, e.Err} }

// APIError 信封 code/msg 不是成功值，Msg 为服务端原文
type APIError struct {
	Operation string
	Code      string
	Msg       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("keyvox %s: api error: %s (code: %s)", e.Operation, e.Msg, e.Code)
}

func (e *APIError) Unwrap() error { return ErrAPI }

// ShapeError data 缺失或类型不符
type ShapeError struct {
	Operation string
	Reason    string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("keyvox %s: unexpected response shape: %s", e.Operation, e.Reason)
}

func (e *ShapeError) Unwrap() error { return ErrShape }

// ValidationError 调用参数不合法，发生在网络请求之前
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("keyvox: invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
