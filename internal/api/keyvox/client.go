package keyvox

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// 接口名
const (
	OpGetUnits         = "getUnits"
	OpGetLockPinList   = "getLockPinList"
	OpCreateLockPin    = "createLockPin"
	OpChangeLockPin    = "changeLockPin"
	OpDisableLockPin   = "disableLockPin"
	OpGetLockPinStatus = "getLockPinStatus"
	OpGetLockStatus    = "getLockStatus"
	OpControlLock      = "controlLock"
)

const (
	// DefaultBaseURL 正式环境
	DefaultBaseURL = "https://eco.blockchainlock.io"

	// DefaultTargetName 创建密码时未指定使用者的占位名
	DefaultTargetName = "テスト太郎"

	// DefaultPinDuration 创建密码时未指定结束时间的有效期
	DefaultPinDuration = 24 * time.Hour
)

// Client Keyvox API 客户端
// 构造后不可修改，可被多个 goroutine 同时使用
type Client struct {
	creds             Credentials
	baseURL           string
	targetHost        string
	defaultTargetName string
	transport         Transport
	logger            *zap.Logger
	now               func() time.Time
}

// Option 客户端选项
type Option func(*Client)

// WithTransport 替换 Transport
func WithTransport(t Transport) Option {
	return func(c *Client) { c.transport = t }
}

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithTargetHost 设置 x-target-host
func WithTargetHost(host string) Option {
	return func(c *Client) { c.targetHost = host }
}

// WithDefaultTargetName 设置默认使用者名
func WithDefaultTargetName(name string) Option {
	return func(c *Client) { c.defaultTargetName = name }
}

// WithClock 设置时钟，用于签名日期和默认开始时间
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient 创建客户端，baseURL 为空时使用正式环境
func NewClient(baseURL string, creds Credentials, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		creds:             creds,
		baseURL:           strings.TrimRight(baseURL, "/"),
		targetHost:        DefaultTargetHost,
		defaultTargetName: DefaultTargetName,
		logger:            zap.NewNop(),
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		c.transport = NewHTTPTransport(30 * time.Second)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// URL 接口完整地址
func (c *Client) URL(op string) string {
	return c.baseURL + APIPathPrefix + op
}

// call 签名、发送并返回原始信封
func (c *Client) call(ctx context.Context, op string, params map[string]interface{}) (*Envelope, error) {
	if params == nil {
		params = map[string]interface{}{}
	}
	body, err := json.Marshal(params)
	if err != nil {
		return nil, &ValidationError{Field: "body", Reason: err.Error()}
	}

	headers := SignWithTarget(c.creds, http.MethodPost, op, body, c.now(), c.targetHost)

	c.logger.Debug("Keyvox request",
		zap.String("op", op),
		zap.String("date", headers.Date),
		zap.Int("body_len", len(body)))

	env, err := c.transport.Post(ctx, c.URL(op), headers, body)
	if err != nil {
		var te *TransportError
		if errors.As(err, &te) {
			return nil, err
		}
		wrapped := &TransportError{Operation: op, Err: err}
		var se *statusError
		if errors.As(err, &se) {
			wrapped.StatusCode = se.status
		}
		c.logger.Warn("Keyvox transport failed", zap.String("op", op), zap.Error(err))
		return nil, wrapped
	}
	if env == nil {
		return nil, &ShapeError{Operation: op, Reason: "missing envelope"}
	}

	if !env.OK() {
		c.logger.Warn("Keyvox api error",
			zap.String("op", op),
			zap.String("code", env.Code),
			zap.String("msg", env.Msg))
	}
	return env, nil
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Reason: "must not be empty"}
	}
	return nil
}

// ListUnits 获取房间列表
func (c *Client) ListUnits(ctx context.Context) ([]Unit, error) {
	env, err := c.call(ctx, OpGetUnits, nil)
	if err != nil {
		return nil, err
	}
	return DecodeUnits(OpGetUnits, env)
}

// ListLockPins 获取锁的密码列表，start/end 可为 nil
func (c *Client) ListLockPins(ctx context.Context, lockID string, start, end *time.Time) ([]LockPin, error) {
	list, err := c.ListLockPinPage(ctx, PinListQuery{LockID: lockID, Start: start, End: end})
	if err != nil {
		return nil, err
	}
	return list.Pins, nil
}

// ListLockPinPage 获取密码列表及分页信息
func (c *Client) ListLockPinPage(ctx context.Context, q PinListQuery) (*PinList, error) {
	if err := required("lockId", q.LockID); err != nil {
		return nil, err
	}

	params := map[string]interface{}{"lockId": q.LockID}
	if q.Start != nil {
		params["sTime"] = EpochSeconds(*q.Start)
	}
	if q.End != nil {
		params["eTime"] = EpochSeconds(*q.End)
	}
	if q.Position != "" {
		params["position"] = q.Position
	}
	if q.Records != "" {
		params["records"] = q.Records
	}

	env, err := c.call(ctx, OpGetLockPinList, params)
	if err != nil {
		return nil, err
	}
	return DecodePinList(OpGetLockPinList, env)
}

// CreateLockPin 创建密码
// 返回值以请求参数为底，覆盖服务端返回的字段
func (c *Client) CreateLockPin(ctx context.Context, req CreatePinRequest) (*LockPin, error) {
	if err := required("unitId", req.UnitID); err != nil {
		return nil, err
	}
	if err := required("pinCode", req.PinCode); err != nil {
		return nil, err
	}

	start := req.Start
	if start.IsZero() {
		start = c.now()
	}
	end := req.End
	if end.IsZero() {
		end = start.Add(DefaultPinDuration)
	}
	targetName := req.TargetName
	if targetName == "" {
		targetName = c.defaultTargetName
	}

	sTime, eTime := EpochSeconds(start), EpochSeconds(end)
	params := map[string]interface{}{
		"unitId":     req.UnitID,
		"pinCode":    req.PinCode,
		"sTime":      sTime,
		"eTime":      eTime,
		"targetName": targetName,
	}

	env, err := c.call(ctx, OpCreateLockPin, params)
	if err != nil {
		return nil, err
	}

	startAt, endAt := FromEpochSeconds(sTime), FromEpochSeconds(eTime)
	base := LockPin{
		UnitID:     req.UnitID,
		PinCode:    req.PinCode,
		TargetName: targetName,
		STime:      &startAt,
		ETime:      &endAt,
	}
	return DecodeLockPin(OpCreateLockPin, env, base)
}

// ChangeLockPin 修改密码，只发送非 nil 字段
func (c *Client) ChangeLockPin(ctx context.Context, req ChangePinRequest) error {
	if err := required("pinId", req.PinID); err != nil {
		return err
	}

	params := map[string]interface{}{"pinId": req.PinID}
	if req.PinCode != nil {
		params["pinCode"] = *req.PinCode
	}
	if req.TargetName != nil {
		params["targetName"] = *req.TargetName
	}
	if req.Start != nil {
		params["sTime"] = EpochSeconds(*req.Start)
	}
	if req.End != nil {
		params["eTime"] = EpochSeconds(*req.End)
	}

	env, err := c.call(ctx, OpChangeLockPin, params)
	if err != nil {
		return err
	}
	return CheckEnvelope(OpChangeLockPin, env)
}

// DeleteLockPin 删除（停用）密码
func (c *Client) DeleteLockPin(ctx context.Context, pinID string) error {
	if err := required("pinId", pinID); err != nil {
		return err
	}

	env, err := c.call(ctx, OpDisableLockPin, map[string]interface{}{"pinId": pinID})
	if err != nil {
		return err
	}
	return CheckEnvelope(OpDisableLockPin, env)
}

// GetLockPinStatus 获取密码状态
func (c *Client) GetLockPinStatus(ctx context.Context, pinID string) (*LockPinStatus, error) {
	if err := required("pinId", pinID); err != nil {
		return nil, err
	}

	env, err := c.call(ctx, OpGetLockPinStatus, map[string]interface{}{"pinId": pinID})
	if err != nil {
		return nil, err
	}
	return DecodeLockPinStatus(OpGetLockPinStatus, env)
}

// GetLockStatus 获取锁状态
func (c *Client) GetLockStatus(ctx context.Context, lockID string) (*LockStatus, error) {
	if err := required("lockId", lockID); err != nil {
		return nil, err
	}

	env, err := c.call(ctx, OpGetLockStatus, map[string]interface{}{"lockId": lockID})
	if err != nil {
		return nil, err
	}
	return DecodeLockStatus(OpGetLockStatus, env)
}

// ControlLock 开锁/上锁，flag 非法时不发起请求
func (c *Client) ControlLock(ctx context.Context, lockID string, flag ControlFlag) error {
	if !flag.Valid() {
		return &ValidationError{Field: "flag", Reason: "must be 0 (lock) or 1 (unlock)"}
	}
	if err := required("lockId", lockID); err != nil {
		return err
	}

	env, err := c.call(ctx, OpControlLock, map[string]interface{}{
		"lockId": lockID,
		"flag":   int(flag),
	})
	if err != nil {
		return err
	}
	return CheckEnvelope(OpControlLock, env)
}
