package keyvox

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	successCode = "0"
	successMsg  = "success"
)

// Envelope 通用响应结构 {code, msg, data}
type Envelope struct {
	Code string
	Msg  string
	Data json.RawMessage // 按接口不同形状不同
}

// UnmarshalJSON code/msg 可能为数字
func (e *Envelope) UnmarshalJSON(b []byte) error {
	var raw struct {
		Code flexString      `json:"code"`
		Msg  flexString      `json:"msg"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	e.Code = string(raw.Code)
	e.Msg = string(raw.Msg)
	e.Data = raw.Data
	return nil
}

// OK 信封是否表示成功
func (e *Envelope) OK() bool {
	return e.Code == successCode && e.Msg == successMsg
}

// CheckEnvelope 校验 code/msg，失败时携带服务端 msg 原文
func CheckEnvelope(op string, env *Envelope) error {
	if env == nil {
		return &ShapeError{Operation: op, Reason: "missing envelope"}
	}
	if !env.OK() {
		return &APIError{Operation: op, Code: env.Code, Msg: env.Msg}
	}
	return nil
}

// flexString 兼容字符串、数字、布尔，其它类型视为空
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}
	switch b[0] {
	case '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
	case 'n':
		*s = ""
	case '{', '[':
		// 未知结构，丢弃
		*s = ""
	default:
		// 数字或布尔，保留原文
		*s = flexString(b)
	}
	return nil
}

func optString(s *flexString) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

func strOf(s *flexString) string {
	if s == nil {
		return ""
	}
	return string(*s)
}

// int64 可表示的秒数范围
const (
	minEpochSeconds = -(1 << 63)
	maxEpochSeconds = 1 << 63
)

// epochSeconds 秒级时间戳，数字或数字字符串
type epochSeconds struct {
	Time  time.Time
	Valid bool
}

func (e *epochSeconds) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}

	text := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &text); err != nil {
			return err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return nil
		}
	}

	sec, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(text, 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < minEpochSeconds || f >= maxEpochSeconds {
			return fmt.Errorf("invalid epoch seconds %q", text)
		}
		sec = int64(f)
	}

	e.Time = FromEpochSeconds(sec)
	e.Valid = true
	return nil
}

func (e epochSeconds) ptr() *time.Time {
	if !e.Valid {
		return nil
	}
	t := e.Time
	return &t
}

// FromEpochSeconds 秒级时间戳转本地时间
func FromEpochSeconds(sec int64) time.Time {
	return time.Unix(sec, 0)
}

// EpochSeconds 本地时间转秒级时间戳，用于请求体
func EpochSeconds(t time.Time) int64 {
	return t.Unix()
}

// lockIDList 逗号分隔的锁 ID，也接受数组
type lockIDList []string

func (l *lockIDList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*l = lockIDList{}
		return nil
	}
	if b[0] == '[' {
		var items []flexString
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		out := make(lockIDList, 0, len(items))
		for _, item := range items {
			out = append(out, string(item))
		}
		*l = out
		return nil
	}

	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	*l = SplitLockIDs(string(s))
	return nil
}

// SplitLockIDs 拆分 lockIds，空字符串返回空切片
func SplitLockIDs(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}

type wireUnit struct {
	UnitID    *flexString `json:"unitId"`
	PlaceName *flexString `json:"placeName"`
	UnitName  *flexString `json:"unitName"`
	UnitType  *flexString `json:"unitType"`
	UnitState *flexString `json:"unitState"`
	PlaceType *flexString `json:"placeType"`
	LockIDs   lockIDList  `json:"lockIds"`
}

func (w wireUnit) toUnit() Unit {
	ids := []string(w.LockIDs)
	if ids == nil {
		ids = []string{}
	}
	return Unit{
		UnitID:    strOf(w.UnitID),
		PlaceName: strOf(w.PlaceName),
		UnitName:  strOf(w.UnitName),
		UnitType:  optString(w.UnitType),
		UnitState: strOf(w.UnitState),
		PlaceType: strOf(w.PlaceType),
		LockIDs:   ids,
	}
}

type wirePin struct {
	ID         *flexString  `json:"id"`
	PinID      *flexString  `json:"pinId"`
	UnitID     *flexString  `json:"unitId"`
	PinCode    *flexString  `json:"pinCode"`
	QRCode     *flexString  `json:"qrCode"`
	TargetName *flexString  `json:"targetName"`
	STime      epochSeconds `json:"sTime"`
	ETime      epochSeconds `json:"eTime"`
}

func (w wirePin) toLockPin() LockPin {
	return LockPin{
		PinID:      strOf(w.PinID),
		ID:         optString(w.ID),
		UnitID:     strOf(w.UnitID),
		PinCode:    strOf(w.PinCode),
		QRCode:     strOf(w.QRCode),
		TargetName: strOf(w.TargetName),
		STime:      w.STime.ptr(),
		ETime:      w.ETime.ptr(),
	}
}

// mergeInto 仅覆盖服务端返回的字段
func (w wirePin) mergeInto(pin *LockPin) {
	if w.PinID != nil {
		pin.PinID = string(*w.PinID)
	}
	if w.ID != nil {
		pin.ID = optString(w.ID)
	}
	if w.UnitID != nil {
		pin.UnitID = string(*w.UnitID)
	}
	if w.PinCode != nil {
		pin.PinCode = string(*w.PinCode)
	}
	if w.QRCode != nil {
		pin.QRCode = string(*w.QRCode)
	}
	if w.TargetName != nil {
		pin.TargetName = string(*w.TargetName)
	}
	if w.STime.Valid {
		pin.STime = w.STime.ptr()
	}
	if w.ETime.Valid {
		pin.ETime = w.ETime.ptr()
	}
}

type wirePinList struct {
	Position flexString      `json:"position"`
	Records  flexString      `json:"records"`
	PinList  json.RawMessage `json:"pinList"`
}

type wirePinStatus struct {
	PinCode flexString `json:"pinCode"`
	Status  flexString `json:"status"`
}

type wireLockStatus struct {
	PinType       flexString `json:"pinType"`
	RelateBattery flexString `json:"relateBattery"`
	RelateType    flexString `json:"relateType"`
	Battery       flexString `json:"battery"`
	Wifi          flexString `json:"wifi"`
	Status        flexString `json:"status"`
	ReportTime    flexString `json:"reportTime"`
	ModuleID      flexString `json:"moduleId"`
}

// jsonKind 返回首个非空白字符，缺失或 null 返回 0
func jsonKind(raw json.RawMessage) byte {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0
	}
	return raw[0]
}

func expectArray(op, field string, raw json.RawMessage) error {
	switch jsonKind(raw) {
	case '[':
		return nil
	case 0:
		return &ShapeError{Operation: op, Reason: field + " is missing"}
	default:
		return &ShapeError{Operation: op, Reason: field + " is not a list"}
	}
}

func expectObject(op, field string, raw json.RawMessage) error {
	switch jsonKind(raw) {
	case '{':
		return nil
	case 0:
		return &ShapeError{Operation: op, Reason: field + " is missing"}
	default:
		return &ShapeError{Operation: op, Reason: field + " is not an object"}
	}
}

func unmarshalShape(op string, raw json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return &ShapeError{Operation: op, Reason: err.Error()}
	}
	return nil
}

// decodeObject 校验信封与 data 为对象后解码
func decodeObject[T any](op string, env *Envelope) (*T, error) {
	if err := CheckEnvelope(op, env); err != nil {
		return nil, err
	}
	if err := expectObject(op, "data", env.Data); err != nil {
		return nil, err
	}
	var v T
	if err := unmarshalShape(op, env.Data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// DecodeUnits 解码 getUnits
func DecodeUnits(op string, env *Envelope) ([]Unit, error) {
	if err := CheckEnvelope(op, env); err != nil {
		return nil, err
	}
	if err := expectArray(op, "data", env.Data); err != nil {
		return nil, err
	}

	var wires []wireUnit
	if err := unmarshalShape(op, env.Data, &wires); err != nil {
		return nil, err
	}

	units := make([]Unit, 0, len(wires))
	for _, w := range wires {
		units = append(units, w.toUnit())
	}
	return units, nil
}

// DecodePinList 解码 getLockPinList，data 必须包含 pinList
func DecodePinList(op string, env *Envelope) (*PinList, error) {
	wire, err := decodeObject[wirePinList](op, env)
	if err != nil {
		return nil, err
	}
	if err := expectArray(op, "data.pinList", wire.PinList); err != nil {
		return nil, err
	}

	var pins []wirePin
	if err := unmarshalShape(op, wire.PinList, &pins); err != nil {
		return nil, err
	}

	list := &PinList{
		Position: string(wire.Position),
		Records:  string(wire.Records),
		Pins:     make([]LockPin, 0, len(pins)),
	}
	for _, p := range pins {
		list.Pins = append(list.Pins, p.toLockPin())
	}
	return list, nil
}

// DecodeLockPin 解码单个密码对象，并合并到 base 之上
func DecodeLockPin(op string, env *Envelope, base LockPin) (*LockPin, error) {
	wire, err := decodeObject[wirePin](op, env)
	if err != nil {
		return nil, err
	}
	pin := base
	wire.mergeInto(&pin)
	return &pin, nil
}

// DecodeLockPinStatus 解码 getLockPinStatus
func DecodeLockPinStatus(op string, env *Envelope) (*LockPinStatus, error) {
	wire, err := decodeObject[wirePinStatus](op, env)
	if err != nil {
		return nil, err
	}
	return &LockPinStatus{
		PinCode: string(wire.PinCode),
		Status:  string(wire.Status),
	}, nil
}

// DecodeLockStatus 解码 getLockStatus
func DecodeLockStatus(op string, env *Envelope) (*LockStatus, error) {
	wire, err := decodeObject[wireLockStatus](op, env)
	if err != nil {
		return nil, err
	}
	return &LockStatus{
		PinType:       string(wire.PinType),
		RelateBattery: string(wire.RelateBattery),
		RelateType:    string(wire.RelateType),
		Battery:       string(wire.Battery),
		Wifi:          string(wire.Wifi),
		Status:        string(wire.Status),
		ReportTime:    string(wire.ReportTime),
		ModuleID:      string(wire.ModuleID),
	}, nil
}
