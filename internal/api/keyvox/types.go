package keyvox

import "time"

// Unit 房间/可出租单元
type Unit struct {
	UnitID    string   `json:"unitId"`
	PlaceName string   `json:"placeName"`
	UnitName  string   `json:"unitName"`
	UnitType  *string  `json:"unitType,omitempty"`
	UnitState string   `json:"unitState"`
	PlaceType string   `json:"placeType"`
	LockIDs   []string `json:"lockIds"` // 永远不为 nil
}

// LockPin 密码
type LockPin struct {
	PinID      string     `json:"pinId"`
	ID         *string    `json:"id,omitempty"`
	UnitID     string     `json:"unitId,omitempty"`
	PinCode    string     `json:"pinCode"`
	QRCode     string     `json:"qrCode,omitempty"`
	TargetName string     `json:"targetName,omitempty"`
	STime      *time.Time `json:"sTime,omitempty"` // 有效期开始
	ETime      *time.Time `json:"eTime,omitempty"` // 有效期结束，不校验是否晚于 STime
}

// PinList getLockPinList 返回的分页容器
type PinList struct {
	Position string    `json:"position"`
	Records  string    `json:"records"`
	Pins     []LockPin `json:"pinList"`
}

// LockPinStatus 密码状态，Status 为服务端原样字符串
type LockPinStatus struct {
	PinCode string `json:"pinCode"`
	Status  string `json:"status"`
}

// LockStatus 锁遥测快照，全部字段原样透传
type LockStatus struct {
	PinType       string `json:"pinType"`
	RelateBattery string `json:"relateBattery"`
	RelateType    string `json:"relateType"`
	Battery       string `json:"battery"`
	Wifi          string `json:"wifi"`
	Status        string `json:"status"`
	ReportTime    string `json:"reportTime"`
	ModuleID      string `json:"moduleId"`
}

// ControlFlag 开关锁指令
type ControlFlag int

const (
	FlagLock   ControlFlag = 0
	FlagUnlock ControlFlag = 1
)

// Valid 是否为合法指令
func (f ControlFlag) Valid() bool {
	return f == FlagLock || f == FlagUnlock
}

func (f ControlFlag) String() string {
	switch f {
	case FlagLock:
		return "lock"
	case FlagUnlock:
		return "unlock"
	default:
		return "invalid"
	}
}

// CreatePinRequest 创建密码参数，零值字段使用默认值
type CreatePinRequest struct {
	UnitID     string
	PinCode    string
	Start      time.Time // 默认当前时间
	End        time.Time // 默认 Start + 24h
	TargetName string
}

// ChangePinRequest 修改密码参数，nil 字段不发送
type ChangePinRequest struct {
	PinID      string
	PinCode    *string
	TargetName *string
	Start      *time.Time
	End        *time.Time
}

// PinListQuery 密码列表查询条件
type PinListQuery struct {
	LockID   string
	Start    *time.Time
	End      *time.Time
	Position string // 分页起点，空则不发送
	Records  string // 每页条数，空则不发送
}
