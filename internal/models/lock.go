package models

import "time"

// LockSnapshot 锁状态轮询记录，字段原样保存
type LockSnapshot struct {
	ID            int64     `json:"id" db:"id"`
	LockID        string    `json:"lock_id" db:"lock_id"`
	PinType       string    `json:"pin_type" db:"pin_type"`
	RelateBattery string    `json:"relate_battery" db:"relate_battery"`
	RelateType    string    `json:"relate_type" db:"relate_type"`
	Battery       string    `json:"battery" db:"battery"`
	Wifi          string    `json:"wifi" db:"wifi"`
	Status        string    `json:"status" db:"status"`
	ReportTime    string    `json:"report_time" db:"report_time"`
	ModuleID      string    `json:"module_id" db:"module_id"`
	RecordedAt    time.Time `json:"recorded_at" db:"recorded_at"`
}

// LockStateRecord 锁状态区间
type LockStateRecord struct {
	ID        int64      `json:"id" db:"id"`
	LockID    string     `json:"lock_id" db:"lock_id"`
	State     string     `json:"state" db:"state"` // unknown, locked, unlocked
	StartTime time.Time  `json:"start_time" db:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty" db:"end_time"`
}
