package models

import "time"

// 操作类型
const (
	ActionCreatePin   = "create_pin"
	ActionChangePin   = "change_pin"
	ActionDeletePin   = "delete_pin"
	ActionControlLock = "control_lock"
)

// PinEvent 密码/开关锁操作审计记录
type PinEvent struct {
	ID        int64     `json:"id" db:"id"`
	RequestID string    `json:"request_id" db:"request_id"`
	Action    string    `json:"action" db:"action"`
	LockID    string    `json:"lock_id,omitempty" db:"lock_id"`
	UnitID    string    `json:"unit_id,omitempty" db:"unit_id"`
	PinID     string    `json:"pin_id,omitempty" db:"pin_id"`
	Detail    string    `json:"detail,omitempty" db:"detail"`
	Success   bool      `json:"success" db:"success"`
	Error     string    `json:"error,omitempty" db:"error"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
