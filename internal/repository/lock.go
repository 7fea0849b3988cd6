package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/langchou/lockgazer/internal/models"
)

// LockSnapshotRepository 锁状态记录仓库
type LockSnapshotRepository struct {
	db *DB
}

// NewLockSnapshotRepository 创建锁状态记录仓库
func NewLockSnapshotRepository(db *DB) *LockSnapshotRepository {
	return &LockSnapshotRepository{db: db}
}

// Create 写入一条锁状态
func (r *LockSnapshotRepository) Create(ctx context.Context, s *models.LockSnapshot) error {
	query := `
		INSERT INTO lock_snapshots (lock_id, pin_type, relate_battery, relate_type, battery, wifi, status, report_time, module_id, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	err := r.db.Pool.QueryRow(ctx, query,
		s.LockID,
		s.PinType,
		s.RelateBattery,
		s.RelateType,
		s.Battery,
		s.Wifi,
		s.Status,
		s.ReportTime,
		s.ModuleID,
		s.RecordedAt,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("insert lock snapshot: %w", err)
	}
	return nil
}

// ListByLock 获取锁最近的状态记录
func (r *LockSnapshotRepository) ListByLock(ctx context.Context, lockID string, limit int) ([]*models.LockSnapshot, error) {
	query := `
		SELECT id, lock_id, COALESCE(pin_type, ''), COALESCE(relate_battery, ''), COALESCE(relate_type, ''),
		       COALESCE(battery, ''), COALESCE(wifi, ''), COALESCE(status, ''), COALESCE(report_time, ''),
		       COALESCE(module_id, ''), recorded_at
		FROM lock_snapshots
		WHERE lock_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`
	rows, err := r.db.Pool.Query(ctx, query, lockID, limit)
	if err != nil {
		return nil, fmt.Errorf("list lock snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*models.LockSnapshot
	for rows.Next() {
		s := &models.LockSnapshot{}
		if err := rows.Scan(
			&s.ID,
			&s.LockID,
			&s.PinType,
			&s.RelateBattery,
			&s.RelateType,
			&s.Battery,
			&s.Wifi,
			&s.Status,
			&s.ReportTime,
			&s.ModuleID,
			&s.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("scan lock snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}

// LockStateRepository 锁状态区间仓库
type LockStateRepository struct {
	db *DB
}

// NewLockStateRepository 创建锁状态区间仓库
func NewLockStateRepository(db *DB) *LockStateRepository {
	return &LockStateRepository{db: db}
}

// Transition 结束当前区间并开始新区间
func (r *LockStateRepository) Transition(ctx context.Context, lockID, state string, at time.Time) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE lock_states SET end_time = $2 WHERE lock_id = $1 AND end_time IS NULL`,
		lockID, at,
	); err != nil {
		return fmt.Errorf("close lock state: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO lock_states (lock_id, state, start_time) VALUES ($1, $2, $3)`,
		lockID, state, at,
	); err != nil {
		return fmt.Errorf("insert lock state: %w", err)
	}

	return tx.Commit(ctx)
}

// ListByLock 获取锁的状态区间
func (r *LockStateRepository) ListByLock(ctx context.Context, lockID string, limit int) ([]*models.LockStateRecord, error) {
	query := `
		SELECT id, lock_id, state, start_time, end_time
		FROM lock_states
		WHERE lock_id = $1
		ORDER BY start_time DESC
		LIMIT $2
	`
	rows, err := r.db.Pool.Query(ctx, query, lockID, limit)
	if err != nil {
		return nil, fmt.Errorf("list lock states: %w", err)
	}
	defer rows.Close()

	var records []*models.LockStateRecord
	for rows.Next() {
		rec := &models.LockStateRecord{}
		if err := rows.Scan(&rec.ID, &rec.LockID, &rec.State, &rec.StartTime, &rec.EndTime); err != nil {
			return nil, fmt.Errorf("scan lock state: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
