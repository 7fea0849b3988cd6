package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/langchou/lockgazer/internal/models"
)

// PinEventRepository 操作审计仓库
type PinEventRepository struct {
	db *DB
}

// NewPinEventRepository 创建审计仓库
func NewPinEventRepository(db *DB) *PinEventRepository {
	return &PinEventRepository{db: db}
}

// Create 写入审计记录
func (r *PinEventRepository) Create(ctx context.Context, e *models.PinEvent) error {
	query := `
		INSERT INTO pin_events (request_id, action, lock_id, unit_id, pin_id, detail, success, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	err := r.db.Pool.QueryRow(ctx, query,
		e.RequestID,
		e.Action,
		e.LockID,
		e.UnitID,
		e.PinID,
		e.Detail,
		e.Success,
		e.Error,
		e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("insert pin event: %w", err)
	}
	return nil
}

// List 获取最近的审计记录，pinID 为空时不过滤
func (r *PinEventRepository) List(ctx context.Context, pinID string, limit int) ([]*models.PinEvent, error) {
	query := `
		SELECT id, request_id, action, COALESCE(lock_id, ''), COALESCE(unit_id, ''), COALESCE(pin_id, ''),
		       COALESCE(detail, ''), success, COALESCE(error, ''), created_at
		FROM pin_events
		WHERE ($1::text = '' OR pin_id = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Pool.Query(ctx, query, pinID, limit)
	if err != nil {
		return nil, fmt.Errorf("list pin events: %w", err)
	}
	defer rows.Close()

	var events []*models.PinEvent
	for rows.Next() {
		e := &models.PinEvent{}
		if err := rows.Scan(
			&e.ID,
			&e.RequestID,
			&e.Action,
			&e.LockID,
			&e.UnitID,
			&e.PinID,
			&e.Detail,
			&e.Success,
			&e.Error,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan pin event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
