package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB 数据库连接池封装
type DB struct {
	Pool *pgxpool.Pool
}

// New 创建数据库连接
func New(ctx context.Context, databaseURL string) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	// 连接池配置
	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// 测试连接
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close 关闭连接池
func (db *DB) Close() {
	db.Pool.Close()
}

// Migrate 执行数据库迁移
func (db *DB) Migrate(ctx context.Context) error {
	migrations := []string{
		migrationCreatePinEvents,
		migrationCreateLockSnapshots,
		migrationCreateLockStates,
	}

	for _, m := range migrations {
		if _, err := db.Pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("execute migration: %w", err)
		}
	}

	return nil
}

// 数据库迁移 SQL
const migrationCreatePinEvents = `
CREATE TABLE IF NOT EXISTS pin_events (
    id BIGSERIAL PRIMARY KEY,
    request_id VARCHAR(36) NOT NULL,
    action VARCHAR(32) NOT NULL,
    lock_id VARCHAR(64),
    unit_id VARCHAR(64),
    pin_id VARCHAR(64),
    detail TEXT,
    success BOOLEAN NOT NULL,
    error TEXT,
    created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_pin_events_pin_id ON pin_events(pin_id);
CREATE INDEX IF NOT EXISTS idx_pin_events_created_at ON pin_events(created_at);
`

const migrationCreateLockSnapshots = `
CREATE TABLE IF NOT EXISTS lock_snapshots (
    id BIGSERIAL PRIMARY KEY,
    lock_id VARCHAR(64) NOT NULL,
    pin_type TEXT,
    relate_battery TEXT,
    relate_type TEXT,
    battery TEXT,
    wifi TEXT,
    status TEXT,
    report_time TEXT,
    module_id TEXT,
    recorded_at TIMESTAMP WITH TIME ZONE NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_lock_snapshots_lock_id ON lock_snapshots(lock_id);
CREATE INDEX IF NOT EXISTS idx_lock_snapshots_recorded_at ON lock_snapshots(recorded_at);
ALTER TABLE lock_snapshots
    ALTER COLUMN pin_type TYPE TEXT,
    ALTER COLUMN relate_battery TYPE TEXT,
    ALTER COLUMN relate_type TYPE TEXT,
    ALTER COLUMN battery TYPE TEXT,
    ALTER COLUMN wifi TYPE TEXT,
    ALTER COLUMN status TYPE TEXT,
    ALTER COLUMN report_time TYPE TEXT,
    ALTER COLUMN module_id TYPE TEXT;
`

const migrationCreateLockStates = `
CREATE TABLE IF NOT EXISTS lock_states (
    id BIGSERIAL PRIMARY KEY,
    lock_id VARCHAR(64) NOT NULL,
    state VARCHAR(20) NOT NULL,
    start_time TIMESTAMP WITH TIME ZONE NOT NULL,
    end_time TIMESTAMP WITH TIME ZONE
);
CREATE INDEX IF NOT EXISTS idx_lock_states_lock_id ON lock_states(lock_id);
`
