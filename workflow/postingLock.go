package workflow

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gorm.io/gorm"
)

// MySQLLocker serializes runs with MySQL advisory locks when Redis is not available.
// GET_LOCK is connection-scoped, so every lock pins its own pooled connection until Release.
type MySQLLocker struct {
	DB *gorm.DB
}

func NewMySQLLocker(db *gorm.DB) *MySQLLocker {
	return &MySQLLocker{DB: db}
}

func (l *MySQLLocker) Obtain(ctx context.Context, key string, _ time.Duration) (RunLock, error) {
	if l == nil || l.DB == nil {
		return nil, errors.New("database not initialized")
	}
	sqlDB, err := l.DB.DB()
	if err != nil {
		return nil, err
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return nil, err
	}

	var ok sql.NullInt64
	if err := conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, 0)", key).Scan(&ok); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if !ok.Valid || ok.Int64 != 1 {
		_ = conn.Close()
		return nil, ErrRunInProgress
	}
	return &mysqlRunLock{conn: conn, key: key}, nil
}

type mysqlRunLock struct {
	conn *sql.Conn
	key  string
}

// Refresh pings the pinned connection; the lock itself lives as long as the connection.
func (l *mysqlRunLock) Refresh(ctx context.Context, _ time.Duration) error {
	return l.conn.PingContext(ctx)
}

func (l *mysqlRunLock) Release(ctx context.Context) error {
	var released sql.NullInt64
	err := l.conn.QueryRowContext(ctx, "SELECT RELEASE_LOCK(?)", l.key).Scan(&released)
	if closeErr := l.conn.Close(); err == nil {
		err = closeErr
	}
	return err
}
