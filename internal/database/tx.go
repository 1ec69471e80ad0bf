package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"
	"time"

	"github.com/BaSui01/agentcore/llm/retry"
	"github.com/BaSui01/agentcore/types"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TxRetryPolicy 事务冲突的重试策略
var TxRetryPolicy = retry.RetryPolicy{
	MaxRetries:   2,
	InitialDelay: 50 * time.Millisecond,
	MaxDelay:     time.Second,
	Multiplier:   4,
	Jitter:       true,
}

// Transact 在事务中执行 fn。fn 返回的错误若是瞬时的数据库错误，
// 或被标记为可重试的 types.Error，则回滚后重新执行整个事务。
func Transact(ctx context.Context, db *gorm.DB, logger *zap.Logger, fn func(tx *gorm.DB) error) error {
	policy := TxRetryPolicy
	policy.ShouldRetry = func(err error) bool {
		return types.IsRetryable(err) || IsRetryableError(err)
	}
	r := retry.NewRetryer(&policy, logger)
	return r.Do(ctx, func(ctx context.Context) error {
		return db.WithContext(ctx).Transaction(fn)
	})
}

// PostgreSQL SQLSTATE
var retryablePgCodes = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"55P03": true, // lock_not_available
	"57P01": true, // admin_shutdown
}

// MySQL 错误码
var retryableMySQLCodes = map[uint16]bool{
	1205: true, // ER_LOCK_WAIT_TIMEOUT
	1213: true, // ER_LOCK_DEADLOCK
}

// IsRetryableError 判断数据库错误是否值得重试：
// 驱动错误码优先，其余按连接中断与 SQLite 忙锁的错误文本判断。
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return retryablePgCodes[pgErr.Code]
	}
	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		return retryableMySQLCodes[myErr.Number]
	}

	msg := strings.ToLower(err.Error())
	for _, s := range []string{
		"deadlock",
		"could not serialize",
		"connection reset",
		"connection refused",
		"broken pipe",
		"database is locked",
		"sqlite_busy",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
