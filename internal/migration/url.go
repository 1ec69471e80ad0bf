package migration

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/BaSui01/agentcore/config"
)

// ErrNoSchema 内存存储没有需要迁移的表结构
var ErrNoSchema = errors.New("driver has no schema to migrate")

// URLFromConfig 由存储配置生成迁移连接串，凭据按各驱动规则转义
func URLFromConfig(cfg config.DatabaseConfig) (Dialect, string, error) {
	if strings.EqualFold(cfg.Driver, "memory") {
		return "", "", ErrNoSchema
	}
	d, err := ParseDialect(cfg.Driver)
	if err != nil {
		return "", "", err
	}
	return d, BuildURL(d, cfg), nil
}

// BuildURL postgres 未指定 ssl_mode 时使用 require
func BuildURL(d Dialect, cfg config.DatabaseConfig) string {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	switch d {
	case DialectPostgres:
		sslMode := cfg.SSLMode
		if sslMode == "" {
			sslMode = "require"
		}
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(cfg.User, cfg.Password),
			Host:     addr,
			Path:     "/" + cfg.Name,
			RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
		}
		return u.String()
	case DialectMySQL:
		mc := mysqldriver.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = addr
		mc.DBName = cfg.Name
		mc.ParseTime = true
		mc.MultiStatements = true
		return mc.FormatDSN()
	default:
		return fmt.Sprintf("file:%s?mode=rwc&_foreign_keys=on", cfg.Name)
	}
}

// FromConfig 内存驱动返回 ErrNoSchema
func FromConfig(cfg config.DatabaseConfig, logger *zap.Logger) (*Migrator, error) {
	d, dsn, err := URLFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return New(Options{Dialect: d, URL: dsn, Logger: logger})
}

func FromURL(dialect, dsn string, logger *zap.Logger) (*Migrator, error) {
	d, err := ParseDialect(dialect)
	if err != nil {
		return nil, err
	}
	return New(Options{Dialect: d, URL: dsn, Logger: logger})
}
