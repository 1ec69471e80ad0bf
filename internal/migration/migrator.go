package migration

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations
var migrationFiles embed.FS

// SchemaTables 初始迁移创建的表，与 gormstore 模型一一对应
var SchemaTables = []string{
	"accounts", "memories", "goals", "rooms", "participants",
	"relationships", "knowledge", "cache", "logs",
}

// Dialect SQL 方言，同时决定 database/sql 驱动与迁移文件目录
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
	// DialectSQLite 迁移走 mattn/go-sqlite3（database/sql 驱动名 sqlite3），
	// 纯 Go 的 "sqlite" 驱动名留给 gormstore 使用的 glebarez/sqlite
	DialectSQLite Dialect = "sqlite"
)

// ParseDialect 接受常见别名，大小写不敏感
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(s) {
	case "postgres", "postgresql", "pg":
		return DialectPostgres, nil
	case "mysql", "mariadb":
		return DialectMySQL, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database type: %s", s)
	}
}

func (d Dialect) files() (fs.FS, error) {
	switch d {
	case DialectPostgres, DialectMySQL, DialectSQLite:
		return fs.Sub(migrationFiles, "migrations/"+string(d))
	default:
		return nil, fmt.Errorf("unsupported database type: %s", d)
	}
}

// driverName database/sql 注册的驱动名
func (d Dialect) driverName() string {
	if d == DialectSQLite {
		return "sqlite3"
	}
	return string(d)
}

// tablesQuery 列出当前 schema 下的表名
func (d Dialect) tablesQuery() string {
	switch d {
	case DialectPostgres:
		return "SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema()"
	case DialectMySQL:
		return "SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE()"
	default:
		return "SELECT name FROM sqlite_master WHERE type = 'table'"
	}
}

// Migration 单个内嵌迁移及其在数据库中的状态
type Migration struct {
	Version uint
	Name    string
	Applied bool
	Dirty   bool
}

// Summary 当前版本与迁移计数
type Summary struct {
	Current uint
	Dirty   bool
	Total   int
	Applied int
	Pending int
}

type Options struct {
	Dialect Dialect
	// URL 连接串，见 URLFromConfig
	URL string
	// Table 版本表，默认 schema_migrations
	Table       string
	LockTimeout time.Duration
	Logger      *zap.Logger
}

// Migrator 基于 golang-migrate，迁移文件内嵌在二进制中
type Migrator struct {
	dialect Dialect
	m       *migrate.Migrate
	db      *sql.DB
	logger  *zap.Logger
}

func New(opts Options) (*Migrator, error) {
	if opts.URL == "" {
		return nil, errors.New("database URL is required")
	}
	if opts.Table == "" {
		opts.Table = "schema_migrations"
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = 15 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	mg := &Migrator{
		dialect: opts.Dialect,
		logger:  logger.With(zap.String("component", "migrator"), zap.String("database", string(opts.Dialect))),
	}
	if err := mg.open(opts); err != nil {
		mg.Close()
		return nil, fmt.Errorf("failed to initialize migrator: %w", err)
	}
	return mg, nil
}

func (mg *Migrator) open(opts Options) error {
	files, err := opts.Dialect.files()
	if err != nil {
		return err
	}
	src, err := iofs.New(files, ".")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	mg.db, err = sql.Open(opts.Dialect.driverName(), opts.URL)
	if err != nil {
		return err
	}
	if err := mg.db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	var driver database.Driver
	switch opts.Dialect {
	case DialectPostgres:
		driver, err = postgres.WithInstance(mg.db, &postgres.Config{MigrationsTable: opts.Table})
	case DialectMySQL:
		driver, err = mysql.WithInstance(mg.db, &mysql.Config{MigrationsTable: opts.Table})
	default:
		driver, err = sqlite3.WithInstance(mg.db, &sqlite3.Config{MigrationsTable: opts.Table})
	}
	if err != nil {
		return fmt.Errorf("create database driver: %w", err)
	}

	mg.m, err = migrate.NewWithInstance("iofs", src, opts.Dialect.driverName(), driver)
	if err != nil {
		return err
	}
	mg.m.LockTimeout = opts.LockTimeout
	mg.m.Log = zapMigrateLogger{mg.logger}
	return nil
}

// run ctx 取消时请求 golang-migrate 在当前迁移完成后停止
func (mg *Migrator) run(ctx context.Context, op string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			select {
			case mg.m.GracefulStop <- true:
			default:
			}
		case <-done:
		}
	}()

	start := time.Now()
	if err := fn(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		mg.logger.Error("migration failed", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("migration %s failed: %w", op, err)
	}
	mg.logger.Info("migration finished", zap.String("op", op), zap.Duration("took", time.Since(start)))
	return nil
}

func (mg *Migrator) Up(ctx context.Context) error {
	return mg.run(ctx, "up", mg.m.Up)
}

// Steps n > 0 前进 n 个版本，n < 0 回滚
func (mg *Migrator) Steps(ctx context.Context, n int) error {
	return mg.run(ctx, "steps "+strconv.Itoa(n), func() error { return mg.m.Steps(n) })
}

func (mg *Migrator) Goto(ctx context.Context, version uint) error {
	return mg.run(ctx, "goto", func() error { return mg.m.Migrate(version) })
}

// DownAll 回滚全部迁移，删除所有 agent 数据表
func (mg *Migrator) DownAll(ctx context.Context) error {
	return mg.run(ctx, "down all", mg.m.Down)
}

// Force 只写入版本号并清除 dirty 标记，不执行 SQL
func (mg *Migrator) Force(version int) error {
	if err := mg.m.Force(version); err != nil {
		return fmt.Errorf("migration force failed: %w", err)
	}
	mg.logger.Warn("migration version forced", zap.Int("version", version))
	return nil
}

// Version 尚未执行任何迁移时返回 0
func (mg *Migrator) Version() (uint, bool, error) {
	version, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get version: %w", err)
	}
	return version, dirty, nil
}

// Migrations 按版本升序返回内嵌迁移及其状态
func (mg *Migrator) Migrations() ([]Migration, error) {
	current, dirty, err := mg.Version()
	if err != nil {
		return nil, err
	}
	list, err := embedded(mg.dialect)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Applied = list[i].Version <= current
		list[i].Dirty = dirty && list[i].Version == current
	}
	return list, nil
}

func (mg *Migrator) Summary() (Summary, error) {
	list, err := mg.Migrations()
	if err != nil {
		return Summary{}, err
	}
	current, dirty, err := mg.Version()
	if err != nil {
		return Summary{}, err
	}
	s := Summary{Current: current, Dirty: dirty, Total: len(list)}
	for _, m := range list {
		if m.Applied {
			s.Applied++
		}
	}
	s.Pending = s.Total - s.Applied
	return s, nil
}

// MissingTables 返回 SchemaTables 中数据库里不存在的表
func (mg *Migrator) MissingTables(ctx context.Context) ([]string, error) {
	rows, err := mg.db.QueryContext(ctx, mg.dialect.tablesQuery())
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	present := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		present[strings.ToLower(name)] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var missing []string
	for _, t := range SchemaTables {
		if !present[t] {
			missing = append(missing, t)
		}
	}
	return missing, nil
}

func (mg *Migrator) Close() error {
	var errs []error
	if mg.m != nil {
		srcErr, dbErr := mg.m.Close()
		errs = append(errs, srcErr, dbErr)
		mg.m = nil
	} else if mg.db != nil {
		errs = append(errs, mg.db.Close())
	}
	mg.db = nil
	return errors.Join(errs...)
}

type zapMigrateLogger struct {
	logger *zap.Logger
}

func (l zapMigrateLogger) Printf(format string, v ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l zapMigrateLogger) Verbose() bool {
	return l.logger.Core().Enabled(zap.DebugLevel)
}

// embedded 解析形如 000001_init_schema.up.sql 的文件名
func embedded(d Dialect) ([]Migration, error) {
	files, err := d.files()
	if err != nil {
		return nil, err
	}
	entries, err := fs.ReadDir(files, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var list []Migration
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".up.sql")
		if e.IsDir() || !ok {
			continue
		}
		num, label, ok := strings.Cut(name, "_")
		if !ok {
			continue
		}
		v, err := strconv.ParseUint(num, 10, 32)
		if err != nil {
			continue
		}
		list = append(list, Migration{Version: uint(v), Name: label})
	}
	slices.SortFunc(list, func(a, b Migration) int { return int(a.Version) - int(b.Version) })
	return slices.CompactFunc(list, func(a, b Migration) bool { return a.Version == b.Version }), nil
}
