package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/BaSui01/agentcore/config"
	"github.com/BaSui01/agentcore/internal/migration"
)

// runMigrate agentcore migrate <command> [arg] [--config path] [--db-type t --db-url u]
func runMigrate(args []string) error {
	if len(args) < 1 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Println(migration.Usage)
		return nil
	}

	// 子命令参数（steps/goto/force 的版本号）在 flag 之前
	command, rest := splitCommand(args)

	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config file")
	dbType := fs.String("db-type", "", "Database type (postgres, mysql, sqlite)")
	dbURL := fs.String("db-url", "", "Database connection URL")
	if err := fs.Parse(rest); err != nil {
		return err
	}

	logger, _, cleanup, err := initLogger(config.DefaultLogConfig())
	if err != nil {
		return err
	}
	defer cleanup()

	migrator, err := newMigrator(*configPath, *dbType, *dbURL, logger)
	if err != nil {
		if errors.Is(err, migration.ErrNoSchema) {
			fmt.Println("Database driver is memory; nothing to migrate.")
			return nil
		}
		return fmt.Errorf("create migrator: %w", err)
	}
	defer migrator.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = migration.NewCLI(migrator, os.Stdout).Run(ctx, command)
	if errors.Is(err, migration.ErrUsage) {
		fmt.Fprintln(os.Stderr, migration.Usage)
	}
	return err
}

// splitCommand 把 ["goto", "2", "--config", "c.yaml"] 拆成命令部分与 flag 部分
func splitCommand(args []string) (command, flags []string) {
	for i, arg := range args {
		// "-1" 是 steps 的参数，不是 flag
		if len(arg) > 1 && arg[0] == '-' && (arg[1] < '0' || arg[1] > '9') {
			return args[:i], args[i:]
		}
	}
	return args, nil
}

func newMigrator(configPath, dbType, dbURL string, logger *zap.Logger) (*migration.Migrator, error) {
	if dbType != "" && dbURL != "" {
		return migration.FromURL(dbType, dbURL, logger)
	}

	loader := config.NewLoader()
	if configPath != "" {
		loader = loader.WithConfigPath(configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if dbType != "" {
		cfg.Database.Driver = dbType
	}
	return migration.FromConfig(cfg.Database, logger)
}
