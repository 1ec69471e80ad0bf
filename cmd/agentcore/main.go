// =============================================================================
// agentcore 主入口
// =============================================================================
// 命令行入口：交互式对话、知识入库、数据库迁移、健康检查
//
// 使用方法:
//
//	agentcore chat --config config.yaml   # 与角色交互
//	agentcore ingest --config config.yaml # 导入角色知识并清理已删除文件
//	agentcore migrate up                  # 运行数据库迁移
//	agentcore migrate status              # 查看迁移状态
//	agentcore health                      # 检查存储、缓存与链 RPC
//	agentcore version                     # 显示版本信息
// =============================================================================

package main

import (
	"fmt"
	"os"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "chat":
		err = runChat(os.Args[2:])
	case "ingest":
		err = runIngest(os.Args[2:])
	case "migrate":
		err = runMigrate(os.Args[2:])
	case "health":
		err = runHealthCheck(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "agentcore %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("agentcore %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`agentcore - character agent runtime

Usage:
  agentcore <command> [options]

Commands:
  chat      Talk to the configured character on stdin/stdout
  ingest    Import character knowledge and clean up deleted files
  migrate   Database migration commands
  health    Check store, cache and model configuration
  version   Show version information
  help      Show this help message

Common options:
  --config <path>   Path to configuration file (YAML)

Options for 'chat':
  --user <name>     Display name of the local user (default: user)

Examples:
  agentcore chat --config config.yaml
  agentcore ingest --config config.yaml
  agentcore migrate up --config config.yaml
  agentcore migrate status
  agentcore version`)
}
