// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 agentcore 命令行入口。

# 概述

cmd/agentcore 从 YAML 配置与环境变量装配一个完整的角色运行时：
存储（GORM 或内存）、缓存、嵌入服务、文本生成链路与 SEI 链插件，
并通过子命令对外提供交互式对话、知识入库、数据库迁移与健康检查。

# 子命令

  - chat     标准输入逐行对话，/exit 或 /quit 结束；后台运行知识目录监听、
    已删除知识清理、配置热重载与指标文本导出
  - ingest   导入角色知识，RAG 模式下同时清理源文件已删除的知识
  - migrate  golang-migrate 迁移：up、down、steps、goto、force、status 等
  - health   检查数据库、缓存与链 RPC 可达性
  - version  打印构建信息

# 日志

日志使用 zap，配置 log.file.path 时额外通过 lumberjack 写入滚动文件。
热重载仅调整日志级别，其余字段变更需重启。

构建时通过 ldflags 注入 Version、BuildTime、GitCommit。
*/
package main
