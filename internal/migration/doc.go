// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 migration 管理 agentcore 存储表结构的版本化迁移，支持 PostgreSQL、
MySQL 与 SQLite，基于 golang-migrate 实现。

各方言的 SQL 文件内嵌在 migrations/<dialect> 下，初始迁移创建的表
（SchemaTables）与 storage/gormstore 的模型一致。生产环境关闭
database.auto_migrate，改用 agentcore migrate up 管理表结构，
并用 agentcore migrate verify 在部署后确认表齐全。

FromConfig 从 config.DatabaseConfig 构造 Migrator，内存驱动返回
ErrNoSchema。Migrator 的写操作在 ctx 取消后于当前迁移结束时停止。
*/
package migration
