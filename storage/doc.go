// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package storage 定义 agent 运行时依赖的持久化接口。

Adapter 按职责拆分为若干小接口：账户、记忆、目标、房间与参与者、
关系、知识、缓存与日志。具体实现位于子包：

  - memstore: 内存实现，用于测试与临时运行
  - gormstore: 基于 GORM 的关系型实现（sqlite / postgres / mysql）

Guarded 以熔断器包装任意 Adapter，熔断打开期间所有调用快速失败并返回
types.ErrStoreUnavailable。ScoreMemories / ScoreKnowledge 为没有向量索引
的后端提供统一的相似度过滤与排序。
*/
package storage
