// Copyright 2024 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be
// found in the LICENSE file.

/*
Package database 打开 agent 存储使用的 GORM 连接并管理其生命周期。

Open 按驱动名（sqlite / sqlite3 / postgres / mysql）构造方言，
GORM 日志转发到 zap。PoolManager 设置连接池参数，后台定时探活
并通过 metrics.Collector 上报连接数。

Transact 在事务中执行回调，遇到死锁、序列化失败、SQLite 忙锁等
瞬时错误时按 TxRetryPolicy 重试整个事务；IsRetryableError 同时供
存储层标记 types.Error 的 Retryable。
*/
package database
