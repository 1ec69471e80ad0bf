// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
包 memory 提供按表（messages、descriptions、lore、documents、fragments）
划分的记忆管理器 Manager。

Manager 绑定一个表名和一个 agent，负责：

  - 为缺少向量的记忆计算嵌入（AddEmbeddingToMemory）
  - 按房间、时间范围读取最近的记忆（结果从新到旧）
  - 按编辑距离查找可复用的嵌入（GetCachedEmbeddings）
  - 向量相似度检索（SearchMemoriesByEmbedding）
  - 写入记忆，unique 写入会先在同一房间做近重复检测，
    相似度达到 Options.UniqueThreshold 时跳过写入

存储错误统一包装表名后返回，原始的 types.Error 可通过 errors.As 取回。
*/
package memory
