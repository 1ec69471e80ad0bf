// Copyright 2025-2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

Package rag 提供 agent 的知识库：文件分块入库、混合检索与生命周期管理。

# 核心类型

  - KnowledgeManager: RAG 知识库管理器（ProcessFile / GetKnowledge / SearchKnowledge /
    CreateKnowledge / RemoveKnowledge / ClearKnowledge / CleanupDeletedKnowledgeFiles）
  - LegacyKnowledge: 非 RAG 知识，基于 documents 与 fragments 两个记忆表
  - Watcher: 基于 fsnotify 的知识目录监听，文件变化时增量入库或清理
  - Scheduler: 基于 gronx cron 表达式的周期任务，默认每小时清理一次失效条目

# 入库

每个文件派生确定性的主条目 id（GenerateScopedID，按路径与 shared/private 作用域），
主条目保存原文，分块保存预处理后的文本并各自嵌入，通过 OriginalID / ChunkIndex
关联主条目。重复入库先删除旧条目，结果 id 集合不变。

# 检索

GetKnowledge 先对查询（可附带对话上下文）做预处理与嵌入，取 2 倍 limit 的候选分块，
再按以下规则重排：

  - 查询词命中率加成，命中词在 5 个词以内邻近出现时再加成
  - 没有任何命中且没有对话上下文时降权
  - 候选集合内的 BM25 归一化分数加成

重排后低于阈值的结果被丢弃，同一主条目只保留得分最高的分块。
*/
package rag
