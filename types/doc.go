// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 agentcore 运行时的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 memory、rag、llm、agent
等上层模块提供统一的类型契约。

# 核心类型

  - Memory / Content: 存储的消息或事件，Content.Extra 承载动态字段
  - RAGKnowledgeItem: 知识主文档或分块，KnowledgeMetadata 为强类型元数据
  - Goal / Objective: 目标及其状态（DONE / FAILED / IN_PROGRESS）
  - Account / Room / Participant / Relationship / Actor
  - State: 每轮对话的上下文快照（字符串字段 + *Data 切片）
  - Template: Literal / Computed 两种提示模板
  - Character: 角色定义（YAML 加载）
  - Error / ErrorCode: 结构化错误体系

# 主要能力

  - StringToUUID：确定性 ID 派生
  - Context 传播：WithTraceID / WithAgentID / WithRoomID
  - 错误工具链：AsError / IsErrorCode / IsRetryable
*/
package types
