// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 agentcore 测试的共享工具和辅助函数。

# 概述

testutil 包为整个项目的单元测试与基准测试提供统一的辅助能力，
避免各包重复实现相似的测试基础设施。所有测试应优先使用此包
中的工具函数和 Mock 实现。

# 核心能力

  - 上下文: Context 跟随测试 deadline 并自动注册 Cleanup，Canceled 返回已取消的 ctx
  - 通道: Receive 带超时地读取一个值
  - 记忆: Texts 取出记忆文本，配合 assert.Equal 比较顺序

# 子包

  - testutil/mocks: 脚本化的 llm.Provider（mocks.Provider）与
    嵌入提供商 MockEmbedder，均支持错误注入并记录调用
  - testutil/fixtures: 测试数据工厂，提供预置角色卡、记忆、
    ChatResponse 与消息回复 JSON 等样例

# 使用示例

	ctx := testutil.Context(t)
	provider := mocks.Always("hello")
	resp, err := provider.Completion(ctx, req)
	require.NoError(t, err)
*/
package testutil
