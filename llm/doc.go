// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 llm 提供统一的大语言模型接入层：Provider 抽象、模型等级路由表，
以及限流、重试与熔断等 Provider 装饰器。

# 概述

上层调用方（生成层、运行时）只声明 [types.ModelClass]，从不指定具体模型；
[GetModelSettings] 根据提供商名称与模型等级返回最大 token、温度、
惩罚系数与停止序列，生成层据此构造 [ChatRequest]。

# 核心接口

  - [Provider]：Completion / Name

# 核心类型

  - [ChatRequest] / [ChatResponse]：聊天请求与响应
  - [Message] / [ToolCall] / [ToolSchema]：消息与工具调用
  - [ModelSettings] / [EmbeddingModelSettings] / [ImageModelSettings]
  - [Models]：静态的提供商 → 模型等级设置表

# 装饰器

  - [ResilientProvider]：熔断器包裹重试，熔断打开时返回 PROVIDER_UNAVAILABLE
  - [RateLimitedProvider]：基于 golang.org/x/time/rate 的令牌桶限流

# 相关子包

  - llm/providers/openaicompat：OpenAI 兼容 HTTP 实现
  - llm/providers/anthropic：Anthropic Messages API 实现
  - llm/embedding：嵌入服务与零向量回退
  - llm/tokenizer：分词器与 TrimTokens
  - llm/generation：文本/对象生成与响应解析
  - llm/circuitbreaker：熔断器实现
  - llm/retry：指数退避重试
*/
package llm
