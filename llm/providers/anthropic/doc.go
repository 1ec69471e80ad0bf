// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

// Package anthropic 通过 Anthropic 原生 Messages API 实现 llm.Provider。
// 错误映射与响应体解析复用 llm/providers 的公共函数，529 过载视为可重试。
package anthropic
