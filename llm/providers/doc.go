// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
包 providers 是 HTTP 模型适配器的公共层。

Client 负责 JSON 请求的编码、认证头与响应解码，并把所有失败统一为
*types.Error：网络错误与 5xx 可重试，429 映射为 RATE_LIMITED，
上下文超长的 400 映射为 CONTEXT_TOO_LONG。openaicompat、anthropic
两个补全适配器以及 llm/embedding 的远程嵌入都通过它访问上游。
*/
package providers
