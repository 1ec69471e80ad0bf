// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package generation 提供按模型等级路由的生成与解析层。

# 概述

调用方只选择模型等级（small / medium / large），由 Generator 结合
llm.Models 设置表决定具体模型、输出上限与采样参数。上下文在发送前
按模型输入预算用 tokenizer.TrimTokens 裁剪，保留尾部内容。

# 核心能力

  - 文本生成: GenerateText / GenerateTextResult，支持工具循环（MaxSteps）
    与每步回调 OnStepFinish
  - 解析重试: GenerateShouldRespond / GenerateTrueOrFalse /
    GenerateTextArray / GenerateObjectArray / GenerateMessageResponse，
    模型输出无法解析时按退避策略重新生成
  - 结构化输出: GenerateObject / GenerateObjectInto，按 Schema 校验，
    解析失败为 GENERATION_FAILED，不符合 schema 为 GENERATION_VALIDATION
  - 可验证推理: Verifier 接口与基于 HS256 JWT 的 HMACVerifier
  - 文本工具: ParseJSONObjectFromText、NormalizeJSONString、
    ExtractAttributes、TruncateToCompleteSentence、SplitChunks 等

# 使用示例

	g := generation.NewGenerator(provider, types.ProviderOpenAI,
		generation.WithRateLimit(5, 10),
		generation.WithLogger(logger),
	)
	ok, err := g.GenerateTrueOrFalse(ctx, prompt+generation.BooleanFooter, types.ModelClassSmall)
*/
package generation
