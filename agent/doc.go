// Copyright 2024 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be
// found in the LICENSE file.

/*
Package agent 提供单个角色 agent 的运行时。

# 概述

Runtime 绑定一张角色卡（types.Character）与一个存储适配器，负责：

  - 维护账户、房间与参与关系（EnsureConnection 等幂等操作）
  - 启动时导入角色知识（Initialize），RAG 模式写入 rag.KnowledgeManager，
    否则写入 documents / fragments 两张记忆表
  - 为每条消息组装 types.State（ComposeState），供提示模板渲染
  - 执行回复中声明的动作（ProcessActions）并运行评估器（Evaluate）

# 能力

动作、评估器与提供者通过 Registry 注册，名称大小写不敏感且不可重复：

	rt, err := agent.New(agent.Options{
	    Character: character,
	    Store:     store,
	    Generator: generator,
	    Plugins:   []agent.Plugin{sei.NewPlugin(sei.Options{})},
	})

ActionFunc、EvaluatorFunc 与 ProviderFunc 用于以函数字段快速定义能力。

# 单轮对话

HandleMessage 串联一轮完整的消息处理：

	turn, err := rt.HandleMessage(ctx, msg, agent.MessageOptions{CheckShouldRespond: true})

保存消息后组装状态，可选地让模型判断是否回复，生成回复并保存，
然后执行回复中的动作，最后运行评估器。单个动作、评估器或提供者失败
只记录日志，不会中断本轮处理。

# 模板

ComposeContext 用 State.Values() 替换模板中的 {{key}} 占位符，
未知的键渲染为空字符串。角色卡 templates 中的模板优先于包内默认模板。
*/
package agent
