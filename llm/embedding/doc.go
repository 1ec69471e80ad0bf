// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 embedding 提供统一的文本嵌入（Embedding）接口、远程与本地实现，
以及运行时使用的嵌入服务 Service。

# 概述

Service 在构造时确定提供者与维度，运行期不可变。Embed 从不返回错误：
提供者失败、空响应或维度不一致时返回 ZeroVector(dimensions)，检索随之
退化为“所有结果同等（不）相关”，而不会中断对话流程。

# 核心接口

  - Provider：Embed(ctx, texts)、Name、Dimensions
  - Cache：Get / Set，cache.Manager 满足该接口

# 实现

  - OpenAIProvider：/v1/embeddings，支持 dimensions 参数，每批最多 2048 条
  - OllamaProvider：/api/embed，一次请求嵌入整批文本
  - LocalProvider：字符三元组哈希嵌入，无网络依赖

# 使用方式

	svc, err := embedding.NewServiceFromConfig(cfg.Embedding,
	    embedding.WithCache(cacheManager, cfg.Embedding.CacheTTL),
	    embedding.WithLogger(logger),
	)
	vec := svc.Embed(ctx, "搜索关键词")
*/
package embedding
