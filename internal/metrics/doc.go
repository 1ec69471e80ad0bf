// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的运行时指标采集能力，覆盖
生成、嵌入、熔断、存储、Agent 调度、知识库、缓存与数据库。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
注册机制，默认注册到全局 Registry，也可通过 NewCollectorWithRegistry
指定独立 Registry。所有指标按 namespace 隔离。

# 核心类型

  - Collector：指标收集器，Record* 方法对 nil 接收者安全。

# 主要能力

  - 生成指标：请求数、耗时、Token 用量，按 provider/model_class 分组。
  - 嵌入指标：请求数，区分是否回退为零向量。
  - 熔断指标：状态转换计数，按熔断器名称分组。
  - 存储指标：适配器调用次数与耗时，按 operation 分组。
  - Agent 指标：动作与评估器执行结果、各阶段耗时。
  - 缓存与数据库指标：命中/未命中、连接数与查询耗时。
*/
package metrics
