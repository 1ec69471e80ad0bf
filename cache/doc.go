// 版权所有 2024 AgentFlow Authors. 版权所有。

/*
包 cache 提供带过期时间的键值缓存。

# 概述

Manager 在任意 Adapter 之上提供统一的 Get / Set / Delete 语义：
值以 JSON 信封（value + expires）写入后端，读取时由 Manager 判断过期，
因此不支持原生 TTL 的后端（内存、文件、数据库）与 Redis / MongoDB
行为一致。Manager 同时满足 embedding.Cache 接口，可直接作为嵌入缓存。

# 后端

  - MemoryAdapter：进程内 map
  - FsAdapter：每个键一个文件，写入使用临时文件 + rename
  - DbAdapter：委托给 storage.CacheStore，按 agent 隔离
  - RedisAdapter：go-redis，同时设置原生过期时间
  - MongoAdapter：mongo-driver v2，expiresAt 上建 TTL 索引

# 指标

配置 metrics.Collector 后记录 cache_hits_total / cache_misses_total，
cache_type 标签取后端名称。
*/
package cache
