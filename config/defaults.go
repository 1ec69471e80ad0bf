// =============================================================================
// 📦 agentcore 默认配置
// =============================================================================
package config

import (
	"time"

	"github.com/BaSui01/agentcore/llm/embedding"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Agent:     DefaultAgentConfig(),
		Model:     DefaultModelConfig(),
		Embedding: embedding.DefaultConfig(),
		Database:  DefaultDatabaseConfig(),
		Redis:     DefaultRedisConfig(),
		Mongo:     DefaultMongoConfig(),
		Cache:     DefaultCacheConfig(),
		Knowledge: DefaultKnowledgeConfig(),
		Breaker:   DefaultBreakerConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
		Metrics:   DefaultMetricsConfig(),
		Chain:     DefaultChainConfig(),
	}
}

// DefaultAgentConfig 返回默认运行时配置
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		ConversationLength: 32,
		UniqueThreshold:    0.95,
		CheckShouldRespond: true,
	}
}

// DefaultModelConfig 返回默认模型配置
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		Provider:    "openai",
		Timeout:     60 * time.Second,
		MaxRetries:  3,
		VerifierTTL: time.Hour,
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "sqlite",
		Name:            "agentcore.db",
		SSLMode:         "disable",
		AutoMigrate:     true,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		LogLevel:        "silent",
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// DefaultMongoConfig 返回默认 MongoDB 配置
func DefaultMongoConfig() MongoConfig {
	return MongoConfig{
		Database:   "agentcore",
		Collection: "cache",
	}
}

// DefaultCacheConfig 返回默认缓存配置
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Backend:   "memory",
		KeyPrefix: "agentcore:",
	}
}

// DefaultKnowledgeConfig 返回默认知识库配置
func DefaultKnowledgeConfig() KnowledgeConfig {
	return KnowledgeConfig{
		Root:           "knowledge",
		MatchThreshold: 0.85,
		MatchCount:     8,
		ChunkSize:      512,
		Bleed:          20,
	}
}

// DefaultBreakerConfig 返回默认熔断配置
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Threshold:        5,
		Timeout:          30 * time.Second,
		ResetTimeout:     60 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:       "info",
		Format:      "console",
		OutputPaths: []string{"stderr"},
		File: LogFileConfig{
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		Insecure:     true,
		ServiceName:  "agentcore",
		SampleRate:   0.1,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{Namespace: "agentcore"}
}

// DefaultChainConfig 返回默认链配置
func DefaultChainConfig() ChainConfig {
	return ChainConfig{
		Network:  "sei",
		CacheTTL: 5 * time.Minute,
	}
}
