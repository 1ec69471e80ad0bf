// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器。所有 Record* 方法对 nil 接收者安全，未启用指标时传 nil 即可。
type Collector struct {
	// 生成指标
	generationRequests *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	generationTokens   *prometheus.CounterVec

	// 嵌入指标
	embeddingRequests *prometheus.CounterVec

	// 熔断器指标
	breakerTransitions *prometheus.CounterVec

	// 存储指标
	storeCallDuration *prometheus.HistogramVec
	storeCallsTotal   *prometheus.CounterVec

	// Agent 指标
	actionsTotal    *prometheus.CounterVec
	evaluatorsTotal *prometheus.CounterVec
	turnDuration    *prometheus.HistogramVec

	// 知识库指标
	knowledgeIngested *prometheus.CounterVec

	// 缓存指标
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	// 数据库指标
	dbConnectionsOpen *prometheus.GaugeVec
	dbConnectionsIdle *prometheus.GaugeVec
	dbQueryDuration   *prometheus.HistogramVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器并注册到默认 Registry
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	return NewCollectorWithRegistry(namespace, prometheus.DefaultRegisterer, logger)
}

// NewCollectorWithRegistry 创建指标收集器并注册到指定 Registry
func NewCollectorWithRegistry(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// 生成指标
	c.generationRequests = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_requests_total",
			Help:      "Total number of model generation requests",
		},
		[]string{"provider", "model_class", "status"},
	)

	c.generationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Model generation duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider", "model_class"},
	)

	c.generationTokens = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_tokens_total",
			Help:      "Total number of tokens used by generation",
		},
		[]string{"provider", "model_class", "type"}, // type: prompt, completion
	)

	c.embeddingRequests = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests, split by zero-vector fallback",
		},
		[]string{"provider", "fallback"},
	)

	c.breakerTransitions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_transitions_total",
			Help:      "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	c.storeCallDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_call_duration_seconds",
			Help:      "Database adapter call duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	c.storeCallsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_calls_total",
			Help:      "Total number of database adapter calls",
		},
		[]string{"operation", "status"},
	)

	// Agent 指标
	c.actionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Total number of dispatched actions",
		},
		[]string{"action", "status"},
	)

	c.evaluatorsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluators_total",
			Help:      "Total number of evaluator runs",
		},
		[]string{"evaluator", "status"},
	)

	c.turnDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_stage_duration_seconds",
			Help:      "Duration of runtime stages (compose_state, process_actions, evaluate)",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"stage"},
	)

	c.knowledgeIngested = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "knowledge_items_ingested_total",
			Help:      "Total number of knowledge items written (main items and chunks)",
		},
		[]string{"scope", "kind"},
	)

	// 缓存指标
	c.cacheHits = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	c.cacheMisses = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// 数据库指标
	c.dbConnectionsOpen = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_open",
			Help:      "Number of open database connections",
		},
		[]string{"database"},
	)

	c.dbConnectionsIdle = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_idle",
			Help:      "Number of idle database connections",
		},
		[]string{"database"},
	)

	c.dbQueryDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"database", "operation"},
	)

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🤖 生成与嵌入
// =============================================================================

// RecordGeneration 记录一次生成请求
func (c *Collector) RecordGeneration(provider, modelClass, status string, duration time.Duration, promptTokens, completionTokens int) {
	if c == nil {
		return
	}
	c.generationRequests.WithLabelValues(provider, modelClass, status).Inc()
	c.generationDuration.WithLabelValues(provider, modelClass).Observe(duration.Seconds())
	c.generationTokens.WithLabelValues(provider, modelClass, "prompt").Add(float64(promptTokens))
	c.generationTokens.WithLabelValues(provider, modelClass, "completion").Add(float64(completionTokens))
}

// RecordEmbedding 记录一次嵌入请求，fallback 表示返回了零向量
func (c *Collector) RecordEmbedding(provider string, fallback bool) {
	if c == nil {
		return
	}
	label := "false"
	if fallback {
		label = "true"
	}
	c.embeddingRequests.WithLabelValues(provider, label).Inc()
}

// =============================================================================
// 🔌 熔断与存储
// =============================================================================

// RecordBreakerTransition 记录熔断器状态转换
func (c *Collector) RecordBreakerTransition(name, from, to string) {
	if c == nil {
		return
	}
	c.breakerTransitions.WithLabelValues(name, from, to).Inc()
}

// RecordStoreCall 记录一次数据库适配器调用
func (c *Collector) RecordStoreCall(operation string, err error, duration time.Duration) {
	if c == nil {
		return
	}
	c.storeCallsTotal.WithLabelValues(operation, status(err)).Inc()
	c.storeCallDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// =============================================================================
// 🎭 Agent 指标记录
// =============================================================================

// RecordAction 记录动作执行结果，status 取 success / failed / invalid / unknown
func (c *Collector) RecordAction(action, status string) {
	if c == nil {
		return
	}
	c.actionsTotal.WithLabelValues(action, status).Inc()
}

// RecordEvaluator 记录评估器执行结果
func (c *Collector) RecordEvaluator(evaluator, status string) {
	if c == nil {
		return
	}
	c.evaluatorsTotal.WithLabelValues(evaluator, status).Inc()
}

// RecordStage 记录运行时阶段耗时
func (c *Collector) RecordStage(stage string, duration time.Duration) {
	if c == nil {
		return
	}
	c.turnDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordKnowledgeIngested 记录写入的知识条目数，kind 取 main / chunk
func (c *Collector) RecordKnowledgeIngested(scope, kind string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.knowledgeIngested.WithLabelValues(scope, kind).Add(float64(n))
}

// =============================================================================
// 💾 缓存指标记录
// =============================================================================

// RecordCacheHit 记录缓存命中
func (c *Collector) RecordCacheHit(cacheType string) {
	if c == nil {
		return
	}
	c.cacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss 记录缓存未命中
func (c *Collector) RecordCacheMiss(cacheType string) {
	if c == nil {
		return
	}
	c.cacheMisses.WithLabelValues(cacheType).Inc()
}

// =============================================================================
// 🗄️ 数据库指标记录
// =============================================================================

// RecordDBConnections 记录数据库连接数
func (c *Collector) RecordDBConnections(database string, open, idle int) {
	if c == nil {
		return
	}
	c.dbConnectionsOpen.WithLabelValues(database).Set(float64(open))
	c.dbConnectionsIdle.WithLabelValues(database).Set(float64(idle))
}

// RecordDBQuery 记录数据库查询
func (c *Collector) RecordDBQuery(database, operation string, duration time.Duration) {
	if c == nil {
		return
	}
	c.dbQueryDuration.WithLabelValues(database, operation).Observe(duration.Seconds())
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
