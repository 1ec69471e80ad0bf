package config

import (
	"fmt"
	"time"

	"github.com/BaSui01/agentcore/llm/embedding"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config agentcore 的完整配置
type Config struct {
	Agent     AgentConfig      `yaml:"agent" env:"AGENT"`
	Model     ModelConfig      `yaml:"model" env:"MODEL"`
	Embedding embedding.Config `yaml:"embedding" env:"EMBEDDING"`
	Database  DatabaseConfig   `yaml:"database" env:"DATABASE"`
	Redis     RedisConfig      `yaml:"redis" env:"REDIS"`
	Mongo     MongoConfig      `yaml:"mongo" env:"MONGO"`
	Cache     CacheConfig      `yaml:"cache" env:"CACHE"`
	Knowledge KnowledgeConfig  `yaml:"knowledge" env:"KNOWLEDGE"`
	Breaker   BreakerConfig    `yaml:"breaker" env:"BREAKER"`
	Log       LogConfig        `yaml:"log" env:"LOG"`
	Telemetry TelemetryConfig  `yaml:"telemetry" env:"TELEMETRY"`
	Metrics   MetricsConfig    `yaml:"metrics" env:"METRICS"`
	Chain     ChainConfig      `yaml:"chain" env:"CHAIN"`
}

// AgentConfig 运行时配置
type AgentConfig struct {
	// CharacterPath 角色卡 YAML 文件
	CharacterPath string `yaml:"character_path" env:"CHARACTER_PATH"`
	// ConversationLength 组装状态时读取的最近消息条数
	ConversationLength int `yaml:"conversation_length" env:"CONVERSATION_LENGTH"`
	// UniqueThreshold 记忆去重的相似度阈值
	UniqueThreshold float64 `yaml:"unique_threshold" env:"UNIQUE_THRESHOLD"`
	// CheckShouldRespond 回复前先让模型判断是否需要回复
	CheckShouldRespond bool `yaml:"check_should_respond" env:"CHECK_SHOULD_RESPOND"`
	// Settings 角色设置之外的运行时设置，环境变量格式为 K1=V1,K2=V2 并与 YAML 合并
	Settings map[string]string `yaml:"settings" env:"SETTINGS"`
}

// ModelConfig 模型提供者配置
type ModelConfig struct {
	// Provider openai / anthropic / groq / ollama 等，见 llm.GetEndpoint
	Provider string `yaml:"provider" env:"PROVIDER"`
	APIKey   string `yaml:"api_key" env:"API_KEY"`
	// BaseURL 为空时使用提供者的默认端点
	BaseURL    string        `yaml:"base_url" env:"BASE_URL"`
	Timeout    time.Duration `yaml:"timeout" env:"TIMEOUT"`
	MaxRetries int           `yaml:"max_retries" env:"MAX_RETRIES"`
	// RateLimitRPS <= 0 表示不限速
	RateLimitRPS   float64 `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
	// VerifierSecret 非空时为生成结果签发可验证证明，至少 16 字节
	VerifierSecret string        `yaml:"verifier_secret" env:"VERIFIER_SECRET"`
	VerifierTTL    time.Duration `yaml:"verifier_ttl" env:"VERIFIER_TTL"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// Driver memory / sqlite / sqlite3 / postgres / mysql
	Driver   string `yaml:"driver" env:"DRIVER"`
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	// Name 数据库名，sqlite 为文件路径
	Name    string `yaml:"name" env:"NAME"`
	SSLMode string `yaml:"ssl_mode" env:"SSL_MODE"`
	// AutoMigrate 启动时由 GORM 建表，生产环境使用 migrate 子命令
	AutoMigrate     bool          `yaml:"auto_migrate" env:"AUTO_MIGRATE"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
	// LogLevel GORM 日志级别：silent / error / warn / info
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`
}

// RedisConfig Redis 缓存配置
type RedisConfig struct {
	Addr         string `yaml:"addr" env:"ADDR"`
	Password     string `yaml:"password" env:"PASSWORD"`
	DB           int    `yaml:"db" env:"DB"`
	PoolSize     int    `yaml:"pool_size" env:"POOL_SIZE"`
	MinIdleConns int    `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
}

// MongoConfig MongoDB 缓存配置
type MongoConfig struct {
	URI        string `yaml:"uri" env:"URI"`
	Database   string `yaml:"database" env:"DATABASE"`
	Collection string `yaml:"collection" env:"COLLECTION"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	// Backend memory / fs / database / redis / mongo
	Backend    string        `yaml:"backend" env:"BACKEND"`
	Dir        string        `yaml:"dir" env:"DIR"`
	DefaultTTL time.Duration `yaml:"default_ttl" env:"DEFAULT_TTL"`
	KeyPrefix  string        `yaml:"key_prefix" env:"KEY_PREFIX"`
}

// KnowledgeConfig RAG 知识库配置
type KnowledgeConfig struct {
	// Root 知识文件根目录
	Root           string  `yaml:"root" env:"ROOT"`
	MatchThreshold float64 `yaml:"match_threshold" env:"MATCH_THRESHOLD"`
	MatchCount     int     `yaml:"match_count" env:"MATCH_COUNT"`
	ChunkSize      int     `yaml:"chunk_size" env:"CHUNK_SIZE"`
	Bleed          int     `yaml:"bleed" env:"BLEED"`
	// Watch 监听 Root 下的文件变化并重新入库
	Watch bool `yaml:"watch" env:"WATCH"`
	// CleanupSchedule 清理已删除文件的 cron 表达式，空表示不调度
	CleanupSchedule string `yaml:"cleanup_schedule" env:"CLEANUP_SCHEDULE"`
}

// BreakerConfig 存储熔断配置
type BreakerConfig struct {
	Threshold        int           `yaml:"threshold" env:"THRESHOLD"`
	Timeout          time.Duration `yaml:"timeout" env:"TIMEOUT"`
	ResetTimeout     time.Duration `yaml:"reset_timeout" env:"RESET_TIMEOUT"`
	HalfOpenMaxCalls int           `yaml:"half_open_max_calls" env:"HALF_OPEN_MAX_CALLS"`
}

// LogConfig 日志配置
type LogConfig struct {
	// Level debug / info / warn / error
	Level string `yaml:"level" env:"LEVEL"`
	// Format json / console
	Format           string        `yaml:"format" env:"FORMAT"`
	OutputPaths      []string      `yaml:"output_paths" env:"OUTPUT_PATHS"`
	EnableCaller     bool          `yaml:"enable_caller" env:"ENABLE_CALLER"`
	EnableStacktrace bool          `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
	File             LogFileConfig `yaml:"file" env:"FILE"`
}

// LogFileConfig 滚动日志文件，Path 为空时不写文件
type LogFileConfig struct {
	Path       string `yaml:"path" env:"PATH"`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"MAX_SIZE_MB"`
	MaxBackups int    `yaml:"max_backups" env:"MAX_BACKUPS"`
	MaxAgeDays int    `yaml:"max_age_days" env:"MAX_AGE_DAYS"`
	Compress   bool   `yaml:"compress" env:"COMPRESS"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	Enabled      bool   `yaml:"enabled" env:"ENABLED"`
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// Insecure 不使用 TLS 连接 collector
	Insecure    bool    `yaml:"insecure" env:"INSECURE"`
	ServiceName string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRate  float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" env:"ENABLED"`
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
	// TextfilePath 进程退出时写入的 node_exporter textfile，空表示不写
	TextfilePath string `yaml:"textfile_path" env:"TEXTFILE_PATH"`
}

// ChainConfig Sei 插件配置
type ChainConfig struct {
	// Network sei / seiTestnet
	Network string `yaml:"network" env:"NETWORK"`
	RPCURL  string `yaml:"rpc_url" env:"RPC_URL"`
	// Address 只读钱包地址，PrivateKey 为空时必填
	Address    string `yaml:"address" env:"ADDRESS"`
	PrivateKey string `yaml:"private_key" env:"PRIVATE_KEY"`
	// Tokens 网络名 -> 代币符号 -> 合约地址（仅 YAML）
	Tokens   map[string]map[string]string `yaml:"tokens" env:"-"`
	CacheTTL time.Duration                `yaml:"cache_ttl" env:"CACHE_TTL"`
}

// Enabled 配置了钱包地址或私钥时启用插件
func (c ChainConfig) Enabled() bool {
	return c.Address != "" || c.PrivateKey != ""
}

// DSN 返回 GORM 连接字符串
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
		)
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true",
			d.User, d.Password, d.Host, d.Port, d.Name,
		)
	case "sqlite", "sqlite3":
		return d.Name
	default:
		return ""
	}
}
