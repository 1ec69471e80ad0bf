package embedding

import (
	"strings"
	"time"

	"github.com/BaSui01/agentcore/types"
)

// ProviderType 嵌入提供者类型
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderOllama ProviderType = "ollama"
	ProviderLocal  ProviderType = "local"
)

// Config 嵌入服务配置，在启动时解析一次，运行期不可变.
type Config struct {
	Provider   ProviderType  `json:"provider" yaml:"provider" env:"PROVIDER"`
	Model      string        `json:"model,omitempty" yaml:"model" env:"MODEL"`
	Dimensions int           `json:"dimensions,omitempty" yaml:"dimensions" env:"DIMENSIONS"`
	BaseURL    string        `json:"base_url,omitempty" yaml:"base_url" env:"BASE_URL"`
	APIKey     string        `json:"-" yaml:"api_key" env:"API_KEY"`
	Timeout    time.Duration `json:"timeout,omitempty" yaml:"timeout" env:"TIMEOUT"`
	CacheTTL   time.Duration `json:"cache_ttl,omitempty" yaml:"cache_ttl" env:"CACHE_TTL"`
}

// OpenAIConfig configures the OpenAI embedding provider.
type OpenAIConfig struct {
	APIKey     string        `json:"api_key" yaml:"api_key"`
	BaseURL    string        `json:"base_url" yaml:"base_url"`
	Model      string        `json:"model,omitempty" yaml:"model,omitempty"`           // text-embedding-3-small
	Dimensions int           `json:"dimensions,omitempty" yaml:"dimensions,omitempty"` // 512, 1536
	Timeout    time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// OllamaConfig configures the Ollama embedding provider.
type OllamaConfig struct {
	BaseURL    string        `json:"base_url" yaml:"base_url"`
	Model      string        `json:"model,omitempty" yaml:"model,omitempty"` // mxbai-embed-large, nomic-embed-text
	Dimensions int           `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
	Timeout    time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// DefaultConfig returns the local embedding config (384 dims, 24h cache).
func DefaultConfig() Config {
	return Config{
		Provider:   ProviderLocal,
		Dimensions: 384,
		Timeout:    30 * time.Second,
		CacheTTL:   24 * time.Hour,
	}
}

// NewProvider 根据配置创建嵌入提供者
func NewProvider(cfg Config) (Provider, error) {
	switch ProviderType(strings.ToLower(string(cfg.Provider))) {
	case ProviderOpenAI:
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Timeout:    cfg.Timeout,
		}), nil
	case ProviderOllama:
		return NewOllamaProvider(OllamaConfig{
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Timeout:    cfg.Timeout,
		}), nil
	case ProviderLocal, "":
		return NewLocalProvider(cfg.Dimensions), nil
	default:
		return nil, types.Errorf(types.ErrConfiguration, "unknown embedding provider %q", cfg.Provider)
	}
}
