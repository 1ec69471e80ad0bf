package llm

import (
	"github.com/BaSui01/agentcore/types"
)

// ModelSettings 某一模型等级的生成参数
type ModelSettings struct {
	Name             string   `json:"name" yaml:"name"`
	MaxInputTokens   int      `json:"max_input_tokens" yaml:"max_input_tokens"`
	MaxOutputTokens  int      `json:"max_output_tokens" yaml:"max_output_tokens"`
	Temperature      float32  `json:"temperature" yaml:"temperature"`
	FrequencyPenalty float32  `json:"frequency_penalty,omitempty" yaml:"frequency_penalty"`
	PresencePenalty  float32  `json:"presence_penalty,omitempty" yaml:"presence_penalty"`
	Stop             []string `json:"stop,omitempty" yaml:"stop"`
}

// EmbeddingModelSettings 嵌入模型参数
type EmbeddingModelSettings struct {
	Name       string `json:"name" yaml:"name"`
	Dimensions int    `json:"dimensions,omitempty" yaml:"dimensions"`
}

// ImageModelSettings 图像模型参数
type ImageModelSettings struct {
	Name  string `json:"name" yaml:"name"`
	Steps int    `json:"steps,omitempty" yaml:"steps"`
}

// Model 单个提供商的端点与分级模型表
type Model struct {
	Endpoint  string
	Classes   map[types.ModelClass]ModelSettings
	Embedding *EmbeddingModelSettings
	Image     *ImageModelSettings
}

// Models 静态的 提供商 → 模型等级 设置表。调用方只声明 ModelClass，从不指定具体模型。
var Models = map[types.ModelProviderName]Model{
	types.ProviderOpenAI: {
		Endpoint: "https://api.openai.com",
		Classes: map[types.ModelClass]ModelSettings{
			types.ModelClassSmall: {
				Name:            "gpt-4o-mini",
				MaxInputTokens:  128000,
				MaxOutputTokens: 8192,
				Temperature:     0.6,
			},
			types.ModelClassMedium: {
				Name:            "gpt-4o",
				MaxInputTokens:  128000,
				MaxOutputTokens: 8192,
				Temperature:     0.6,
			},
			types.ModelClassLarge: {
				Name:            "gpt-4o",
				MaxInputTokens:  128000,
				MaxOutputTokens: 8192,
				Temperature:     0.6,
			},
		},
		Embedding: &EmbeddingModelSettings{Name: "text-embedding-3-small", Dimensions: 1536},
		Image:     &ImageModelSettings{Name: "dall-e-3"},
	},
	types.ProviderAnthropic: {
		Endpoint: "https://api.anthropic.com",
		Classes: map[types.ModelClass]ModelSettings{
			types.ModelClassSmall: {
				Name:            "claude-3-haiku-20240307",
				MaxInputTokens:  200000,
				MaxOutputTokens: 4096,
				Temperature:     0.7,
			},
			types.ModelClassMedium: {
				Name:            "claude-3-5-sonnet-20241022",
				MaxInputTokens:  200000,
				MaxOutputTokens: 4096,
				Temperature:     0.7,
			},
			types.ModelClassLarge: {
				Name:            "claude-3-5-sonnet-20241022",
				MaxInputTokens:  200000,
				MaxOutputTokens: 4096,
				Temperature:     0.7,
			},
		},
	},
	types.ProviderGroq: {
		Endpoint: "https://api.groq.com/openai",
		Classes: map[types.ModelClass]ModelSettings{
			types.ModelClassSmall: {
				Name:             "llama-3.1-8b-instant",
				MaxInputTokens:   128000,
				MaxOutputTokens:  8000,
				Temperature:      0.7,
				FrequencyPenalty: 0.4,
				PresencePenalty:  0.4,
			},
			types.ModelClassMedium: {
				Name:             "llama-3.3-70b-versatile",
				MaxInputTokens:   128000,
				MaxOutputTokens:  8000,
				Temperature:      0.7,
				FrequencyPenalty: 0.4,
				PresencePenalty:  0.4,
			},
			types.ModelClassLarge: {
				Name:             "llama-3.3-70b-versatile",
				MaxInputTokens:   128000,
				MaxOutputTokens:  8000,
				Temperature:      0.7,
				FrequencyPenalty: 0.4,
				PresencePenalty:  0.4,
			},
		},
	},
	types.ProviderOllama: {
		Endpoint: "http://localhost:11434",
		Classes: map[types.ModelClass]ModelSettings{
			types.ModelClassSmall: {
				Name:             "llama3.2",
				MaxInputTokens:   128000,
				MaxOutputTokens:  8192,
				Temperature:      0.7,
				FrequencyPenalty: 0.4,
				PresencePenalty:  0.4,
			},
			types.ModelClassMedium: {
				Name:             "hermes3",
				MaxInputTokens:   128000,
				MaxOutputTokens:  8192,
				Temperature:      0.7,
				FrequencyPenalty: 0.4,
				PresencePenalty:  0.4,
			},
			types.ModelClassLarge: {
				Name:             "hermes3:70b",
				MaxInputTokens:   128000,
				MaxOutputTokens:  8192,
				Temperature:      0.7,
				FrequencyPenalty: 0.4,
				PresencePenalty:  0.4,
			},
		},
		Embedding: &EmbeddingModelSettings{Name: "mxbai-embed-large", Dimensions: 1024},
	},
	types.ProviderDeepSeek: {
		Endpoint: "https://api.deepseek.com",
		Classes: map[types.ModelClass]ModelSettings{
			types.ModelClassSmall: {
				Name:            "deepseek-chat",
				MaxInputTokens:  128000,
				MaxOutputTokens: 8192,
				Temperature:     0.7,
			},
			types.ModelClassMedium: {
				Name:            "deepseek-chat",
				MaxInputTokens:  128000,
				MaxOutputTokens: 8192,
				Temperature:     0.7,
			},
			types.ModelClassLarge: {
				Name:            "deepseek-chat",
				MaxInputTokens:  128000,
				MaxOutputTokens: 8192,
				Temperature:     0.7,
			},
		},
	},
}

// GetModelSettings 返回提供商在某一等级下的设置副本
func GetModelSettings(provider types.ModelProviderName, class types.ModelClass) (ModelSettings, bool) {
	m, ok := Models[provider]
	if !ok {
		return ModelSettings{}, false
	}
	s, ok := m.Classes[class]
	if !ok {
		return ModelSettings{}, false
	}
	s.Stop = append([]string(nil), s.Stop...)
	return s, true
}

// GetEmbeddingModelSettings 返回提供商的嵌入模型设置
func GetEmbeddingModelSettings(provider types.ModelProviderName) (EmbeddingModelSettings, bool) {
	m, ok := Models[provider]
	if !ok || m.Embedding == nil {
		return EmbeddingModelSettings{}, false
	}
	return *m.Embedding, true
}

// GetImageModelSettings 返回提供商的图像模型设置
func GetImageModelSettings(provider types.ModelProviderName) (ImageModelSettings, bool) {
	m, ok := Models[provider]
	if !ok || m.Image == nil {
		return ImageModelSettings{}, false
	}
	return *m.Image, true
}

// GetEndpoint 返回提供商的默认 API 地址
func GetEndpoint(provider types.ModelProviderName) string {
	return Models[provider].Endpoint
}
