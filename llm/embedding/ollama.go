package embedding

import (
	"context"

	"github.com/BaSui01/agentcore/llm/providers"
)

const ollamaDefaultModel = "mxbai-embed-large"

// OllamaProvider 调用本地 Ollama 的 /api/embed，一次请求嵌入整批文本
type OllamaProvider struct {
	client     *providers.Client
	model      string
	dimensions int
}

// NewOllamaProvider 默认 mxbai-embed-large，1024 维
func NewOllamaProvider(cfg OllamaConfig) *OllamaProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	dims := cfg.Dimensions
	if dims <= 0 {
		dims = 1024
	}
	model := cfg.Model
	if model == "" {
		model = ollamaDefaultModel
	}
	return &OllamaProvider{
		client:     providers.NewClient("ollama-embedding", baseURL, embedTimeout(cfg.Timeout), nil),
		model:      model,
		dimensions: dims,
	}
}

func (p *OllamaProvider) Name() string    { return p.client.Name() }
func (p *OllamaProvider) Dimensions() int { return p.dimensions }

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (p *OllamaProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var resp ollamaEmbedResponse
	if err := p.client.PostJSON(ctx, "/api/embed", ollamaEmbedRequest{Model: p.model, Input: texts}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, countMismatch(p.Name(), len(texts), len(resp.Embeddings))
	}
	return resp.Embeddings, nil
}
