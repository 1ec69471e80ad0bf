package embedding

import (
	"context"

	"github.com/BaSui01/agentcore/llm/providers"
	"github.com/BaSui01/agentcore/types"
)

const (
	openAIDefaultModel = "text-embedding-3-small"
	openAIMaxBatch     = 2048
)

// OpenAIProvider 调用 /v1/embeddings，兼容 OpenAI 协议的服务通过 BaseURL 接入
type OpenAIProvider struct {
	client     *providers.Client
	model      string
	dimensions int
}

// NewOpenAIProvider 默认 text-embedding-3-small，1536 维
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	model := cfg.Model
	if model == "" {
		model = openAIDefaultModel
	}
	dims := cfg.Dimensions
	if dims <= 0 {
		dims = 1536
	}
	return &OpenAIProvider{
		client:     providers.NewClient("openai-embedding", baseURL, embedTimeout(cfg.Timeout), providers.Bearer(cfg.APIKey)),
		model:      model,
		dimensions: dims,
	}
}

func (p *OpenAIProvider) Name() string    { return p.client.Name() }
func (p *OpenAIProvider) Dimensions() int { return p.dimensions }

type openAIEmbedRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return inBatches(ctx, texts, openAIMaxBatch, p.embedBatch)
}

// embedBatch 响应中的 data 按 index 放回输入位置
func (p *OpenAIProvider) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var resp openAIEmbedResponse
	err := p.client.PostJSON(ctx, "/v1/embeddings", openAIEmbedRequest{
		Input:      texts,
		Model:      p.model,
		Dimensions: p.dimensions,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, countMismatch(p.Name(), len(texts), len(resp.Data))
	}
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, types.Errorf(types.ErrUpstreamError, "embedding index %d out of range", d.Index).WithProvider(p.Name())
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}
