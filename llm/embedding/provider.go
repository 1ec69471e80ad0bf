package embedding

import (
	"context"
	"time"

	"github.com/BaSui01/agentcore/types"
)

// Provider 把文本转换为固定维度的向量
type Provider interface {
	Name() string
	Dimensions() int
	// Embed 返回与 texts 一一对应的向量
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// inBatches 把 texts 按 size 分批交给 fn，结果按输入顺序拼接
func inBatches(ctx context.Context, texts []string, size int, fn func(context.Context, []string) ([][]float32, error)) ([][]float32, error) {
	if size <= 0 {
		size = len(texts)
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vecs, err := fn(ctx, texts[start:min(start+size, len(texts))])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// embedTimeout 远程嵌入默认 30s
func embedTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 30 * time.Second
	}
	return d
}

func countMismatch(name string, want, got int) error {
	return types.Errorf(types.ErrUpstreamError, "expected %d embeddings, got %d", want, got).WithProvider(name)
}
