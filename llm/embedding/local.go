package embedding

import (
	"context"
	"hash/fnv"
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_\-]+`)

// LocalProvider 本地字符三元组哈希嵌入，无网络依赖，结果确定且已归一化.
type LocalProvider struct {
	dims int
}

// NewLocalProvider 创建本地嵌入器，dims <= 0 时使用 384.
func NewLocalProvider(dims int) *LocalProvider {
	if dims <= 0 {
		dims = 384
	}
	return &LocalProvider{dims: dims}
}

func (p *LocalProvider) Name() string    { return "local-embedding" }
func (p *LocalProvider) Dimensions() int { return p.dims }

func (p *LocalProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = p.vector(text)
	}
	return out, nil
}

func (p *LocalProvider) vector(text string) []float32 {
	vec := make([]float32, p.dims)
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return vec
	}
	window := []rune("#" + normalized + "#")
	for i := 0; i+3 <= len(window); i++ {
		vec[p.bucket(string(window[i:i+3]))] += 1
	}
	for _, token := range tokenPattern.FindAllString(normalized, -1) {
		vec[p.bucket("tok:"+token)] += 1.25
	}
	Normalize(vec)
	return vec
}

func (p *LocalProvider) bucket(s string) int {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(p.dims))
}
