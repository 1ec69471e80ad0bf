package tokenizer

import (
	"errors"
	"sync"
)

// ErrEncodingUnsupported 估算器等无法产出真实 token ID 的分词器返回此错误
var ErrEncodingUnsupported = errors.New("tokenizer: encoding not supported")

// Tokenizer 统一的 token 计数接口。
// Encode/Decode 可以返回 ErrEncodingUnsupported，TrimTokens 此时改为按字符裁剪。
type Tokenizer interface {
	CountTokens(text string) (int, error)
	Encode(text string) ([]int, error)
	Decode(tokens []int) (string, error)
	// MaxTokens 模型输入上限
	MaxTokens() int
	Name() string
}

var (
	byModel   = make(map[string]Tokenizer)
	byModelMu sync.Mutex
)

// ForModel 返回模型对应的分词器并按模型名缓存：
// OpenAI 系列模型使用 tiktoken，其余模型使用字符估算器。
// maxInputTokens 为 0 时使用分词器自身的默认上限。
func ForModel(model string, maxInputTokens int) Tokenizer {
	byModelMu.Lock()
	defer byModelMu.Unlock()

	if t, ok := byModel[model]; ok {
		return t
	}
	var t Tokenizer
	if tk, err := NewTiktokenTokenizer(model, maxInputTokens); err == nil {
		t = tk
	} else {
		t = NewEstimatorTokenizer(model, maxInputTokens)
	}
	byModel[model] = t
	return t
}
