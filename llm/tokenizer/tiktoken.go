package tokenizer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// TiktokenTokenizer OpenAI 系列模型的精确分词器。
// 编码表在首次使用时加载；加载失败（例如离线无法下载 BPE 文件）后
// 计数退回字符估算，Encode/Decode 返回 ErrEncodingUnsupported。
type TiktokenTokenizer struct {
	model     string
	encoding  string
	maxTokens int
	fallback  *EstimatorTokenizer

	once    sync.Once
	enc     *tiktoken.Tiktoken
	initErr error
}

type openAIEncoding struct {
	prefix    string
	encoding  string
	maxTokens int
}

// 按前缀匹配，长前缀在前
var openAIEncodings = []openAIEncoding{
	{"gpt-4o", "o200k_base", 128000},
	{"gpt-4.1", "o200k_base", 1047576},
	{"o1", "o200k_base", 200000},
	{"o3", "o200k_base", 200000},
	{"gpt-4-turbo", "cl100k_base", 128000},
	{"gpt-4", "cl100k_base", 8192},
	{"gpt-3.5-turbo", "cl100k_base", 16385},
	{"text-embedding-3", "cl100k_base", 8191},
	{"text-embedding-ada-002", "cl100k_base", 8191},
}

func lookupEncoding(model string) (openAIEncoding, bool) {
	for _, e := range openAIEncodings {
		if strings.HasPrefix(model, e.prefix) {
			return e, true
		}
	}
	return openAIEncoding{}, false
}

// NewTiktokenTokenizer 为 OpenAI 模型创建分词器，非 OpenAI 模型返回错误。
// maxTokens 为 0 时使用模型的上下文上限。
func NewTiktokenTokenizer(model string, maxTokens int) (*TiktokenTokenizer, error) {
	e, ok := lookupEncoding(model)
	if !ok {
		return nil, fmt.Errorf("tokenizer: no tiktoken encoding for model %q", model)
	}
	if maxTokens <= 0 {
		maxTokens = e.maxTokens
	}
	return &TiktokenTokenizer{
		model:     model,
		encoding:  e.encoding,
		maxTokens: maxTokens,
		fallback:  NewEstimatorTokenizer(model, maxTokens),
	}, nil
}

func (t *TiktokenTokenizer) load() *tiktoken.Tiktoken {
	t.once.Do(func() {
		t.enc, t.initErr = tiktoken.GetEncoding(t.encoding)
		if t.initErr != nil {
			zap.L().Warn("tiktoken encoding unavailable, falling back to estimator",
				zap.String("model", t.model),
				zap.String("encoding", t.encoding),
				zap.Error(t.initErr))
		}
	})
	return t.enc
}

func (t *TiktokenTokenizer) CountTokens(text string) (int, error) {
	enc := t.load()
	if enc == nil {
		return t.fallback.CountTokens(text)
	}
	return len(enc.Encode(text, nil, nil)), nil
}

func (t *TiktokenTokenizer) Encode(text string) ([]int, error) {
	enc := t.load()
	if enc == nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodingUnsupported, t.initErr)
	}
	return enc.Encode(text, nil, nil), nil
}

func (t *TiktokenTokenizer) Decode(tokens []int) (string, error) {
	enc := t.load()
	if enc == nil {
		return "", fmt.Errorf("%w: %v", ErrEncodingUnsupported, t.initErr)
	}
	return enc.Decode(tokens), nil
}

func (t *TiktokenTokenizer) MaxTokens() int { return t.maxTokens }

func (t *TiktokenTokenizer) Name() string { return "tiktoken[" + t.encoding + "]" }
