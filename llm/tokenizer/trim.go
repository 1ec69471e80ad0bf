package tokenizer

import (
	"context"
	"sort"
)

// TrimTokens 将文本截断到 maxTokens 以内，保留尾部（最新的上下文）。
// 能够解码的分词器直接截取最后 maxTokens 个 token；
// 不支持解码的估算器按字符后缀二分查找满足预算的最长尾部。
func TrimTokens(ctx context.Context, text string, maxTokens int, tok Tokenizer) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if text == "" {
		return "", nil
	}
	if maxTokens <= 0 {
		return "", nil
	}
	if tok == nil {
		tok = NewEstimatorTokenizer("default", 0)
	}

	if tokens, err := tok.Encode(text); err == nil && len(tokens) <= maxTokens {
		return text, nil
	} else if err == nil {
		if decoded, derr := tok.Decode(tokens[len(tokens)-maxTokens:]); derr == nil {
			return decoded, nil
		}
	}

	return trimRunes(ctx, text, maxTokens, tok)
}

// trimRunes 查找最小的起始位置 s，使 runes[s:] 的 token 数不超过预算。
func trimRunes(ctx context.Context, text string, maxTokens int, tok Tokenizer) (string, error) {
	runes := []rune(text)
	var countErr error
	start := sort.Search(len(runes)+1, func(s int) bool {
		if countErr != nil {
			return true
		}
		if err := ctx.Err(); err != nil {
			countErr = err
			return true
		}
		n, err := tok.CountTokens(string(runes[s:]))
		if err != nil {
			countErr = err
			return true
		}
		return n <= maxTokens
	})
	if countErr != nil {
		return "", countErr
	}
	return string(runes[start:]), nil
}
