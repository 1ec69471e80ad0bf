package tokenizer

import "unicode"

const defaultEstimatorMaxTokens = 4096

// EstimatorTokenizer 按字符估算 token 数：拉丁字符约 4 个一个 token，
// 中日韩字符约 1.5 个一个 token。无法编码或解码。
type EstimatorTokenizer struct {
	model     string
	maxTokens int
}

func NewEstimatorTokenizer(model string, maxTokens int) *EstimatorTokenizer {
	if maxTokens <= 0 {
		maxTokens = defaultEstimatorMaxTokens
	}
	return &EstimatorTokenizer{model: model, maxTokens: maxTokens}
}

// CountTokens 非空文本至少计 1 个 token
func (e *EstimatorTokenizer) CountTokens(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	var wide, narrow int
	for _, r := range text {
		if isWide(r) {
			wide++
		} else {
			narrow++
		}
	}
	n := int(float64(wide)/1.5 + float64(narrow)/4)
	return max(n, 1), nil
}

func (e *EstimatorTokenizer) Encode(string) ([]int, error) { return nil, ErrEncodingUnsupported }

func (e *EstimatorTokenizer) Decode([]int) (string, error) { return "", ErrEncodingUnsupported }

func (e *EstimatorTokenizer) MaxTokens() int { return e.maxTokens }

func (e *EstimatorTokenizer) Name() string { return "estimator" }

func isWide(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul) ||
		(r >= 0x3000 && r <= 0x303F) || // CJK 标点
		(r >= 0xFF00 && r <= 0xFFEF) // 全角字符
}
