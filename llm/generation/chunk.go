package generation

import "strings"

const (
	// DefaultChunkSize 默认分块大小（字符数）
	DefaultChunkSize = 512
	// DefaultBleed 相邻分块默认重叠字符数
	DefaultBleed = 100
)

// chunkSeparators 按优先级排列：段落、行、句子、单词
var chunkSeparators = []string{"\n\n", "\n", ". ", "! ", "? ", "。", " "}

// SplitChunks 按字符（rune）切分文本，相邻分块恰好重叠 bleed 个字符。
// 切点优先落在窗口后半段中最后一个段落/行/句子/单词分隔符之后，
// 找不到时硬切。相同输入总是得到相同的分块序列。
func SplitChunks(content string, chunkSize, bleed int) []string {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if bleed < 0 {
		bleed = 0
	}
	if bleed > chunkSize-1 {
		bleed = chunkSize - 1
	}

	runes := []rune(content)
	var chunks []string
	start := 0
	for {
		end := start + chunkSize
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			return chunks
		}
		minEnd := start + max(bleed+1, chunkSize/2)
		if cut := lastSeparatorEnd(runes, start, minEnd, end); cut > 0 {
			end = cut
		}
		chunks = append(chunks, string(runes[start:end]))
		start = end - bleed
	}
}

// lastSeparatorEnd 返回分隔符结束位置 p（minEnd <= p <= end），按分隔符优先级取第一个命中的最后出现位置
func lastSeparatorEnd(runes []rune, start, minEnd, end int) int {
	for _, sep := range chunkSeparators {
		sr := []rune(sep)
		for p := end; p >= minEnd; p-- {
			if p-len(sr) < start {
				break
			}
			if runesEqual(runes[p-len(sr):p], sr) {
				return p
			}
		}
	}
	return -1
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
