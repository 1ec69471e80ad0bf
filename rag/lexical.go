package rag

import (
	"math"
	"strings"
)

// BM25 参数
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// bm25Scores 以候选文本集合为语料计算每个文本对查询词的 BM25 分数，
// 并按最大值归一化到 [0, 1]。
func bm25Scores(terms []string, docs []string) []float64 {
	scores := make([]float64, len(docs))
	if len(terms) == 0 || len(docs) == 0 {
		return scores
	}

	termFreqs := make([]map[string]int, len(docs))
	docLens := make([]int, len(docs))
	docFreq := make(map[string]int)
	totalLen := 0
	for i, doc := range docs {
		words := tokenize(doc)
		docLens[i] = len(words)
		totalLen += len(words)
		tf := make(map[string]int, len(words))
		for _, w := range words {
			tf[w]++
		}
		termFreqs[i] = tf
		for w := range tf {
			docFreq[w]++
		}
	}
	avgLen := float64(totalLen) / float64(len(docs))
	if avgLen == 0 {
		return scores
	}

	n := float64(len(docs))
	best := 0.0
	for i := range docs {
		score := 0.0
		for _, term := range terms {
			tf, ok := termFreqs[i][term]
			if !ok {
				continue
			}
			df := float64(docFreq[term])
			idf := math.Log((n-df+0.5)/(df+0.5) + 1.0)
			num := float64(tf) * (bm25K1 + 1.0)
			den := float64(tf) + bm25K1*(1.0-bm25B+bm25B*(float64(docLens[i])/avgLen))
			score += idf * (num / den)
		}
		scores[i] = score
		best = math.Max(best, score)
	}
	if best > 0 {
		for i := range scores {
			scores[i] /= best
		}
	}
	return scores
}

// matchingTerms 返回出现在文本中的查询词（子串匹配）
func matchingTerms(text string, terms []string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, t := range terms {
		if strings.Contains(lower, t) {
			out = append(out, t)
		}
	}
	return out
}

func tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	for i, f := range fields {
		fields[i] = strings.Trim(f, ".,;:!?\"'()[]")
	}
	return fields
}
