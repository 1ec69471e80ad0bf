package storage

import (
	"bytes"
	"sort"

	"github.com/BaSui01/agentcore/llm/embedding"
	"github.com/BaSui01/agentcore/types"
	"github.com/google/uuid"
)

// ScoreMemories 计算相似度并按阈值过滤、降序排序、截断。供不支持向量索引的后端复用。
func ScoreMemories(candidates []types.Memory, query []float32, threshold float64, count int) []types.Memory {
	out := make([]types.Memory, 0, len(candidates))
	for _, m := range candidates {
		if len(m.Embedding) == 0 {
			continue
		}
		sim := embedding.CosineSimilarity(query, m.Embedding)
		if sim < threshold {
			continue
		}
		m.Similarity = sim
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if count > 0 && len(out) > count {
		out = out[:count]
	}
	return out
}

// ScoreKnowledge 同 ScoreMemories，作用于知识条目
func ScoreKnowledge(candidates []types.RAGKnowledgeItem, query []float32, threshold float64, count int) []types.RAGKnowledgeItem {
	out := make([]types.RAGKnowledgeItem, 0, len(candidates))
	for _, item := range candidates {
		if len(item.Embedding) == 0 {
			continue
		}
		sim := embedding.CosineSimilarity(query, item.Embedding)
		if sim < threshold {
			continue
		}
		item.Similarity = sim
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if count > 0 && len(out) > count {
		out = out[:count]
	}
	return out
}

// Levenshtein 计算两个字符串的编辑距离（按 rune）
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

// SortPair 返回规范化顺序的用户对，用于关系去重
func SortPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return a, b
	}
	return b, a
}

// ActorFromAccount 从账户详情中提取 Actor
func ActorFromAccount(a types.Account) types.Actor {
	actor := types.Actor{ID: a.ID, Name: a.Name, Username: a.Username}
	if a.Details != nil {
		actor.Details.Tagline, _ = a.Details["tagline"].(string)
		actor.Details.Summary, _ = a.Details["summary"].(string)
		actor.Details.Quote, _ = a.Details["quote"].(string)
	}
	return actor
}
