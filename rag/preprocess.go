package rag

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// 预处理规则，按顺序应用
var preprocessRules = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile("(?s)```.*?```"), ""},                          // 代码块
	{regexp.MustCompile("`[^`]*`"), ""},                                // 行内代码
	{regexp.MustCompile(`(?m)^\s*#{1,6}\s*(.*)$`), "$1"},               // 标题
	{regexp.MustCompile(`!\[(.*?)\]\(.*?\)`), "$1"},                    // 图片
	{regexp.MustCompile(`\[(.*?)\]\(.*?\)`), "$1"},                     // 链接
	{regexp.MustCompile(`(https?://)?(www\.)?([^\s]+\.[^\s]+)`), "$3"}, // URL 协议前缀
	{regexp.MustCompile(`<@[!&]?\d+>`), ""},                            // 提及
	{regexp.MustCompile(`<[^>]*>`), ""},                                // HTML 标签
	{regexp.MustCompile(`(?m)^\s*[-*_]{3,}\s*$`), ""},                  // 分隔线
	{regexp.MustCompile(`(?s)/\*.*?\*/`), ""},                          // 块注释
	{regexp.MustCompile(`//.*`), ""},                                   // 行注释
	{regexp.MustCompile(`\s+`), " "},
	{regexp.MustCompile(`[^a-zA-Z0-9\s\-_./:?=&]`), ""},
}

// Preprocess 规范化知识文本：去除代码、Markdown 标记、HTML 标签与 URL 前缀，
// 折叠空白并转为小写。入库分块与查询使用同一套规则。
func Preprocess(content string) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	out := content
	for _, rule := range preprocessRules {
		out = rule.re.ReplaceAllString(out, rule.repl)
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// ExtractHTMLText 提取 HTML 文档中的可见文本，跳过 script / style / noscript
func ExtractHTMLText(doc string) string {
	z := html.NewTokenizer(strings.NewReader(doc))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF 或解析错误都返回已提取的部分
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			name, _ := z.TagName()
			switch atom.Lookup(name) {
			case atom.Script, atom.Style, atom.Noscript:
				skip++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch atom.Lookup(name) {
			case atom.Script, atom.Style, atom.Noscript:
				if skip > 0 {
					skip--
				}
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
				b.WriteByte(' ')
			}
		}
	}
}

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`a an and are as at be by does for from had has have he her his how hey
		i in is it its of on or that the this to was what when where which who will with would
		there their they your you`) {
		stopWords[w] = struct{}{}
	}
}

// GetQueryTerms 提取查询中有意义的词：小写、长度大于 3、去除停用词与首尾标点
func GetQueryTerms(query string) []string {
	var terms []string
	for _, word := range strings.Fields(strings.ToLower(query)) {
		word = strings.Trim(word, ".,;:!?\"'()[]")
		if len(word) <= 3 {
			continue
		}
		if _, ok := stopWords[word]; ok {
			continue
		}
		terms = append(terms, word)
	}
	return terms
}

// proximityWindow 词间距不超过该值视为邻近命中
const proximityWindow = 5

// hasProximityMatch 至少两个词出现在相距不超过 proximityWindow 个词的位置
func hasProximityMatch(text string, terms []string) bool {
	words := strings.Fields(strings.ToLower(text))
	var positions []int
	for _, term := range terms {
		for i, w := range words {
			if strings.Contains(w, term) {
				positions = append(positions, i)
				break
			}
		}
	}
	if len(positions) < 2 {
		return false
	}
	sort.Ints(positions)
	for i := 1; i < len(positions); i++ {
		if positions[i]-positions[i-1] <= proximityWindow {
			return true
		}
	}
	return false
}
