package generation

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/BaSui01/agentcore/types"
)

var (
	fencedJSONRe     = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*\\n?(.*?)\\n?```")
	trailingCommaRe  = regexp.MustCompile(`,\s*([}\]])`)
	unquotedKeyRe    = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_-]*)\s*:`)
	singleQuotedKey  = regexp.MustCompile(`([{,]\s*)'([^'"]*)'\s*:`)
	singleQuotedVal  = regexp.MustCompile(`:\s*'([^']*)'(\s*[,}\]])`)
	bareWordValueRe  = regexp.MustCompile(`:\s*([A-Za-z_][A-Za-z0-9_-]*)(\s*[,}\]])`)
	singleQuotedItem = regexp.MustCompile(`([\[,]\s*)'([^']*)'(\s*[,\]])`)
	mixedQuotesRe    = regexp.MustCompile(`"'|'"`)
)

// ParseJSONObjectFromText 从模型输出中解析 JSON 对象。
// 优先取 ```json 代码块，否则取第一个 { 到最后一个 } 之间的内容；
// 直接解析失败时先只去掉尾随逗号，再经 NormalizeJSONString 修复。无法恢复时返回 nil。
func ParseJSONObjectFromText(text string) map[string]any {
	candidate, ok := extractJSONCandidate(text, '{', '}')
	if !ok {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(candidate), &obj); err == nil {
		return obj
	}
	if err := json.Unmarshal([]byte(removeTrailingCommas(candidate)), &obj); err == nil {
		return obj
	}
	if err := json.Unmarshal([]byte(NormalizeJSONString(candidate)), &obj); err == nil {
		return obj
	}
	return nil
}

// ParseJSONArrayFromText 从模型输出中解析 JSON 数组，容忍单引号元素。无法恢复时返回 nil。
func ParseJSONArrayFromText(text string) []any {
	candidate, ok := extractJSONCandidate(text, '[', ']')
	if !ok {
		return nil
	}
	var arr []any
	if err := json.Unmarshal([]byte(candidate), &arr); err == nil {
		return arr
	}
	repaired := candidate
	for i := 0; i < 2; i++ {
		// 相邻元素共享逗号，需要两遍才能覆盖全部
		repaired = singleQuotedItem.ReplaceAllString(repaired, `$1"$2"$3`)
	}
	if err := json.Unmarshal([]byte(NormalizeJSONString(repaired)), &arr); err == nil {
		return arr
	}
	return nil
}

// ParseStringArrayFromText 解析字符串数组，非字符串元素按 JSON 文本保留
func ParseStringArrayFromText(text string) []string {
	arr := ParseJSONArrayFromText(text)
	if arr == nil {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		switch v := item.(type) {
		case string:
			out = append(out, v)
		case nil:
		default:
			b, _ := json.Marshal(v)
			out = append(out, string(b))
		}
	}
	return out
}

func extractJSONCandidate(text string, open, close byte) (string, bool) {
	if m := fencedJSONRe.FindStringSubmatch(text); len(m) > 1 {
		body := strings.TrimSpace(m[1])
		if len(body) > 0 && body[0] == open {
			return body, true
		}
	}
	start := strings.IndexByte(text, open)
	end := strings.LastIndexByte(text, close)
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// NormalizeJSONString 修复模型常见的非法 JSON：弯引号、混合引号、
// 单引号键值、未加引号的键与裸词值、尾随逗号。
// 修复只作用于双引号字符串字面量之外，字符串内容原样保留。
func NormalizeJSONString(str string) string {
	s := strings.TrimSpace(str)
	s = strings.NewReplacer("“", `"`, "”", `"`, "‘", "'", "’", "'").Replace(s)
	s = mixedQuotesRe.ReplaceAllString(s, `"`)
	return outsideStrings(s, repairSegment)
}

func repairSegment(s string) string {
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	s = singleQuotedKey.ReplaceAllString(s, `$1"$2":`)
	s = unquotedKeyRe.ReplaceAllString(s, `$1"$2":`)
	s = singleQuotedVal.ReplaceAllString(s, `: "$1"$2`)
	return bareWordValueRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := bareWordValueRe.FindStringSubmatch(m)
		switch sub[1] {
		case "true", "false", "null":
			return m
		}
		return `: "` + sub[1] + `"` + sub[2]
	})
}

func removeTrailingCommas(s string) string {
	return outsideStrings(s, func(seg string) string {
		return trailingCommaRe.ReplaceAllString(seg, "$1")
	})
}

// outsideStrings 对双引号字符串之间的片段调用 fn，字符串（含转义）不变。
// 未闭合的字符串一直延续到末尾。
func outsideStrings(s string, fn func(string) string) string {
	var b strings.Builder
	b.Grow(len(s))
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] != '"' {
			continue
		}
		b.WriteString(fn(s[start:i]))
		j := i + 1
		for j < len(s) && s[j] != '"' {
			if s[j] == '\\' {
				j++
			}
			j++
		}
		end := min(j+1, len(s))
		b.WriteString(s[i:end])
		start = end
		i = end - 1
	}
	b.WriteString(fn(s[start:]))
	return b.String()
}

// CleanJSONResponse 去掉代码块标记与换行，得到单行 JSON 文本
func CleanJSONResponse(response string) string {
	s := strings.ReplaceAll(response, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.NewReplacer("\r\n", "", "\n", "", "\r", "").Replace(s)
	return strings.TrimSpace(s)
}

// ShouldRespond 是否回复的决策
type ShouldRespond string

const (
	ShouldRespondRespond ShouldRespond = "RESPOND"
	ShouldRespondIgnore  ShouldRespond = "IGNORE"
	ShouldRespondStop    ShouldRespond = "STOP"
)

// ParseShouldRespondFromText 识别 RESPOND / IGNORE / STOP（不区分大小写，允许方括号）。
// 第一行恰好是某个选项时以其为准，否则按 RESPOND、IGNORE、STOP 的顺序查找。
func ParseShouldRespondFromText(text string) (ShouldRespond, bool) {
	upper := strings.ToUpper(text)
	firstLine, _, _ := strings.Cut(upper, "\n")
	firstLine = strings.Trim(strings.TrimSpace(firstLine), "[]. ")
	for _, opt := range []ShouldRespond{ShouldRespondRespond, ShouldRespondIgnore, ShouldRespondStop} {
		if firstLine == string(opt) {
			return opt, true
		}
	}
	for _, opt := range []ShouldRespond{ShouldRespondRespond, ShouldRespondIgnore, ShouldRespondStop} {
		if strings.Contains(upper, string(opt)) {
			return opt, true
		}
	}
	return "", false
}

var (
	affirmative = map[string]bool{"YES": true, "Y": true, "TRUE": true, "T": true, "1": true, "ON": true, "ENABLE": true}
	negative    = map[string]bool{"NO": true, "N": true, "FALSE": true, "F": true, "0": true, "OFF": true, "DISABLE": true}
)

// ParseBooleanFromText 把固定的肯定/否定词映射为 bool，无法识别时返回 INVALID_INPUT 错误
func ParseBooleanFromText(text string) (bool, error) {
	word := strings.ToUpper(strings.Trim(strings.TrimSpace(text), "[](){}.,!?\"'` \t\n"))
	if affirmative[word] {
		return true, nil
	}
	if negative[word] {
		return false, nil
	}
	return false, types.Errorf(types.ErrInvalidInput, "unrecognized boolean value %q", text)
}

var attributePairRe = regexp.MustCompile(`"([^"]+)"\s*:\s*"((?:[^"\\]|\\.)*)"?`)

// ExtractAttributes 在无法整体解析 JSON 时，用正则提取 "key": "value" 形式的字段。
// attrs 为空时提取全部字符串字段。没有任何匹配时返回 nil。
func ExtractAttributes(response string, attrs ...string) map[string]string {
	response = strings.TrimSpace(response)
	out := make(map[string]string)
	if len(attrs) == 0 {
		for _, m := range attributePairRe.FindAllStringSubmatch(response, -1) {
			out[m[1]] = unescapeJSONString(m[2])
		}
	} else {
		for _, attr := range attrs {
			re := regexp.MustCompile(`(?i)"` + regexp.QuoteMeta(attr) + `"\s*:\s*"((?:[^"\\]|\\.)*)"?`)
			if m := re.FindStringSubmatch(response); m != nil {
				out[attr] = unescapeJSONString(m[1])
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func unescapeJSONString(s string) string {
	if unquoted, err := strconv.Unquote(`"` + s + `"`); err == nil {
		return unquoted
	}
	return s
}

// TruncateToCompleteSentence 截断到 maxLength 个字符以内，尽量停在句末；
// 没有句末标点时在空格处截断并追加省略号。
func TruncateToCompleteSentence(text string, maxLength int) string {
	if utf8.RuneCountInString(text) <= maxLength {
		return text
	}
	if maxLength <= 3 {
		return strings.Repeat(".", max(maxLength, 0))
	}
	runes := []rune(text)
	window := runes[:maxLength]

	for i := len(window) - 1; i >= 0; i-- {
		switch window[i] {
		case '.', '!', '?', '。', '！', '？':
			if s := strings.TrimSpace(string(window[:i+1])); s != "" {
				return s
			}
		}
	}
	for i := maxLength - 4; i >= 0; i-- {
		if window[i] == ' ' {
			if s := strings.TrimSpace(string(window[:i])); s != "" {
				return s + "..."
			}
			break
		}
	}
	return strings.TrimSpace(string(runes[:maxLength-3])) + "..."
}

// ActionResponse 社交类输出的动作选择
type ActionResponse struct {
	Like    bool `json:"like"`
	Retweet bool `json:"retweet"`
	Quote   bool `json:"quote"`
	Reply   bool `json:"reply"`
}

var (
	likeRe    = regexp.MustCompile(`(?i)\[LIKE\]`)
	retweetRe = regexp.MustCompile(`(?i)\[RETWEET\]`)
	quoteRe   = regexp.MustCompile(`(?i)\[QUOTE\]`)
	replyRe   = regexp.MustCompile(`(?i)\[REPLY\]`)
)

// ParseActionResponseFromText 识别 [LIKE] [RETWEET] [QUOTE] [REPLY] 标记
func ParseActionResponseFromText(text string) ActionResponse {
	return ActionResponse{
		Like:    likeRe.MatchString(text),
		Retweet: retweetRe.MatchString(text),
		Quote:   quoteRe.MatchString(text),
		Reply:   replyRe.MatchString(text),
	}
}
