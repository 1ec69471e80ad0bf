package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreprocess(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "   ", ""},
		{"lowercases and collapses whitespace", "Hello\n\n  World", "hello world"},
		{"strips code blocks", "before ```go\nfunc main() {}\n``` after", "before after"},
		{"strips inline code", "run `make test` now", "run now"},
		{"keeps header text", "# Title\nbody", "title body"},
		{"keeps link text", "see [the docs](https://example.com/docs)", "see the docs"},
		{"keeps image alt", "![diagram](img.png) here", "diagram here"},
		{"strips url scheme", "visit https://www.sei.io/wallet", "visit sei.io/wallet"},
		{"strips html tags", "<b>bold</b> text", "bold text"},
		{"strips mentions", "hi <@12345> there", "hi there"},
		{"strips punctuation", "Wow! Really, (yes)?", "wow really yes?"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Preprocess(tt.in))
		})
	}
}

func TestExtractHTMLText(t *testing.T) {
	doc := `<html><head><title>Guide</title><style>body{color:red}</style></head>
<body><h1>SEI  Wallet</h1><script>alert("x")</script><p>Check your <a href="/b">balance</a>.</p></body></html>`
	assert.Equal(t, "Guide SEI Wallet Check your balance .", ExtractHTMLText(doc))
	assert.Empty(t, ExtractHTMLText(""))
}

func TestGetQueryTerms(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{"What is my SEI balance?", []string{"balance"}},
		{"Tell me about the wallets", []string{"tell", "about", "wallets"}},
		{"is it on the", nil},
		{"Where would THEY deploy contracts", []string{"deploy", "contracts"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, GetQueryTerms(tt.query))
		})
	}
}

func TestHasProximityMatch(t *testing.T) {
	text := "the wallet balance is reported in usei for every account on the sei network today"
	assert.True(t, hasProximityMatch(text, []string{"wallet", "balance"}))
	assert.True(t, hasProximityMatch(text, []string{"network", "account"}))
	assert.False(t, hasProximityMatch(text, []string{"wallet", "today"}))
	assert.False(t, hasProximityMatch(text, []string{"wallet"}))
	assert.False(t, hasProximityMatch(text, []string{"missing", "absent"}))
}

func TestBM25Scores(t *testing.T) {
	docs := []string{
		"balance balance of the wallet",
		"the wallet address",
		"cooking pasta with salted water",
	}
	scores := bm25Scores([]string{"balance", "wallet"}, docs)
	assert.Len(t, scores, 3)
	assert.InDelta(t, 1.0, scores[0], 1e-9)
	assert.Greater(t, scores[0], scores[1])
	assert.Greater(t, scores[1], 0.0)
	assert.Zero(t, scores[2])

	assert.Equal(t, []float64{0, 0}, bm25Scores(nil, docs[:2]))
	assert.Empty(t, bm25Scores([]string{"x"}, nil))
}

func TestMatchingTerms(t *testing.T) {
	assert.Equal(t, []string{"wallet", "usei"}, matchingTerms("Wallet holds USEI", []string{"wallet", "pasta", "usei"}))
	assert.Nil(t, matchingTerms("nothing here", []string{"wallet"}))
}
