package tokenizer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimatorTokenizer_CountTokens(t *testing.T) {
	e := NewEstimatorTokenizer("test", 0)
	assert.Equal(t, 4096, e.MaxTokens())
	assert.Equal(t, "estimator", e.Name())

	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"short ascii rounds up to one", "hi", 1},
		{"ascii four chars per token", strings.Repeat("a", 40), 10},
		{"cjk one and a half chars per token", "你好世界你好", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := e.CountTokens(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}

	_, err := e.Encode("hi")
	assert.ErrorIs(t, err, ErrEncodingUnsupported)
	_, err = e.Decode([]int{1})
	assert.ErrorIs(t, err, ErrEncodingUnsupported)
}

func TestForModel(t *testing.T) {
	tests := []struct {
		model     string
		maxTokens int
		wantName  string
		wantMax   int
	}{
		{"gpt-4o-mini", 0, "tiktoken[o200k_base]", 128000},
		{"gpt-3.5-turbo", 4000, "tiktoken[cl100k_base]", 4000},
		{"claude-3-haiku-20240307", 200000, "estimator", 200000},
		{"llama3.2", 0, "estimator", 4096},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			tok := ForModel(tt.model, tt.maxTokens)
			assert.Equal(t, tt.wantName, tok.Name())
			assert.Equal(t, tt.wantMax, tok.MaxTokens())
			assert.Same(t, tok, ForModel(tt.model, 1), "cached per model")
		})
	}
}

func TestNewTiktokenTokenizer_UnknownModel(t *testing.T) {
	_, err := NewTiktokenTokenizer("some-local-model", 0)
	assert.Error(t, err)

	tk, err := NewTiktokenTokenizer("gpt-4-0613", 0)
	require.NoError(t, err)
	assert.Equal(t, 8192, tk.MaxTokens())
}

// wordTokenizer 以空格分词，支持 Encode/Decode，用于验证解码路径。
type wordTokenizer struct {
	vocab []string
}

func (w *wordTokenizer) CountTokens(text string) (int, error) {
	return len(strings.Fields(text)), nil
}

func (w *wordTokenizer) Encode(text string) ([]int, error) {
	fields := strings.Fields(text)
	ids := make([]int, len(fields))
	for i, f := range fields {
		w.vocab = append(w.vocab, f)
		ids[i] = len(w.vocab) - 1
	}
	return ids, nil
}

func (w *wordTokenizer) Decode(tokens []int) (string, error) {
	parts := make([]string, len(tokens))
	for i, id := range tokens {
		parts[i] = w.vocab[id]
	}
	return strings.Join(parts, " "), nil
}

func (w *wordTokenizer) MaxTokens() int { return 100 }
func (w *wordTokenizer) Name() string   { return "words" }

func TestTrimTokens(t *testing.T) {
	ctx := context.Background()

	t.Run("under budget is unchanged", func(t *testing.T) {
		out, err := TrimTokens(ctx, "one two three", 10, &wordTokenizer{})
		require.NoError(t, err)
		assert.Equal(t, "one two three", out)
	})

	t.Run("decoding tokenizer keeps the tail", func(t *testing.T) {
		out, err := TrimTokens(ctx, "one two three four five", 2, &wordTokenizer{})
		require.NoError(t, err)
		assert.Equal(t, "four five", out)
	})

	t.Run("estimator keeps the tail within budget", func(t *testing.T) {
		e := NewEstimatorTokenizer("test", 0)
		text := strings.Repeat("a", 100) + strings.Repeat("z", 40)
		out, err := TrimTokens(ctx, text, 10, e)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(text, out))
		assert.Equal(t, strings.Repeat("z", 40), out[len(out)-40:])
		n, _ := e.CountTokens(out)
		assert.LessOrEqual(t, n, 10)
		assert.Len(t, out, 43, "longest suffix whose estimate stays at 10")
	})

	t.Run("zero budget", func(t *testing.T) {
		out, err := TrimTokens(ctx, "anything", 0, nil)
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := TrimTokens(cctx, "text", 5, nil)
		assert.True(t, errors.Is(err, context.Canceled))
	})
}
