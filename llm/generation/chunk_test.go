package generation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestSplitChunks_Basics(t *testing.T) {
	assert.Nil(t, SplitChunks("", 10, 2))
	assert.Nil(t, SplitChunks(" \n\t ", 10, 2))
	assert.Equal(t, []string{"hello"}, SplitChunks("hello", 10, 2))

	chunks := SplitChunks("alpha beta gamma delta epsilon", 12, 0)
	assert.Equal(t, []string{"alpha beta ", "gamma delta ", "epsilon"}, chunks)
}

func TestSplitChunks_PrefersParagraphs(t *testing.T) {
	content := "first para here\n\nsecond para text"
	chunks := SplitChunks(content, 20, 0)
	assert.Equal(t, "first para here\n\n", chunks[0])
}

func TestSplitChunks_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		alphabet := rapid.SampledFrom([]rune("abcdefg .\n!?。你"))
		content := string(rapid.SliceOfN(alphabet, 0, 600).Draw(t, "content"))
		chunkSize := rapid.IntRange(1, 120).Draw(t, "chunkSize")
		bleed := rapid.IntRange(0, 150).Draw(t, "bleed")

		chunks := SplitChunks(content, chunkSize, bleed)
		if strings.TrimSpace(content) == "" {
			if chunks != nil {
				t.Fatalf("expected nil chunks for blank content, got %q", chunks)
			}
			return
		}

		again := SplitChunks(content, chunkSize, bleed)
		if strings.Join(again, "\x00") != strings.Join(chunks, "\x00") {
			t.Fatalf("chunking is not deterministic")
		}

		effective := min(bleed, chunkSize-1)
		var rebuilt strings.Builder
		for i, c := range chunks {
			r := []rune(c)
			if len(r) > chunkSize {
				t.Fatalf("chunk %d has %d runes, limit %d", i, len(r), chunkSize)
			}
			if i == 0 {
				rebuilt.WriteString(c)
				continue
			}
			prev := []rune(chunks[i-1])
			if string(prev[len(prev)-effective:]) != string(r[:effective]) {
				t.Fatalf("chunks %d and %d do not overlap by %d runes", i-1, i, effective)
			}
			rebuilt.WriteString(string(r[effective:]))
		}
		if rebuilt.String() != content {
			t.Fatalf("chunks do not reconstruct the content")
		}
	})
}
