package generation

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/BaSui01/agentcore/internal/metrics"
	"github.com/BaSui01/agentcore/llm"
	"github.com/BaSui01/agentcore/llm/retry"
	"github.com/BaSui01/agentcore/llm/tokenizer"
	"github.com/BaSui01/agentcore/testutil/fixtures"
	"github.com/BaSui01/agentcore/testutil/mocks"
	"github.com/BaSui01/agentcore/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func newTestGenerator(p llm.Provider, opts ...Option) *Generator {
	base := []Option{
		WithTokenizer(tokenizer.NewEstimatorTokenizer("test", 0)),
		WithRetryPolicy(&retry.RetryPolicy{
			MaxRetries:   3,
			InitialDelay: time.Millisecond,
			MaxDelay:     5 * time.Millisecond,
			Multiplier:   2,
		}),
		WithLogger(zap.NewNop()),
	}
	return NewGenerator(p, types.ProviderOpenAI, append(base, opts...)...)
}

func TestGenerateText_Basic(t *testing.T) {
	p := mocks.Always("  hello there \n")
	g := newTestGenerator(p)

	text, err := g.GenerateText(context.Background(), TextRequest{Context: "say hi", Stop: []string{"###"}})
	require.NoError(t, err)
	assert.Equal(t, "hello there", text)

	req := p.LastRequest()
	require.NotNil(t, req)
	assert.Equal(t, "gpt-4o-mini", req.Model)
	assert.Equal(t, []string{"###"}, req.Stop)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, llm.RoleUser, req.Messages[0].Role)
	assert.Equal(t, "say hi", req.Messages[0].Content)
}

func TestGenerateText_ModelClassRouting(t *testing.T) {
	p := mocks.NewProvider()
	g := newTestGenerator(p)

	_, err := g.GenerateText(context.Background(), TextRequest{Context: "x", ModelClass: types.ModelClassLarge, SystemPrompt: "be brief"})
	require.NoError(t, err)
	req := p.LastRequest()
	assert.Equal(t, "gpt-4o", req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, llm.RoleSystem, req.Messages[0].Role)
}

func TestGenerateText_Errors(t *testing.T) {
	tests := []struct {
		name     string
		provider *mocks.Provider
		req      TextRequest
		wantCode types.ErrorCode
	}{
		{"empty context", mocks.NewProvider(), TextRequest{Context: "  "}, types.ErrInvalidInput},
		{"unknown model class", mocks.NewProvider(), TextRequest{Context: "x", ModelClass: types.ModelClassEmbedding}, types.ErrConfiguration},
		{"provider failure", mocks.Failing(errors.New("boom")), TextRequest{Context: "x"}, types.ErrGenerationFailed},
		{"typed provider failure", mocks.Failing(types.NewError(types.ErrRateLimited, "slow")), TextRequest{Context: "x"}, types.ErrRateLimited},
		{"verifiable without verifier", mocks.NewProvider(), TextRequest{Context: "x", Verifiable: true}, types.ErrConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestGenerator(tt.provider).GenerateText(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, types.GetErrorCode(err))
		})
	}
}

func TestGenerateTextResult_ToolLoop(t *testing.T) {
	p := mocks.NewProvider(
		mocks.Reply{Text: "let me check", ToolCalls: []llm.ToolCall{
			fixtures.ToolCall("call-1", "lookup", map[string]string{"account": "abc"}),
			fixtures.ToolCall("call-2", "missing", map[string]string{}),
		}},
		mocks.Reply{Text: "the balance is 42"},
	)
	g := newTestGenerator(p)

	var seenArgs map[string]string
	var steps []StepResult
	res, err := g.GenerateTextResult(context.Background(), TextRequest{
		Context:  "what is the balance?",
		MaxSteps: 3,
		Tools: []Tool{{
			Name:       "lookup",
			Parameters: NewObjectSchema().AddProperty("account", NewStringSchema()),
			Execute: func(ctx context.Context, args json.RawMessage) (string, error) {
				if err := json.Unmarshal(args, &seenArgs); err != nil {
					return "", err
				}
				return "42", nil
			},
		}},
		OnStepFinish: func(s StepResult) { steps = append(steps, s) },
	})
	require.NoError(t, err)

	assert.Equal(t, "the balance is 42", res.Text)
	assert.Equal(t, map[string]string{"account": "abc"}, seenArgs)
	require.Len(t, res.Steps, 2)
	assert.Equal(t, res.Steps, steps)
	require.Len(t, res.Steps[0].ToolResults, 2)
	assert.Equal(t, "42", res.Steps[0].ToolResults[0].Output)
	assert.Contains(t, res.Steps[0].ToolResults[1].Error, "unknown tool")
	assert.Equal(t, 60, res.Usage.TotalTokens)

	requests := p.Requests()
	require.Len(t, requests, 2)
	first := requests[0]
	require.Len(t, first.Tools, 1)
	assert.Equal(t, "auto", first.ToolChoice)

	msgs := requests[1].Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, llm.RoleAssistant, msgs[1].Role)
	assert.Equal(t, llm.RoleTool, msgs[2].Role)
	assert.Equal(t, "call-1", msgs[2].ToolCallID)
	assert.Equal(t, "42", msgs[2].Content)
	assert.True(t, strings.HasPrefix(msgs[3].Content, "error: "))
}

func TestGenerateTextResult_MaxStepsStopsToolExecution(t *testing.T) {
	p := mocks.NewProvider(mocks.Reply{
		Text:      "calling a tool",
		ToolCalls: []llm.ToolCall{fixtures.ToolCall("c", "lookup", map[string]string{})},
	})
	g := newTestGenerator(p)

	executed := false
	res, err := g.GenerateTextResult(context.Background(), TextRequest{
		Context: "q",
		Tools: []Tool{{Name: "lookup", Execute: func(context.Context, json.RawMessage) (string, error) {
			executed = true
			return "", nil
		}}},
	})
	require.NoError(t, err)
	assert.False(t, executed)
	assert.Equal(t, "calling a tool", res.Text)
	assert.Equal(t, 1, p.Calls())
}

func TestGenerateTextResult_Verifiable(t *testing.T) {
	v, err := NewHMACVerifier(testSecret, "", 0)
	require.NoError(t, err)
	g := newTestGenerator(mocks.Always("signed output"), WithVerifier(v))

	res, err := g.GenerateTextResult(context.Background(), TextRequest{Context: "prompt", ModelClass: types.ModelClassMedium, Verifiable: true})
	require.NoError(t, err)
	require.NotNil(t, res.Proof)
	assert.Equal(t, "signed output", res.Proof.Text)

	ok, err := g.Verifier().VerifyProof(context.Background(), res.Proof)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestParseRetryingGenerators(t *testing.T) {
	ctx := context.Background()

	t.Run("true or false retries until parsable", func(t *testing.T) {
		p := mocks.Scripted("hmm", "let me think", "YES")
		v, err := newTestGenerator(p).GenerateTrueOrFalse(ctx, "ok?", types.ModelClassSmall)
		require.NoError(t, err)
		assert.True(t, v)
		assert.Equal(t, 3, p.Calls())
	})

	t.Run("gives up after retries", func(t *testing.T) {
		p := mocks.Always("no idea")
		_, err := newTestGenerator(p).GenerateShouldRespond(ctx, "respond?", types.ModelClassSmall)
		require.Error(t, err)
		assert.True(t, types.IsErrorCode(err, types.ErrGenerationFailed))
		assert.Equal(t, 4, p.Calls())
	})

	t.Run("should respond", func(t *testing.T) {
		got, err := newTestGenerator(mocks.Always("[IGNORE]")).GenerateShouldRespond(ctx, "respond?", "")
		require.NoError(t, err)
		assert.Equal(t, ShouldRespondIgnore, got)
	})

	t.Run("text array", func(t *testing.T) {
		got, err := newTestGenerator(mocks.Always(`["a", "b"]`)).GenerateTextArray(ctx, "list", "")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, got)
	})

	t.Run("object array", func(t *testing.T) {
		got, err := newTestGenerator(mocks.Always(`[{"claim": "x"}]`)).GenerateObjectArray(ctx, "facts", "")
		require.NoError(t, err)
		assert.Equal(t, []any{map[string]any{"claim": "x"}}, got)
	})

	t.Run("message response", func(t *testing.T) {
		p := mocks.Scripted("not json", fixtures.MessageResponseJSON("Ada", "hello", "NONE"))
		got, err := newTestGenerator(p).GenerateMessageResponse(ctx, "reply", "")
		require.NoError(t, err)
		assert.Equal(t, "hello", got.Text)
		assert.Equal(t, "NONE", got.Action)
		assert.Equal(t, map[string]any{"user": "Ada"}, got.Extra)
	})

	t.Run("provider errors are not retried", func(t *testing.T) {
		p := mocks.Failing(types.NewError(types.ErrInvalidInput, "bad"))
		_, err := newTestGenerator(p).GenerateTrueOrFalse(ctx, "ok?", "")
		require.Error(t, err)
		assert.Equal(t, 1, p.Calls())
	})
}

func TestGenerateObject(t *testing.T) {
	schema := NewObjectSchema().
		AddProperty("name", NewStringSchema()).
		AddProperty("age", NewIntegerSchema()).
		AddRequired("name", "age")

	tests := []struct {
		name     string
		response string
		want     map[string]any
		wantCode types.ErrorCode
	}{
		{"valid", fixtures.FencedJSON(map[string]any{"name": "Ada", "age": 36}), map[string]any{"name": "Ada", "age": 36.0}, ""},
		{"schema mismatch", `{"name": "Ada", "age": "old"}`, nil, types.ErrGenerationValidation},
		{"not json", "I refuse", nil, types.ErrGenerationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := mocks.Always(tt.response)
			got, err := newTestGenerator(p).GenerateObject(context.Background(), ObjectRequest{
				Context:    "describe Ada",
				Schema:     schema,
				SchemaName: "person",
			})
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, types.GetErrorCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			req := p.LastRequest()
			assert.Equal(t, "json_object", req.ResponseFormat)
			assert.Contains(t, req.Messages[0].Content, "Object: person")
			assert.Contains(t, req.Messages[0].Content, `"age"`)
		})
	}

	_, err := newTestGenerator(mocks.NewProvider()).GenerateObject(context.Background(), ObjectRequest{Context: "x"})
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidInput))
}

func TestGenerateObject_ValidationCause(t *testing.T) {
	schema := NewObjectSchema().AddProperty("n", NewIntegerSchema()).AddRequired("n")
	_, err := newTestGenerator(mocks.Always(`{}`)).GenerateObject(context.Background(), ObjectRequest{Context: "x", Schema: schema})
	require.Error(t, err)
	var verrs *ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "n", verrs.Errors[0].Path)
}

func TestGenerateObjectInto(t *testing.T) {
	type person struct {
		Name string `json:"name"`
		Age  int    `json:"age"`
	}
	schema := NewObjectSchema().AddProperty("name", NewStringSchema()).AddProperty("age", NewIntegerSchema())
	got, err := GenerateObjectInto[person](context.Background(),
		newTestGenerator(mocks.Always(`{"name": "Ada", "age": 36}`)),
		ObjectRequest{Context: "x", Schema: schema})
	require.NoError(t, err)
	assert.Equal(t, person{Name: "Ada", Age: 36}, got)
}

func TestGenerator_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollectorWithRegistry("gen_test", reg, zap.NewNop())
	g := newTestGenerator(mocks.NewProvider(), WithMetrics(collector), WithRateLimit(1000, 10))

	_, err := g.GenerateText(context.Background(), TextRequest{Context: "x"})
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() == "gen_test_generation_requests_total" {
			found = true
			assert.Equal(t, 1.0, f.GetMetric()[0].GetCounter().GetValue())
		}
	}
	assert.True(t, found)
}

func TestGenerator_RecordsOTelInstruments(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	g := newTestGenerator(mocks.Always("hello"), WithMeter(mp.Meter("test")))

	_, err := g.GenerateText(context.Background(), TextRequest{Context: "x"})
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	byName := map[string]metricdata.Metrics{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		byName[m.Name] = m
	}

	hist, ok := byName["llm.generation.duration"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)

	sum, ok := byName["llm.generation.tokens"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	assert.Len(t, sum.DataPoints, 2)
	assert.Equal(t, int64(30), total)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "你好...", truncate("你好世界", 2))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
}

func TestGenerateText_TraceID(t *testing.T) {
	p := mocks.NewProvider()
	ctx := types.WithTraceID(context.Background(), "trace-123")
	_, err := newTestGenerator(p).GenerateText(ctx, TextRequest{Context: "x"})
	require.NoError(t, err)
	assert.Equal(t, "trace-123", p.LastRequest().TraceID)
}

func TestContentFromObject(t *testing.T) {
	c := ContentFromObject(map[string]any{"text": "hi", "action": "CONTINUE", "count": 2.0})
	assert.Equal(t, types.Content{Text: "hi", Action: "CONTINUE", Extra: map[string]any{"count": 2.0}}, c)
}
