package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artifact_dashboard/internal/config"
)

func TestExtractJSONObject(t *testing.T) {
	cases := map[string]string{
		"plain":   `{"a":1}`,
		"prose":   `Sure! Here it is: {"a":{"b":2}} hope that helps`,
		"fenced":  "```json\n{\"a\":1}\n```",
		"braces":  `{"summary":"uses } and { inside","a":1} trailing`,
		"missing": `no object here`,
		"open":    `{"a":1`,
	}
	want := map[string]string{
		"plain":   `{"a":1}`,
		"prose":   `{"a":{"b":2}}`,
		"fenced":  `{"a":1}`,
		"braces":  `{"summary":"uses } and { inside","a":1}`,
		"missing": "",
		"open":    "",
	}
	for name, in := range cases {
		assert.Equal(t, want[name], ExtractJSONObject(in), name)
	}
}

func TestParseAssessmentClampsAndDefaults(t *testing.T) {
	a, err := ParseAssessment(`{"quality_score": 140.4, "ai_score": -0.2, "plagiarism_score": 0.42, "summary": "  ok  "}`)
	require.NoError(t, err)
	assert.Equal(t, 100, a.QualityScore)
	assert.Equal(t, 0.0, a.AIScore)
	assert.InDelta(t, 0.42, a.PlagiarismScore, 1e-9)
	assert.Equal(t, "ok", a.Summary)
	assert.NotNil(t, a.Strengths)
	assert.NotNil(t, a.Issues)
}

func TestParseAssessmentRejectsSchemaViolations(t *testing.T) {
	for _, reply := range []string{
		`{"quality_score": "high", "ai_score": 0.1, "plagiarism_score": 0.1}`,
		`{"quality_score": 50, "plagiarism_score": 0.1}`,
		`{"quality_score": 50, "ai_score": 0.1, "plagiarism_score": 0.1, "issues": "none"}`,
		`I cannot help with that.`,
	} {
		_, err := ParseAssessment(reply)
		assert.Error(t, err, reply)
	}
}

func TestOllamaAssess(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		reply := `{"quality_score": 72, "ai_score": 0.8, "plagiarism_score": 0.1, "summary": "fine", "strengths": ["clear"], "issues": []}`
		_ = json.NewEncoder(w).Encode(map[string]any{"model": "test-model", "response": reply, "done": true})
	}))
	defer srv.Close()

	p, err := NewOllama(srv.URL, "test-model", 50, srv.Client())
	require.NoError(t, err)
	assert.Equal(t, "ollama:test-model", p.Name())

	a, err := p.Assess(context.Background(), Request{Kind: "text", Title: "Essay", Content: strings.Repeat("word ", 100)})
	require.NoError(t, err)
	assert.Equal(t, 72, a.QualityScore)
	assert.InDelta(t, 0.8, a.AIScore, 1e-9)
	assert.Equal(t, []string{"clear"}, a.Strengths)

	assert.Equal(t, "test-model", got["model"])
	assert.Equal(t, false, got["stream"])
	assert.Equal(t, "json", got["format"])
	prompt, _ := got["prompt"].(string)
	assert.Contains(t, prompt, "[truncated]")
}

func TestOllamaAssessServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"model not loaded"}`))
	}))
	defer srv.Close()

	p, err := NewOllama(srv.URL, "m", 0, srv.Client())
	require.NoError(t, err)
	_, err = p.Assess(context.Background(), Request{Content: "x"})
	assert.Error(t, err)
}

func TestNewOllamaRejectsBadEndpoint(t *testing.T) {
	_, err := NewOllama("not a url", "m", 0, nil)
	assert.Error(t, err)
}

func TestNewProviderSelection(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default().LLM

	p, err := New(ctx, cfg)
	require.NoError(t, err)
	assert.Nil(t, p)

	cfg.Provider = "ollama"
	p, err = New(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, "ollama:"+cfg.Model, p.Name())

	cfg.Provider = "gemini"
	cfg.APIKeyEnv = "ADASH_TEST_MISSING_KEY"
	t.Setenv("ADASH_TEST_MISSING_KEY", "")
	_, err = New(ctx, cfg)
	assert.Error(t, err)

	cfg.Provider = "openai"
	_, err = New(ctx, cfg)
	assert.Error(t, err)
}

type countingProvider struct{ calls int }

func (c *countingProvider) Name() string { return "count" }

func (c *countingProvider) Assess(ctx context.Context, req Request) (Assessment, error) {
	c.calls++
	return Assessment{QualityScore: 1}, nil
}

func TestLimitedHonoursContext(t *testing.T) {
	inner := &countingProvider{}
	p := Limited(inner, 0.001, 1)
	assert.Equal(t, "count", p.Name())

	_, err := p.Assess(context.Background(), Request{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Assess(ctx, Request{})
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}
