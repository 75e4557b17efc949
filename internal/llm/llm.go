// Package llm asks a language model for a second opinion on a submission.
// Providers return an Assessment that the analysis orchestrator merges with
// its local heuristics; any provider error means the local scores stand.
package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/time/rate"

	"artifact_dashboard/internal/config"
)

type Request struct {
	Kind    string
	Title   string
	Content string
}

type Assessment struct {
	QualityScore    int      `json:"quality_score"`
	AIScore         float64  `json:"ai_score"`
	PlagiarismScore float64  `json:"plagiarism_score"`
	Summary         string   `json:"summary"`
	Strengths       []string `json:"strengths"`
	Issues          []string `json:"issues"`
}

type Provider interface {
	// Name identifies the provider and model, e.g. "ollama:llama3.1:8b".
	Name() string
	Assess(ctx context.Context, req Request) (Assessment, error)
}

// New builds the provider named in cfg. It returns nil, nil when the
// provider is "none".
func New(ctx context.Context, cfg config.LLMConfig) (Provider, error) {
	var p Provider
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "none":
		return nil, nil
	case "ollama":
		o, err := NewOllama(cfg.Endpoint, cfg.Model, cfg.MaxContentChars, nil)
		if err != nil {
			return nil, err
		}
		p = o
	case "gemini":
		key := strings.TrimSpace(os.Getenv(cfg.APIKeyEnv))
		if key == "" {
			return nil, fmt.Errorf("gemini provider: %s is not set", cfg.APIKeyEnv)
		}
		g, err := NewGemini(ctx, key, cfg.Model, cfg.MaxContentChars)
		if err != nil {
			return nil, err
		}
		p = g
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if cfg.RequestsPerMinute > 0 {
		p = Limited(p, float64(cfg.RequestsPerMinute)/60, 1)
	}
	return p, nil
}

type limited struct {
	next    Provider
	limiter *rate.Limiter
}

// Limited paces calls to p at rps requests per second.
func Limited(p Provider, rps float64, burst int) Provider {
	if burst < 1 {
		burst = 1
	}
	return &limited{next: p, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (l *limited) Name() string { return l.next.Name() }

func (l *limited) Assess(ctx context.Context, req Request) (Assessment, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return Assessment{}, fmt.Errorf("rate limit: %w", err)
	}
	return l.next.Assess(ctx, req)
}
